package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pmorozov/sidenote/internal/cache"
	"github.com/pmorozov/sidenote/internal/llm"
)

// fakeProvider implements llm.Provider with canned responses.
type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{
		Text:             f.text,
		Model:            "fake-model",
		PromptTokens:     100,
		CompletionTokens: 50,
	}, nil
}

func TestLLMService_Extract_ParsesItems(t *testing.T) {
	provider := &fakeProvider{
		text: `[{"search_hint": "2 + 2 = 5", "severity": "major"}, {"search_hint": "teh cat"}]`,
	}
	svc := NewLLMService(provider, nil, nil, 0)

	resp, err := svc.Extract(context.Background(), Request{
		Instruction: "find math errors",
		Schema:      `{"severity": "minor|major"}`,
		Text:        "2 + 2 = 5. teh cat sat.",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].SearchHint != "2 + 2 = 5" {
		t.Errorf("Expected search hint %q, got %q", "2 + 2 = 5", resp.Items[0].SearchHint)
	}
	if resp.Items[0].Payload["severity"] != "major" {
		t.Errorf("Expected severity in payload, got %v", resp.Items[0].Payload)
	}
	if resp.Usage.PromptTokens != 100 || resp.Usage.CompletionTokens != 50 {
		t.Errorf("Expected usage 100/50, got %d/%d", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
}

func TestLLMService_Extract_FencedResponse(t *testing.T) {
	provider := &fakeProvider{
		text: "Here are the findings:\n```json\n[{\"search_hint\": \"x\"}]\n```",
	}
	svc := NewLLMService(provider, nil, nil, 0)

	resp, err := svc.Extract(context.Background(), Request{Instruction: "i", Schema: "s", Text: "x y z"})
	if err != nil {
		t.Fatalf("Expected fenced response to parse, got %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(resp.Items))
	}
}

func TestLLMService_Extract_MalformedResponse(t *testing.T) {
	provider := &fakeProvider{text: "I could not produce JSON, sorry."}
	svc := NewLLMService(provider, nil, nil, 0)

	_, err := svc.Extract(context.Background(), Request{Instruction: "i", Schema: "s", Text: "x"})
	if err == nil {
		t.Fatal("Expected error for malformed response")
	}
	if Classify(err) != KindBadInput {
		t.Errorf("Expected KindBadInput, got %s", Classify(err))
	}
	if IsTransient(err) {
		t.Error("Malformed output must not be retried")
	}
}

func TestLLMService_Extract_SkipsHintlessItems(t *testing.T) {
	provider := &fakeProvider{
		text: `[{"search_hint": ""}, {"note": "no hint at all"}, {"search_hint": "keep me"}]`,
	}
	svc := NewLLMService(provider, nil, nil, 0)

	resp, err := svc.Extract(context.Background(), Request{Instruction: "i", Schema: "s", Text: "keep me"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].SearchHint != "keep me" {
		t.Errorf("Expected only the hinted item, got %+v", resp.Items)
	}
}

func TestLLMService_Extract_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{text: `[{"search_hint": "cached text"}]`}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	svc := NewLLMService(provider, nil, mem, time.Minute)

	req := Request{Instruction: "i", Schema: "s", Text: "cached text here"}

	first, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Usage.Cached {
		t.Error("First call should not be cached")
	}

	second, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.Usage.Cached {
		t.Error("Second call should be served from cache")
	}
	if provider.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.calls)
	}
	if len(second.Items) != 1 || second.Items[0].SearchHint != "cached text" {
		t.Errorf("Cached items do not round-trip: %+v", second.Items)
	}
}

func TestLLMService_Extract_EmptyText(t *testing.T) {
	provider := &fakeProvider{text: "[]"}
	svc := NewLLMService(provider, nil, nil, 0)

	resp, err := svc.Extract(context.Background(), Request{Instruction: "i", Schema: "s", Text: "   "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Items) != 0 || provider.calls != 0 {
		t.Errorf("Blank text should short-circuit without a provider call (calls=%d)", provider.calls)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NewError(KindRateLimit, errors.New("slow down")), KindRateLimit},
		{fmt.Errorf("wrapped: %w", NewError(KindAuth, errors.New("bad key"))), KindAuth},
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("client timeout awaiting headers"), KindTimeout},
		{errors.New("429 Too Many Requests"), KindRateLimit},
		{errors.New("dial tcp: connection refused"), KindNetwork},
		{errors.New("API error: status 503"), KindServer},
		{errors.New("invalid api key provided"), KindAuth},
		{errors.New("something odd happened"), KindUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}

	for _, k := range []Kind{KindTimeout, KindRateLimit, KindNetwork, KindServer} {
		if !k.Transient() {
			t.Errorf("%s should be transient", k)
		}
	}
	for _, k := range []Kind{KindAuth, KindBadInput, KindUnknown} {
		if k.Transient() {
			t.Errorf("%s should not be transient", k)
		}
	}
}
