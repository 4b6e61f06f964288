package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pmorozov/sidenote/internal/cache"
	"github.com/pmorozov/sidenote/internal/llm"
	"github.com/pmorozov/sidenote/internal/worker"
)

const systemPrompt = `You are a precise document-analysis extraction engine.
You respond ONLY with a JSON array. Each element is an object with a
"search_hint" field containing an EXACT quote from the input text, plus the
fields the task schema asks for. Quote the input verbatim in search_hint:
do not paraphrase, re-wrap, or normalize whitespace. Return [] when nothing
qualifies.`

// LLMService implements Service on top of an LLM provider, with response
// caching and per-model rate limiting in front of live calls.
type LLMService struct {
	provider llm.Provider
	limiter  *worker.Limiter
	cache    cache.Cache // nil disables caching
	cacheTTL time.Duration
}

// NewLLMService creates an extraction service backed by the given provider.
func NewLLMService(provider llm.Provider, limiter *worker.Limiter, c cache.Cache, cacheTTL time.Duration) *LLMService {
	return &LLMService{
		provider: provider,
		limiter:  limiter,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Extract runs one extraction request. Errors carry a Kind so the caller's
// retry policy never has to parse message text.
func (s *LLMService) Extract(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return &Response{}, nil
	}

	key := cache.Key(s.provider.Name(), req.Instruction, req.Schema, req.Text)
	if s.cache != nil {
		if data, found := s.cache.Get(key); found {
			var items []Item
			if json.Unmarshal(data, &items) == nil {
				return &Response{
					Items: items,
					Usage: Usage{Model: s.provider.Name(), Cached: true},
				}, nil
			}
			// Corrupt entry: fall through to a live call
			_ = s.cache.Delete(key)
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.provider.Name()); err != nil {
			return nil, NewError(Classify(err), fmt.Errorf("rate limiter: %w", err))
		}
	}

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(req),
		Temperature: 0.1, // Extraction wants determinism, not creativity
	})
	if err != nil {
		return nil, NewError(Classify(err), err)
	}

	items, err := parseItems(resp.Text, req.MaxItems)
	if err != nil {
		return nil, NewError(KindBadInput, fmt.Errorf("parse extraction response: %w", err))
	}

	if s.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			_ = s.cache.Set(key, data, s.cacheTTL)
		}
	}

	return &Response{
		Items: items,
		Usage: Usage{
			Model:            resp.Model,
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			Cost:             llm.Cost(s.provider.Name(), resp.Model, resp.PromptTokens, resp.CompletionTokens),
			Duration:         time.Since(start),
		},
	}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(req.Instruction)
	b.WriteString("\n\nPer-item schema (in addition to search_hint):\n")
	b.WriteString(req.Schema)
	if req.MaxItems > 0 {
		fmt.Fprintf(&b, "\n\nReturn at most %d items.", req.MaxItems)
	}
	b.WriteString("\n\nInput text:\n---\n")
	b.WriteString(req.Text)
	b.WriteString("\n---\n")
	return b.String()
}

// parseItems decodes the model's JSON array, tolerating a fenced code block
// or prose around it. Anything without a usable array is a bad response.
func parseItems(text string, maxItems int) ([]Item, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var objs []map[string]any
	if err := json.Unmarshal([]byte(raw), &objs); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	var items []Item
	for _, obj := range objs {
		hint, _ := obj["search_hint"].(string)
		if strings.TrimSpace(hint) == "" {
			continue // An item we cannot relocate is useless
		}
		payload := make(map[string]any, len(obj))
		for k, v := range obj {
			if k != "search_hint" {
				payload[k] = v
			}
		}
		items = append(items, Item{SearchHint: hint, Payload: payload})
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

// extractJSONArray returns the outermost [...] span of text, stripping an
// optional markdown code fence first.
func extractJSONArray(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
