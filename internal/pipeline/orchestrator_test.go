package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/model"
	"github.com/pmorozov/sidenote/internal/segment"
	"github.com/pmorozov/sidenote/internal/unit"
)

// stubUnit is a scriptable analysis unit.
type stubUnit struct {
	name    string
	result  *unit.Result
	err     error
	panics  bool
	delay   time.Duration
	calls   int32
	analyze func(ctx context.Context, doc string, segs []model.Segment) (*unit.Result, error)
}

func (s *stubUnit) Name() string { return s.name }

func (s *stubUnit) Analyze(ctx context.Context, doc string, segs []model.Segment) (*unit.Result, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.analyze != nil {
		return s.analyze(ctx, doc, segs)
	}
	if s.panics {
		panic("stub unit exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &unit.Result{Summary: s.name + ": ok"}, nil
}

// newTestOrchestrator disables real sleeping between retries.
func newTestOrchestrator(units []unit.AnalysisUnit, opts Options) *Orchestrator {
	o := New(units, opts)
	o.sleep = func(time.Duration) {}
	return o
}

func ann(u string, start, end int, doc string) model.Annotation {
	return model.Annotation{Unit: u, Range: model.Range{Start: start, End: end}, QuotedText: doc[start:end]}
}

func TestRun_SingleUnitScenario(t *testing.T) {
	doc := "2 + 2 = 5. The cat sat."
	u := &stubUnit{
		name: "mathcheck",
		result: &unit.Result{
			Summary:     "mathcheck: 1 issue(s)",
			Annotations: []model.Annotation{ann("mathcheck", 0, 9, doc)},
			Cost:        0.002,
		},
	}

	o := newTestOrchestrator([]unit.AnalysisUnit{u}, Options{})
	report, err := o.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(report.Annotations) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(report.Annotations))
	}
	a := report.Annotations[0]
	if a.Range.Start != 0 || a.Range.End != 9 || a.QuotedText != "2 + 2 = 5" {
		t.Errorf("unexpected annotation %+v", a)
	}
	if report.TotalCost != 0.002 {
		t.Errorf("expected total cost 0.002, got %f", report.TotalCost)
	}
	if report.SegmentCount != 1 {
		t.Errorf("expected 1 segment, got %d", report.SegmentCount)
	}
	if o.State() != StateDone {
		t.Errorf("expected Done state, got %s", o.State())
	}
}

func TestRun_IsolationFailingUnitDoesNotStarveOthers(t *testing.T) {
	doc := "Some document text for analysis."
	good := &stubUnit{name: "good", result: &unit.Result{
		Summary:     "good: ok",
		Annotations: []model.Annotation{ann("good", 0, 4, doc)},
	}}
	thrower := &stubUnit{name: "thrower", panics: true}
	failer := &stubUnit{name: "failer", err: errors.New("bad input shape")}

	o := newTestOrchestrator([]unit.AnalysisUnit{thrower, good, failer}, Options{})
	report, err := o.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("run must not fail because units failed: %v", err)
	}

	if !report.Outcomes["good"].Succeeded() {
		t.Error("good unit's success must survive sibling failures")
	}
	if report.Outcomes["thrower"].Succeeded() {
		t.Error("panicking unit must be a failure outcome")
	}
	if report.Outcomes["failer"].Succeeded() {
		t.Error("erroring unit must be a failure outcome")
	}
	if len(report.Annotations) != 1 {
		t.Errorf("expected the good unit's annotation, got %d", len(report.Annotations))
	}
	if len(report.FailedUnits()) != 2 {
		t.Errorf("expected 2 failed units, got %v", report.FailedUnits())
	}
}

func TestRun_RetryBoundOnTransientError(t *testing.T) {
	rateLimited := &stubUnit{
		name: "limited",
		err:  extract.NewError(extract.KindRateLimit, errors.New("rate limit exceeded")),
	}

	o := newTestOrchestrator([]unit.AnalysisUnit{rateLimited}, Options{MaxAttempts: 2})
	report, err := o.Run(context.Background(), "doc text")
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}

	oc := report.Outcomes["limited"]
	if oc.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if oc.Attempts != 2 {
		t.Errorf("expected attemptsMade = 2, got %d", oc.Attempts)
	}
	if got := atomic.LoadInt32(&rateLimited.calls); got != 2 {
		t.Errorf("expected exactly 2 calls, got %d", got)
	}
	if oc.RecoveryHint == "" {
		t.Error("expected a recovery hint for a rate-limited unit")
	}
}

func TestRun_FatalErrorNoRetry(t *testing.T) {
	fatal := &stubUnit{
		name: "fatal",
		err:  extract.NewError(extract.KindAuth, errors.New("invalid api key")),
	}

	o := newTestOrchestrator([]unit.AnalysisUnit{fatal}, Options{MaxAttempts: 3})
	report, _ := o.Run(context.Background(), "doc text")

	oc := report.Outcomes["fatal"]
	if oc.Attempts != 1 {
		t.Errorf("fatal error must fail on the first attempt, got %d attempts", oc.Attempts)
	}
	if got := atomic.LoadInt32(&fatal.calls); got != 1 {
		t.Errorf("expected exactly 1 call, got %d", got)
	}
}

func TestRun_TransientThenSuccess(t *testing.T) {
	doc := "document"
	var n int32
	flaky := &stubUnit{name: "flaky"}
	flaky.analyze = func(ctx context.Context, d string, segs []model.Segment) (*unit.Result, error) {
		if atomic.AddInt32(&n, 1) == 1 {
			return nil, extract.NewError(extract.KindServer, errors.New("status 503"))
		}
		return &unit.Result{Summary: "flaky: recovered"}, nil
	}

	o := newTestOrchestrator([]unit.AnalysisUnit{flaky}, Options{MaxAttempts: 3})
	report, _ := o.Run(context.Background(), doc)

	if !report.Outcomes["flaky"].Succeeded() {
		t.Fatalf("expected recovery on retry, got %+v", report.Outcomes["flaky"])
	}
}

func TestRun_UnitTimeout(t *testing.T) {
	slow := &stubUnit{name: "slow"}
	slow.analyze = func(ctx context.Context, d string, segs []model.Segment) (*unit.Result, error) {
		// Ignores the context entirely, like a stuck external call.
		time.Sleep(2 * time.Second)
		return &unit.Result{Summary: "slow: done"}, nil
	}
	fast := &stubUnit{name: "fast", result: &unit.Result{Summary: "fast: ok"}}

	o := newTestOrchestrator([]unit.AnalysisUnit{slow, fast}, Options{UnitTimeout: 100 * time.Millisecond})

	start := time.Now()
	report, err := o.Run(context.Background(), "doc")
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("orchestrator kept waiting past the unit timeout")
	}

	oc := report.Outcomes["slow"]
	if oc.Succeeded() {
		t.Fatal("expected timeout failure for the slow unit")
	}
	if extract.Classify(errors.New(oc.Error)) != extract.KindTimeout {
		t.Errorf("expected a timeout-classified error, got %q", oc.Error)
	}
	if !report.Outcomes["fast"].Succeeded() {
		t.Error("fast unit must not be affected by the slow unit's timeout")
	}
}

func TestRun_RegistrationOrderTieBreak(t *testing.T) {
	doc := "abcdefghijklmn"
	// Both annotations start at 0 and overlap; the first-registered unit's
	// annotation must survive.
	first := &stubUnit{name: "first", result: &unit.Result{
		Annotations: []model.Annotation{ann("first", 0, 9, doc)},
	}}
	second := &stubUnit{name: "second", result: &unit.Result{
		Annotations: []model.Annotation{ann("second", 0, 9, doc), ann("second", 5, 14, doc)},
	}}

	o := newTestOrchestrator([]unit.AnalysisUnit{first, second}, Options{})
	report, _ := o.Run(context.Background(), doc)

	if len(report.Annotations) != 1 {
		t.Fatalf("expected 1 surviving annotation, got %d", len(report.Annotations))
	}
	if report.Annotations[0].Unit != "first" {
		t.Errorf("tie must go to the first-registered unit, got %s", report.Annotations[0].Unit)
	}
	if report.DroppedOverlaps != 2 {
		t.Errorf("expected 2 dropped overlaps, got %d", report.DroppedOverlaps)
	}
}

func TestRun_EmptyDocument(t *testing.T) {
	u := &stubUnit{name: "u", result: &unit.Result{Summary: "u: ok"}}
	o := newTestOrchestrator([]unit.AnalysisUnit{u}, Options{})

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("expected success on empty document, got %v", err)
	}
	if report.SegmentCount != 0 {
		t.Errorf("expected 0 segments, got %d", report.SegmentCount)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator([]unit.AnalysisUnit{&stubUnit{name: "u"}}, Options{})
	if _, err := o.Run(ctx, "doc"); err == nil {
		t.Fatal("expected error for already-cancelled context")
	}
}

func TestRun_SegmentationOptionsHonored(t *testing.T) {
	doc := ""
	for i := 0; i < 50; i++ {
		doc += fmt.Sprintf("Paragraph %d with a little content.\n\n", i)
	}

	var seen int
	u := &stubUnit{name: "u"}
	u.analyze = func(ctx context.Context, d string, segs []model.Segment) (*unit.Result, error) {
		seen = len(segs)
		return &unit.Result{Summary: "u: ok"}, nil
	}

	o := newTestOrchestrator([]unit.AnalysisUnit{u}, Options{
		Segmentation: segment.Options{Strategy: segment.StrategyParagraph, MaxSize: 300},
	})
	report, _ := o.Run(context.Background(), doc)

	if report.SegmentCount < 2 {
		t.Fatalf("expected multiple segments, got %d", report.SegmentCount)
	}
	if seen != report.SegmentCount {
		t.Errorf("unit saw %d segments, report says %d", seen, report.SegmentCount)
	}
}
