package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/model"
	"github.com/pmorozov/sidenote/internal/segment"
	"github.com/pmorozov/sidenote/internal/unit"
)

// State is the orchestrator's position in one run. Done is reachable even
// when units failed: partial success is terminal success.
type State string

const (
	StateIdle       State = "idle"
	StateChunking   State = "chunking"
	StateDispatched State = "dispatched"
	StateMerging    State = "merging"
	StateDone       State = "done"
)

const (
	defaultUnitTimeout = 5 * time.Minute
	defaultMaxAttempts = 2
	defaultRetryDelay  = 2 * time.Second
)

// Options configures one orchestrator.
type Options struct {
	// Segmentation is passed through to the segmenter.
	Segmentation segment.Options

	// UnitTimeout is the ceiling for one unit's execution, retries included.
	UnitTimeout time.Duration

	// MaxAttempts bounds how often a unit is tried when its errors are
	// transient. Non-transient errors fail on the first attempt.
	MaxAttempts int

	// RetryDelay is the base delay between attempts; attempt n waits n times
	// this long.
	RetryDelay time.Duration
}

func (o Options) normalized() Options {
	if o.UnitTimeout <= 0 {
		o.UnitTimeout = defaultUnitTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	return o
}

// Orchestrator runs a set of analysis units concurrently against one
// document, isolates their failures, and merges their annotations into a
// consolidated report.
type Orchestrator struct {
	units []unit.AnalysisUnit
	opts  Options

	// sleep is injectable so retry tests do not wait in real time.
	sleep func(time.Duration)

	mu    sync.Mutex
	state State
	log   []model.LogEntry
}

// New creates an orchestrator. Unit order is registration order; it decides
// which of two same-start overlapping annotations survives the merge.
func New(units []unit.AnalysisUnit, opts Options) *Orchestrator {
	return &Orchestrator{
		units: units,
		opts:  opts.normalized(),
		sleep: time.Sleep,
		state: StateIdle,
	}
}

// State returns the orchestrator's current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logEvent("", string(s), "")
}

func (o *Orchestrator) logEvent(unitName, event, detail string) {
	o.mu.Lock()
	o.log = append(o.log, model.LogEntry{
		Time:   time.Now().UTC(),
		Unit:   unitName,
		Event:  event,
		Detail: detail,
	})
	o.mu.Unlock()
}

// Run executes one full document analysis. It never fails because units
// failed; the report always returns with whatever succeeded. The only error
// paths are caller-level: an already-cancelled context.
func (o *Orchestrator) Run(ctx context.Context, doc string) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	report := &model.Report{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		DocumentLen: len(doc),
		Outcomes:    make(map[string]model.UnitOutcome, len(o.units)),
	}

	o.setState(StateChunking)
	segs := segment.Split(doc, o.opts.Segmentation)
	report.SegmentCount = len(segs)
	o.logEvent("", "chunked", fmt.Sprintf("%d segments", len(segs)))

	o.setState(StateDispatched)
	dispatchStart := time.Now()

	outcomes := make([]model.UnitOutcome, len(o.units))
	var wg sync.WaitGroup
	for i, u := range o.units {
		wg.Add(1)
		go func(idx int, u unit.AnalysisUnit) {
			defer wg.Done()
			outcomes[idx] = o.runUnit(ctx, u, doc, segs)
		}(i, u)
	}
	wg.Wait()

	o.setState(StateMerging)

	// Concatenate successful units' annotations in registration order so
	// the merge's stable sort breaks equal-start ties the same way on
	// every run.
	var all []model.Annotation
	for i, u := range o.units {
		oc := outcomes[i]
		report.Outcomes[u.Name()] = oc
		if oc.Succeeded() {
			all = append(all, oc.Annotations...)
			report.TotalCost += oc.Cost
			report.DroppedFindings += oc.Dropped
		}
	}

	var kept []model.Annotation
	kept, report.DroppedOverlaps = MergeAnnotations(all)
	report.Annotations = kept
	report.Duration = time.Since(dispatchStart)

	o.setState(StateDone)
	o.mu.Lock()
	report.Log = append([]model.LogEntry(nil), o.log...)
	o.mu.Unlock()

	return report, nil
}

// runUnit wraps one unit with timeout, bounded retry, and isolation. A
// panic or error inside the unit becomes a Failure outcome and never
// reaches the orchestrator's wait.
func (o *Orchestrator) runUnit(ctx context.Context, u unit.AnalysisUnit, doc string, segs []model.Segment) model.UnitOutcome {
	name := u.Name()
	start := time.Now()

	unitCtx, cancel := context.WithTimeout(ctx, o.opts.UnitTimeout)
	defer cancel()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		attempts = attempt
		o.logEvent(name, "attempt", fmt.Sprintf("%d/%d", attempt, o.opts.MaxAttempts))

		res, err := o.attempt(unitCtx, u, doc, segs)
		if err == nil {
			o.logEvent(name, "outcome", "success")
			return model.UnitOutcome{
				Unit:        name,
				Status:      model.StatusSuccess,
				Summary:     res.Summary,
				Analysis:    res.Analysis,
				Annotations: res.Annotations,
				Cost:        res.Cost,
				Dropped:     res.Dropped,
				Trace:       res.Trace,
				Elapsed:     time.Since(start),
			}
		}
		lastErr = err

		kind := extract.Classify(err)
		if kind == extract.KindTimeout && unitCtx.Err() != nil {
			// The unit's ceiling expired; whatever is still running in the
			// background gets discarded.
			break
		}
		if !kind.Transient() {
			o.logEvent(name, "fatal", err.Error())
			break
		}
		if attempt < o.opts.MaxAttempts {
			o.logEvent(name, "retry", fmt.Sprintf("after %s: %v", time.Duration(attempt)*o.opts.RetryDelay, err))
			o.sleep(time.Duration(attempt) * o.opts.RetryDelay)
		}
	}

	o.logEvent(name, "outcome", "failure: "+lastErr.Error())
	return model.UnitOutcome{
		Unit:         name,
		Status:       model.StatusFailure,
		Error:        lastErr.Error(),
		Attempts:     attempts,
		RecoveryHint: recoveryHint(extract.Classify(lastErr)),
		Elapsed:      time.Since(start),
	}
}

// attempt runs one Analyze call in its own goroutine so an expired timeout
// stops the wait without depending on the unit honoring the context. The
// abandoned goroutine may keep running; its result is discarded.
func (o *Orchestrator) attempt(ctx context.Context, u unit.AnalysisUnit, doc string, segs []model.Segment) (*unit.Result, error) {
	type attemptResult struct {
		res *unit.Result
		err error
	}
	ch := make(chan attemptResult, 1)

	go func() {
		res, err := safeAnalyze(ctx, u, doc, segs)
		ch <- attemptResult{res: res, err: err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-ctx.Done():
		return nil, extract.NewError(extract.KindTimeout,
			fmt.Errorf("unit %s did not finish within %s: %w", u.Name(), o.opts.UnitTimeout, ctx.Err()))
	}
}

// safeAnalyze converts a unit panic into an error at the unit boundary.
func safeAnalyze(ctx context.Context, u unit.AnalysisUnit, doc string, segs []model.Segment) (res *unit.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit %s panicked: %v", u.Name(), r)
		}
	}()
	return u.Analyze(ctx, doc, segs)
}
