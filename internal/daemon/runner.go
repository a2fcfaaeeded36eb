package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/store"
)

// Evaluator is the engine as seen by the runner.
type Evaluator interface {
	Evaluate(ctx context.Context, trigger store.Trigger) (*store.Evaluation, error)
	UpdateConfig(cfg *config.Config)
	Interval() time.Duration
	Snapshot() *store.State
}

// Request is a queued manual evaluation. Every caller that asked while the
// request was pending shares its result.
type Request struct {
	done chan struct{}
	ev   *store.Evaluation
	err  error
}

// Wait blocks until the evaluation has run or ctx is done.
func (q *Request) Wait(ctx context.Context) (*store.Evaluation, error) {
	select {
	case <-q.done:
		return q.ev, q.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Engine    Evaluator
	StateFile *store.StateFile // nil disables persistence
	Logger    *slog.Logger
	Version   string

	// OnEvaluation is called after every evaluation, from the loop goroutine.
	OnEvaluation func(ev *store.Evaluation, err error)
}

// Runner drives the engine from a single goroutine: the periodic ticker,
// config reloads and manual triggers are all handled by one select loop,
// so evaluations never overlap.
type Runner struct {
	engine       Evaluator
	stateFile    *store.StateFile
	logger       *slog.Logger
	onEvaluation func(ev *store.Evaluation, err error)

	reloadCh  chan *config.Config
	triggerCh chan struct{}

	mu      sync.Mutex
	pending *Request
	status  store.Status
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:       opts.Engine,
		stateFile:    opts.StateFile,
		logger:       logger,
		onEvaluation: opts.OnEvaluation,
		reloadCh:     make(chan *config.Config, 1),
		triggerCh:    make(chan struct{}, 1),
		status: store.Status{
			Version: opts.Version,
			PID:     os.Getpid(),
			State:   opts.Engine.Snapshot(),
		},
	}
}

// Trigger queues a manual evaluation. A trigger that arrives while one is
// already queued joins it; one that arrives mid-evaluation is queued once.
func (r *Runner) Trigger() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		return r.pending
	}
	r.pending = &Request{done: make(chan struct{})}
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
	return r.pending
}

// Evaluate queues a manual evaluation and waits for it.
func (r *Runner) Evaluate(ctx context.Context) (*store.Evaluation, error) {
	return r.Trigger().Wait(ctx)
}

// Reload hands a new configuration to the loop. Only the latest unapplied
// config is kept.
func (r *Runner) Reload(cfg *config.Config) {
	for {
		select {
		case r.reloadCh <- cfg:
			return
		default:
		}
		select {
		case <-r.reloadCh:
		default:
		}
	}
}

// Status returns the daemon status as of the last evaluation.
func (r *Runner) Status() *store.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.status
	return &status
}

// Run evaluates once at startup and then on every event until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.engine.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.mu.Lock()
	r.status.StartedAt = time.Now()
	r.mu.Unlock()
	r.schedule(interval)

	r.logger.Info("runner started", "interval", interval)
	r.evaluate(ctx, store.TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("runner stopped")
			return nil

		case <-ticker.C:
			r.schedule(interval)
			r.evaluate(ctx, store.TriggerTimer)

		case cfg := <-r.reloadCh:
			r.engine.UpdateConfig(cfg)
			if next := r.engine.Interval(); next != interval {
				r.logger.Info("interval changed", "from", interval, "to", next)
				interval = next
				ticker.Reset(interval)
				r.schedule(interval)
			}
			r.evaluate(ctx, store.TriggerConfig)

		case <-r.triggerCh:
			r.mu.Lock()
			req := r.pending
			r.pending = nil
			r.mu.Unlock()

			ev, err := r.evaluate(ctx, store.TriggerManual)
			if req != nil {
				req.ev, req.err = ev, err
				close(req.done)
			}
		}
	}
}

// schedule records when the ticker fires next.
func (r *Runner) schedule(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Interval = interval.String()
	r.status.NextEvaluation = time.Now().Add(interval)
}

// evaluate runs one evaluation inline and records the outcome.
func (r *Runner) evaluate(ctx context.Context, trigger store.Trigger) (*store.Evaluation, error) {
	ev, err := r.engine.Evaluate(ctx, trigger)
	if err != nil {
		r.logger.Warn("evaluation failed", "trigger", trigger, "error", err)
	} else if ev != nil {
		r.logger.Debug("evaluation complete",
			"id", ev.ID,
			"trigger", trigger,
			"skipped", ev.Skipped,
			"phase", ev.Phase,
			"wrote", ev.Wrote,
			"duration_ms", ev.DurationMS,
		)
	}

	state := r.engine.Snapshot()
	state.UpdatedAt = time.Now()

	r.mu.Lock()
	r.status.State = state
	r.mu.Unlock()

	if r.stateFile != nil {
		if err := r.stateFile.Save(state); err != nil {
			r.logger.Warn("failed to save state", "path", r.stateFile.Path(), "error", err)
		}
	}

	if r.onEvaluation != nil {
		r.onEvaluation(ev, err)
	}
	return ev, err
}
