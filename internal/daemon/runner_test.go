package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/model"
	"github.com/jmylchreest/daynight/internal/store"
)

// fakeEngine records evaluations. Manual evaluations block on gate when set.
type fakeEngine struct {
	mu       sync.Mutex
	interval time.Duration
	triggers []store.Trigger
	gate     chan struct{}
	entered  chan struct{}
}

func newFakeEngine(interval time.Duration) *fakeEngine {
	return &fakeEngine{interval: interval, entered: make(chan struct{}, 16)}
}

func (f *fakeEngine) Evaluate(ctx context.Context, trigger store.Trigger) (*store.Evaluation, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	n := len(f.triggers)
	gate := f.gate
	f.mu.Unlock()

	if trigger == store.TriggerManual && gate != nil {
		f.entered <- struct{}{}
		<-gate
	}
	return &store.Evaluation{ID: fmt.Sprintf("ev-%d", n), Trigger: trigger, Phase: model.PhaseDay}, nil
}

func (f *fakeEngine) UpdateConfig(cfg *config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = cfg.Activation.Interval.Duration()
}

func (f *fakeEngine) Interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval
}

func (f *fakeEngine) Snapshot() *store.State {
	state := store.DefaultState()
	state.Variant = model.VariantSolar
	return state
}

func (f *fakeEngine) count(trigger store.Trigger) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.triggers {
		if t == trigger {
			n++
		}
	}
	return n
}

func startRunner(t *testing.T, r *Runner) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, r.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestRunner_StartupEvaluationPersistsState(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	stateFile := store.NewStateFile(filepath.Join(t.TempDir(), "state.json"))

	var mu sync.Mutex
	var seen []*store.Evaluation
	r := NewRunner(RunnerOptions{
		Engine:    engine,
		StateFile: stateFile,
		Logger:    discardLogger(),
		Version:   "test",
		OnEvaluation: func(ev *store.Evaluation, err error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, ev)
		},
	})
	startRunner(t, r)

	assert.Eventually(t, func() bool { return engine.count(store.TriggerStartup) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	state, err := stateFile.Load()
	require.NoError(t, err)
	assert.Equal(t, model.VariantSolar, state.Variant)
	assert.False(t, state.UpdatedAt.IsZero())

	status := r.Status()
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, "1h0m0s", status.Interval)
	assert.False(t, status.StartedAt.IsZero())
	assert.True(t, status.NextEvaluation.After(status.StartedAt))
}

func TestRunner_ManualEvaluate(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	r := NewRunner(RunnerOptions{Engine: engine, Logger: discardLogger()})
	startRunner(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := r.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.TriggerManual, ev.Trigger)
	assert.Equal(t, 1, engine.count(store.TriggerManual))
}

func TestRunner_ManualTriggersCoalesce(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	engine.gate = make(chan struct{})
	r := NewRunner(RunnerOptions{Engine: engine, Logger: discardLogger()})
	startRunner(t, r)

	first := r.Trigger()
	select {
	case <-engine.entered:
	case <-time.After(time.Second):
		t.Fatal("manual evaluation did not start")
	}

	// Mid-evaluation: queued once, further triggers join it.
	second := r.Trigger()
	third := r.Trigger()
	assert.NotSame(t, first, second)
	assert.Same(t, second, third)

	close(engine.gate)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev1, err := first.Wait(ctx)
	require.NoError(t, err)
	ev2, err := second.Wait(ctx)
	require.NoError(t, err)
	ev3, err := third.Wait(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, ev1.ID, ev2.ID)
	assert.Equal(t, ev2.ID, ev3.ID)
	assert.Equal(t, 2, engine.count(store.TriggerManual))
}

func TestRunner_ReloadResetsInterval(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	r := NewRunner(RunnerOptions{Engine: engine, Logger: discardLogger()})
	startRunner(t, r)

	cfg := config.DefaultConfig()
	cfg.Activation.Interval = config.Duration(20 * time.Millisecond)
	r.Reload(cfg)

	assert.Eventually(t, func() bool { return engine.count(store.TriggerConfig) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return engine.count(store.TriggerTimer) >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "20ms", r.Status().Interval)
}

func TestRunner_ReloadKeepsLatest(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	r := NewRunner(RunnerOptions{Engine: engine, Logger: discardLogger()})

	// Not running yet: only the last config survives.
	for _, d := range []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute} {
		cfg := config.DefaultConfig()
		cfg.Activation.Interval = config.Duration(d)
		r.Reload(cfg)
	}
	require.Len(t, r.reloadCh, 1)
	cfg := <-r.reloadCh
	assert.Equal(t, 3*time.Minute, cfg.Activation.Interval.Duration())
}

func TestRunner_WaitHonorsContext(t *testing.T) {
	engine := newFakeEngine(time.Hour)
	r := NewRunner(RunnerOptions{Engine: engine, Logger: discardLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Evaluate(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
