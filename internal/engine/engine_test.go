package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/darkmode"
	"github.com/jmylchreest/daynight/internal/geo"
	"github.com/jmylchreest/daynight/internal/model"
	"github.com/jmylchreest/daynight/internal/store"
)

type fakeHost struct {
	mu     sync.Mutex
	active model.ThemePair
	writes []model.ThemePair
	err    error
}

func (h *fakeHost) ActivePair() (model.ThemePair, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, h.err
}

func (h *fakeHost) SetActivePair(p model.ThemePair) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, p)
	h.active = p
	return nil
}

type fakeLocator struct {
	loc   geo.Location
	err   error
	calls int
}

func (l *fakeLocator) Locate(context.Context) (geo.Location, error) {
	l.calls++
	return l.loc, l.err
}

type fakeDetector struct {
	mu      sync.Mutex
	isDark  bool
	err     error
	delay   time.Duration
	running atomic.Int32
	maxSeen atomic.Int32
}

func (d *fakeDetector) Name() string { return "fake" }

func (d *fakeDetector) Detect(context.Context) (bool, error) {
	n := d.running.Add(1)
	defer d.running.Add(-1)
	for {
		m := d.maxSeen.Load()
		if n <= m || d.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(d.delay)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDark, d.err
}

func (d *fakeDetector) set(isDark bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isDark, d.err = isDark, err
}

type warning struct{ key, summary, body string }

type fakeWarner struct {
	mu       sync.Mutex
	warnings []warning
}

func (w *fakeWarner) Warn(key, summary, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings = append(w.warnings, warning{key, summary, body})
}

func (w *fakeWarner) keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var keys []string
	for _, warn := range w.warnings {
		keys = append(keys, warn.key)
	}
	return keys
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testConfig(variant model.Variant) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Activation.Configured = true
	cfg.Activation.Variant = string(variant)
	cfg.Appearance = config.AppearanceConfig{
		DaytimeUITheme:       daytime.UI,
		DaytimeSyntaxTheme:   daytime.Syntax,
		NighttimeUITheme:     nighttime.UI,
		NighttimeSyntaxTheme: nighttime.Syntax,
	}
	return cfg
}

// fixedSolar returns 06:00/20:00 on whatever date is asked for.
func fixedSolar(calls *int) SolarCalculator {
	return func(date model.Date, lat, lng float64) (model.SolarSignal, error) {
		*calls++
		base := date.Time()
		return model.SolarSignal{
			Sunrise:     base.Add(6 * time.Hour),
			Sunset:      base.Add(20 * time.Hour),
			ComputedFor: date,
		}, nil
	}
}

type harness struct {
	engine   *Engine
	host     *fakeHost
	locator  *fakeLocator
	detector *fakeDetector
	warner   *fakeWarner
	clock    *clock
	solar    int
	saved    [][2]float64
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		host:     &fakeHost{active: daytime},
		locator:  &fakeLocator{loc: geo.Location{Lat: 51.5, Lng: -0.12}},
		detector: &fakeDetector{},
		warner:   &fakeWarner{},
		clock:    &clock{t: at(12, 0)},
	}
	e, err := New(Options{
		Config:   cfg,
		Host:     h.host,
		Locator:  h.locator,
		Detector: h.detector,
		Solar:    fixedSolar(&h.solar),
		SaveLocation: func(lat, lng float64) error {
			h.saved = append(h.saved, [2]float64{lat, lng})
			return nil
		},
		Warner: h.warner,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    h.clock.now,
	})
	require.NoError(t, err)
	h.engine = e
	return h
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestEvaluate_NotConfiguredIsSilentNoop(t *testing.T) {
	cfg := testConfig(model.VariantSolar)
	cfg.Activation.Configured = false
	h := newHarness(t, cfg)
	h.clock.t = at(22, 0)

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.True(t, ev.Skipped)
	assert.Empty(t, h.host.writes)
	assert.Zero(t, h.locator.calls)
	assert.Zero(t, h.solar)
	assert.Empty(t, h.warner.keys())
}

func TestEvaluate_SolarSwitchesAtSunset(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSolar))

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerStartup)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseDay, ev.Phase)
	assert.False(t, ev.Wrote)
	assert.NotEmpty(t, ev.ID)

	h.clock.t = at(21, 0)
	ev, err = h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, ev.Phase)
	assert.True(t, ev.Wrote)
	assert.Equal(t, []model.ThemePair{nighttime}, h.host.writes)
}

func TestEvaluate_Idempotent(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSolar))
	h.clock.t = at(21, 0)

	first, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	second, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)

	assert.True(t, first.Wrote)
	assert.False(t, second.Wrote)
	assert.Len(t, h.host.writes, 1)
}

func TestEvaluate_RefreshesExactlyOncePerDate(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSolar))
	ctx := context.Background()

	for _, hour := range []int{7, 9, 13, 19} {
		h.clock.t = at(hour, 0)
		_, err := h.engine.Evaluate(ctx, store.TriggerTimer)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.solar)
	assert.Equal(t, 1, h.locator.calls, "location unknown, looked up once")

	// Next day: exactly one more refresh, and the location is now known.
	h.clock.t = at(7, 0).AddDate(0, 0, 1)
	_, err := h.engine.Evaluate(ctx, store.TriggerTimer)
	require.NoError(t, err)
	h.clock.t = h.clock.t.Add(time.Hour)
	_, err = h.engine.Evaluate(ctx, store.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, 2, h.solar)
	assert.Equal(t, 1, h.locator.calls)
	assert.Empty(t, h.saved, "update disabled, nothing written back")
}

func TestEvaluate_KnownLocationSkipsLookup(t *testing.T) {
	cfg := testConfig(model.VariantSolar)
	cfg.Location.SetCoordinates(40.7, -74.0)
	h := newHarness(t, cfg)

	_, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Zero(t, h.locator.calls)
	assert.Equal(t, 1, h.solar)
}

func TestEvaluate_UpdateLocationWritesBack(t *testing.T) {
	cfg := testConfig(model.VariantSolar)
	cfg.Location.SetCoordinates(40.7, -74.0)
	cfg.Location.Update = true
	h := newHarness(t, cfg)

	_, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, 1, h.locator.calls)
	assert.Equal(t, [][2]float64{{51.5, -0.12}}, h.saved)

	state := h.engine.Snapshot()
	require.NotNil(t, state.Latitude)
	assert.InDelta(t, 51.5, *state.Latitude, 1e-9)
}

func TestEvaluate_GeolocationFailureReusesCachedSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(model.VariantSolar)
	warner := &fakeWarner{}
	host := &fakeHost{active: daytime}
	clk := &clock{t: at(21, 0).AddDate(0, 0, 1)}
	solarCalls := 0

	e, err := New(Options{
		Config:  cfg,
		Host:    host,
		Locator: geo.NewClient(srv.URL, time.Second),
		Solar:   fixedSolar(&solarCalls),
		Warner:  warner,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     clk.now,
	})
	require.NoError(t, err)

	// Yesterday's times, restored from disk.
	yesterday := solarDay()
	e.Restore(&store.State{Solar: &yesterday})

	_, err = e.RefreshSolarSignal(context.Background(), clk.t)
	var netErr *geo.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)

	ev, err := e.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{WarnLocation}, warner.keys())
	assert.Zero(t, solarCalls)
	// Yesterday's sunset applied to today: 21:00 is night.
	assert.Equal(t, model.PhaseNight, ev.Phase)
	assert.Equal(t, []model.ThemePair{nighttime}, host.writes)
	assert.Len(t, ev.Warnings, 1)

	// The cache is still yesterday's, so the next tick retries.
	assert.Equal(t, yesterday.ComputedFor, e.Snapshot().Solar.ComputedFor)
}

func TestEvaluate_NoSignalYetKeepsActive(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSolar))
	h.locator.err = &geo.NetworkError{StatusCode: http.StatusBadGateway}
	h.clock.t = at(23, 0)

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseUnchanged, ev.Phase)
	assert.Empty(t, h.host.writes)
}

func TestEvaluate_System(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSystem))
	h.host.active = nighttime

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseDay, ev.Phase)
	assert.Equal(t, []model.ThemePair{daytime}, h.host.writes)

	h.detector.set(true, nil)
	ev, err = h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, ev.Phase)
	assert.Equal(t, nighttime, h.host.active)
}

func TestEvaluate_SystemFailureKeepsLastValue(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSystem))
	h.detector.set(true, nil)

	_, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	require.Equal(t, nighttime, h.host.active)

	h.detector.set(false, &darkmode.CommandError{Command: "gsettings", Stderr: "no schema"})
	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, model.PhaseNight, ev.Phase)
	assert.Equal(t, nighttime, h.host.active)
	assert.Equal(t, []string{WarnDarkMode}, h.warner.keys())

	sig, err := h.engine.RefreshSystemSignal(context.Background())
	require.Error(t, err)
	assert.True(t, sig.IsDark, "failed refresh reports the last known value")
}

func TestEvaluate_SystemFailureWithNoHistoryKeepsActive(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSystem))
	h.host.active = other
	h.detector.set(false, &darkmode.CommandError{Command: "defaults"})

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseUnchanged, ev.Phase)
	assert.Empty(t, h.host.writes)
}

func TestEvaluate_HostReadError(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSystem))
	h.host.err = errors.New("permission denied")

	ev, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.Error(t, err)
	assert.Contains(t, ev.Error, "permission denied")
	assert.Equal(t, []string{WarnHost}, h.warner.keys())
}

func TestEvaluate_UnusableHostSettingsWarns(t *testing.T) {
	cfg := testConfig(model.VariantSystem)
	cfg.Host.SettingsPath = filepath.Join(t.TempDir(), "config.cson")
	warner := &fakeWarner{}

	e, err := New(Options{
		Config:   cfg,
		Detector: &fakeDetector{},
		Warner:   warner,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	for range 2 {
		ev, err := e.Evaluate(context.Background(), store.TriggerTimer)
		require.Error(t, err)
		assert.Contains(t, ev.Error, "unsupported settings format")
	}
	assert.Equal(t, []string{WarnHost, WarnHost}, warner.keys())
}

func TestEvaluate_SystemCommandDarkToLight(t *testing.T) {
	mode := filepath.Join(t.TempDir(), "dark-mode")
	setDark := func(value string) {
		require.NoError(t, os.WriteFile(mode, []byte(value+"\n"), 0600))
	}

	sys := config.SystemConfigFor("darwin")
	cfg := testConfig(model.VariantSystem)
	cfg.System = sys
	host := &fakeHost{active: daytime}
	warner := &fakeWarner{}

	// Answers like the macOS query: "true" or "false" on stdout, exit 0 either way.
	detector := darkmode.NewCommandDetector("sh", []string{"-c", `cat "$0"`, mode}, sys.DarkValue)

	e, err := New(Options{
		Config:   cfg,
		Host:     host,
		Detector: detector,
		Warner:   warner,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	setDark("true")
	ev, err := e.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, ev.Phase)
	assert.Equal(t, nighttime, host.active)

	setDark("false")
	for range 3 {
		ev, err = e.Evaluate(context.Background(), store.TriggerTimer)
		require.NoError(t, err)
		assert.Equal(t, model.PhaseDay, ev.Phase)
		assert.Empty(t, ev.Warnings)
	}

	assert.Equal(t, daytime, host.active)
	assert.Equal(t, []model.ThemePair{nighttime, daytime}, host.writes)
	assert.Empty(t, warner.keys())
}

func TestEvaluate_Serialized(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSystem))
	h.detector.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.engine.Evaluate(context.Background(), store.TriggerManual)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), h.detector.maxSeen.Load())
}

func TestUpdateConfig(t *testing.T) {
	cfg := testConfig(model.VariantSolar)
	cfg.Location.SetCoordinates(40.7, -74.0)
	h := newHarness(t, cfg)

	_, err := h.engine.Evaluate(context.Background(), store.TriggerTimer)
	require.NoError(t, err)
	require.Equal(t, 1, h.solar)

	// Same place: cache kept.
	same := testConfig(model.VariantSolar)
	same.Location.SetCoordinates(40.7, -74.0)
	same.Activation.Interval = config.Duration(time.Minute)
	h.engine.UpdateConfig(same)
	assert.Equal(t, time.Minute, h.engine.Interval())
	_, err = h.engine.Evaluate(context.Background(), store.TriggerConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, h.solar)

	// New place: recomputed.
	moved := testConfig(model.VariantSolar)
	moved.Location.SetCoordinates(35.7, 139.7)
	h.engine.UpdateConfig(moved)
	_, err = h.engine.Evaluate(context.Background(), store.TriggerConfig)
	require.NoError(t, err)
	assert.Equal(t, 2, h.solar)

	// New theme pairs take effect on the next evaluation.
	swapped := testConfig(model.VariantSolar)
	swapped.Location.SetCoordinates(35.7, 139.7)
	swapped.Appearance.DaytimeUITheme = other.UI
	swapped.Appearance.DaytimeSyntaxTheme = other.Syntax
	h.engine.UpdateConfig(swapped)
	ev, err := h.engine.Evaluate(context.Background(), store.TriggerConfig)
	require.NoError(t, err)
	assert.Equal(t, other, ev.Desired)
	assert.True(t, ev.Wrote)
}

func TestSnapshotAndRestore(t *testing.T) {
	h := newHarness(t, testConfig(model.VariantSolar))
	_, err := h.engine.Evaluate(context.Background(), store.TriggerStartup)
	require.NoError(t, err)

	state := h.engine.Snapshot()
	require.NotNil(t, state.Solar)
	require.NotNil(t, state.LastEvaluation)
	assert.Equal(t, model.VariantSolar, state.Variant)
	assert.Equal(t, store.TriggerStartup, state.LastEvaluation.Trigger)

	// A fresh engine restored from the snapshot needs no refresh today.
	h2 := newHarness(t, testConfig(model.VariantSolar))
	h2.engine.Restore(state)
	_, err = h2.engine.Evaluate(context.Background(), store.TriggerStartup)
	require.NoError(t, err)
	assert.Zero(t, h2.solar)
	assert.Zero(t, h2.locator.calls)
}
