package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/darkmode"
	"github.com/jmylchreest/daynight/internal/geo"
	"github.com/jmylchreest/daynight/internal/host"
	"github.com/jmylchreest/daynight/internal/model"
	"github.com/jmylchreest/daynight/internal/solar"
	"github.com/jmylchreest/daynight/internal/store"
)

// Host is the editor settings store that holds the active pair.
type Host interface {
	ActivePair() (model.ThemePair, error)
	SetActivePair(pair model.ThemePair) error
}

// Warner surfaces a warning to the user. Implementations may rate-limit by key.
type Warner interface {
	Warn(key, summary, body string)
}

// SolarCalculator computes a solar signal for a date and location.
type SolarCalculator func(date model.Date, lat, lng float64) (model.SolarSignal, error)

// LocationSaver writes refreshed coordinates back to the configuration.
type LocationSaver func(lat, lng float64) error

// Warning keys.
const (
	WarnLocation = "location"
	WarnSolar    = "solar"
	WarnDarkMode = "dark-mode"
	WarnHost     = "host"
)

// Options configures an Engine. Nil collaborators are built from Config.
type Options struct {
	Config       *config.Config
	Host         Host
	Locator      geo.Locator
	Detector     darkmode.Detector
	Solar        SolarCalculator
	SaveLocation LocationSaver
	Warner       Warner
	Logger       *slog.Logger
	Now          func() time.Time
}

// Engine owns the cached day signal and the configured theme pairs.
// Evaluations are serialized: a caller that arrives while another
// evaluation runs waits for it to finish.
type Engine struct {
	// mu is held for the whole of an evaluation and for config updates.
	mu sync.Mutex

	logger       *slog.Logger
	now          func() time.Time
	solarCalc    SolarCalculator
	saveLocation LocationSaver
	warner       Warner

	cfg       *config.Config
	daytime   model.ThemePair
	nighttime model.ThemePair

	host     Host
	hostErr  error // why host is nil
	locator  geo.Locator
	detector darkmode.Detector

	// Collaborators built here are rebuilt when their config changes.
	ownsHost, ownsLocator, ownsDetector bool

	lat, lng *float64
	solar    model.SolarSignal
	system   *model.SystemSignal
	last     *store.Evaluation
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, errors.New("engine: config is required")
	}

	e := &Engine{
		logger:       opts.Logger,
		now:          opts.Now,
		solarCalc:    opts.Solar,
		saveLocation: opts.SaveLocation,
		warner:       opts.Warner,
		host:         opts.Host,
		locator:      opts.Locator,
		detector:     opts.Detector,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.solarCalc == nil {
		e.solarCalc = solar.Signal
	}
	if e.warner == nil {
		e.warner = logWarner{e.logger}
	}
	e.ownsHost = e.host == nil
	e.ownsLocator = e.locator == nil
	e.ownsDetector = e.detector == nil

	e.applyConfig(opts.Config)
	return e, nil
}

// UpdateConfig swaps in a new configuration. It waits for any in-flight
// evaluation to finish.
func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyConfig(cfg)
}

// applyConfig must be called with mu held (or before the engine is shared).
func (e *Engine) applyConfig(cfg *config.Config) {
	prev := e.cfg
	e.cfg = cfg
	e.daytime = cfg.Appearance.Daytime()
	e.nighttime = cfg.Appearance.Nighttime()

	if cfg.Location.Known() {
		lat, lng := *cfg.Location.Latitude, *cfg.Location.Longitude
		if e.lat == nil || *e.lat != lat || e.lng == nil || *e.lng != lng {
			if e.lat != nil {
				// Different place: the cached times no longer apply.
				e.solar = model.SolarSignal{}
			}
			e.lat, e.lng = &lat, &lng
		}
	}

	if e.ownsHost && (prev == nil || prev.Host.SettingsPath != cfg.Host.SettingsPath ||
		prev.Host.ThemesKey != cfg.Host.ThemesKey || prev.Host.UIKey != cfg.Host.UIKey ||
		prev.Host.SyntaxKey != cfg.Host.SyntaxKey) {
		settings, err := host.NewSettings(cfg.Host)
		if err != nil {
			e.logger.Warn("host settings unavailable", "path", cfg.Host.SettingsPath, "error", err)
			e.host, e.hostErr = nil, err
		} else {
			e.host, e.hostErr = settings, nil
		}
	}

	if e.ownsLocator && (prev == nil || prev.Location.GeolocationURL != cfg.Location.GeolocationURL ||
		prev.Location.Timeout != cfg.Location.Timeout) {
		e.locator = geo.NewClient(cfg.Location.GeolocationURL, cfg.Location.Timeout.Duration())
	}

	if e.ownsDetector && (prev == nil || !sameSystem(prev.System, cfg.System)) {
		e.detector = darkmode.New(cfg.System, e.logger)
	}
}

func sameSystem(a, b config.SystemConfig) bool {
	if a.Detector != b.Detector || a.Command != b.Command || a.DarkValue != b.DarkValue || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}

// Restore seeds the cached signals from persisted state.
func (e *Engine) Restore(state *store.State) {
	if state == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sameplace := e.lat == nil || (state.Latitude != nil && state.Longitude != nil &&
		*state.Latitude == *e.lat && *state.Longitude == *e.lng)
	if sameplace && state.Solar != nil && state.Solar.Valid() {
		e.solar = *state.Solar
	}
	if state.System != nil {
		sys := *state.System
		e.system = &sys
	}
	if e.lat == nil && state.Latitude != nil && state.Longitude != nil {
		lat, lng := *state.Latitude, *state.Longitude
		e.lat, e.lng = &lat, &lng
	}
	e.last = state.LastEvaluation
}

// Snapshot returns the engine state for persistence and status reporting.
func (e *Engine) Snapshot() *store.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() *store.State {
	state := store.DefaultState()
	state.Variant = e.cfg.Variant()
	if e.solar.Valid() {
		sig := e.solar
		state.Solar = &sig
	}
	if e.system != nil {
		sys := *e.system
		state.System = &sys
	}
	if e.lat != nil && e.lng != nil {
		lat, lng := *e.lat, *e.lng
		state.Latitude, state.Longitude = &lat, &lng
	}
	if e.last != nil {
		ev := *e.last
		state.LastEvaluation = &ev
	}
	return state
}

// Evaluate runs one evaluation tick: refresh the day signal when needed,
// decide the desired pair, and write it to the host if it differs from the
// active one. Signal refresh failures are surfaced as warnings and the last
// known signal is used; only host failures are returned as errors.
func (e *Engine) Evaluate(ctx context.Context, trigger store.Trigger) (*store.Evaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	ev := &store.Evaluation{
		ID:      ulid.Make().String(),
		At:      start,
		Trigger: trigger,
	}
	defer func() {
		ev.DurationMS = e.now().Sub(start).Milliseconds()
		e.last = ev
	}()

	logger := e.logger.With("evaluation", ev.ID, "trigger", trigger)

	if !e.cfg.Activation.Configured {
		logger.Debug("not configured, skipping evaluation")
		ev.Skipped = true
		return ev, nil
	}

	signal := e.currentSignal(ctx, start, ev, logger)

	if e.host == nil {
		err := errors.New("no usable host settings file")
		if e.hostErr != nil {
			err = fmt.Errorf("%w: %w", err, e.hostErr)
		}
		ev.Error = err.Error()
		e.warner.Warn(WarnHost, "Unable to switch themes", err.Error())
		return ev, err
	}

	active, err := e.host.ActivePair()
	if err != nil {
		err = fmt.Errorf("read active themes: %w", err)
		ev.Error = err.Error()
		e.warner.Warn(WarnHost, "Unable to read editor settings", err.Error())
		return ev, err
	}
	ev.Active = active

	decision := Decide(signal, e.daytime, e.nighttime, active, start)
	ev.Phase = decision.Phase
	ev.Desired = decision.Pair

	req := Reconcile(decision.Pair, active)
	if req == nil {
		logger.Debug("themes already active", "phase", decision.Phase, "themes", active)
		return ev, nil
	}

	if err := e.host.SetActivePair(req.Pair); err != nil {
		err = fmt.Errorf("write active themes: %w", err)
		ev.Error = err.Error()
		e.warner.Warn(WarnHost, "Unable to switch themes", err.Error())
		return ev, err
	}
	ev.Wrote = true

	logger.Info("switched themes", "phase", decision.Phase, "from", active, "to", req.Pair)
	return ev, nil
}

// currentSignal refreshes the signal for the configured variant if needed
// and returns the one to decide with (nil when none is known yet).
func (e *Engine) currentSignal(ctx context.Context, now time.Time, ev *store.Evaluation, logger *slog.Logger) model.Signal {
	switch e.cfg.Variant() {
	case model.VariantSystem:
		if _, err := e.refreshSystem(ctx); err != nil {
			ev.Warnings = append(ev.Warnings, err.Error())
			e.warner.Warn(WarnDarkMode, "Unable to read dark mode", err.Error())
			logger.Warn("dark-mode query failed, keeping last value", "error", err)
		}
		if e.system == nil {
			return nil
		}
		return *e.system

	default:
		if e.solar.Stale(now) {
			logger.Debug("date changed, refreshing sun times", "cached_for", e.solar.ComputedFor)
			if _, err := e.refreshSolar(ctx, now); err != nil {
				ev.Warnings = append(ev.Warnings, err.Error())
				key, summary := WarnSolar, "Unable to compute sun times"
				var netErr *geo.NetworkError
				if errors.As(err, &netErr) {
					key, summary = WarnLocation, "Unable to update location"
				}
				e.warner.Warn(key, summary, err.Error())
				logger.Warn("sun time refresh failed, using cached times", "error", err, "cached_for", e.solar.ComputedFor)
			}
		}
		return e.solar.ShiftedTo(model.DateOf(now))
	}
}

// RefreshSolarSignal recomputes sunrise and sunset for now's date, looking
// up the location first when it is unknown or updates are enabled. On
// failure the cached signal is left untouched.
func (e *Engine) RefreshSolarSignal(ctx context.Context, now time.Time) (model.SolarSignal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshSolar(ctx, now)
}

func (e *Engine) refreshSolar(ctx context.Context, now time.Time) (model.SolarSignal, error) {
	if e.lat == nil || e.lng == nil || e.cfg.Location.Update {
		loc, err := e.locator.Locate(ctx)
		if err != nil {
			return e.solar, err
		}
		e.logger.Debug("located", "lat", loc.Lat, "lng", loc.Lng)
		lat, lng := loc.Lat, loc.Lng
		e.lat, e.lng = &lat, &lng

		if e.cfg.Location.Update && e.saveLocation != nil {
			e.logger.Info("updating location config", "lat", lat, "lng", lng)
			if err := e.saveLocation(lat, lng); err != nil {
				e.logger.Warn("failed to save location", "error", err)
			}
		}
	}

	sig, err := e.solarCalc(model.DateOf(now), *e.lat, *e.lng)
	if err != nil {
		return e.solar, err
	}
	e.solar = sig
	e.logger.Debug("sun times computed", "sunrise", sig.Sunrise, "sunset", sig.Sunset, "date", sig.ComputedFor)
	return sig, nil
}

// RefreshSystemSignal queries the OS dark-mode preference. On failure the
// last known value is left untouched.
func (e *Engine) RefreshSystemSignal(ctx context.Context) (model.SystemSignal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshSystem(ctx)
}

func (e *Engine) refreshSystem(ctx context.Context) (model.SystemSignal, error) {
	isDark, err := e.detector.Detect(ctx)
	if err != nil {
		if e.system != nil {
			return *e.system, err
		}
		return model.SystemSignal{}, err
	}
	sig := model.SystemSignal{IsDark: isDark}
	e.system = &sig
	return sig, nil
}

// Interval returns the configured evaluation interval.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Activation.Interval.Duration()
}

// logWarner is the Warner used when none is supplied.
type logWarner struct {
	logger *slog.Logger
}

func (w logWarner) Warn(key, summary, body string) {
	w.logger.Warn(summary, "key", key, "detail", body)
}
