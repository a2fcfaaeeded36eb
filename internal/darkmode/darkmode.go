// Package darkmode queries the operating system's dark-mode preference.
package darkmode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmylchreest/daynight/internal/config"
)

// Detector reports whether the OS currently prefers a dark appearance.
type Detector interface {
	// Name returns a human-readable name for this detector.
	Name() string

	// Detect queries the preference. Failures are returned as *CommandError.
	Detect(ctx context.Context) (isDark bool, err error)
}

// CommandError reports that the OS query errored or wrote to its error stream.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := "dark-mode query " + e.Command + " failed"
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// New creates the detector selected by cfg.Detector.
// "auto" prefers the desktop portal and falls back to the command.
func New(cfg config.SystemConfig, logger *slog.Logger) Detector {
	if logger == nil {
		logger = slog.Default()
	}

	command := NewCommandDetector(cfg.Command, cfg.Args, cfg.DarkValue)

	switch cfg.Detector {
	case config.DetectorCommand:
		return command
	case config.DetectorPortal:
		return NewPortalDetector(nil)
	default:
		return &fallback{
			detectors: []Detector{NewPortalDetector(nil), command},
			logger:    logger,
		}
	}
}

// fallback tries each detector in order and returns the first success.
type fallback struct {
	detectors []Detector
	logger    *slog.Logger
}

func (f *fallback) Name() string {
	names := make([]string, len(f.detectors))
	for i, d := range f.detectors {
		names[i] = d.Name()
	}
	return strings.Join(names, ",")
}

func (f *fallback) Detect(ctx context.Context) (bool, error) {
	var errs []error
	for _, d := range f.detectors {
		isDark, err := d.Detect(ctx)
		if err == nil {
			return isDark, nil
		}
		f.logger.Debug("dark-mode detector failed, trying next", "detector", d.Name(), "error", err)
		errs = append(errs, err)
	}
	// Keep the last *CommandError reachable through errors.As.
	return false, errors.Join(errs...)
}
