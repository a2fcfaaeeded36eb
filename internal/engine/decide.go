// Package engine decides which theme pair should be active and reconciles
// that decision against the host editor's settings.
package engine

import (
	"time"

	"github.com/jmylchreest/daynight/internal/model"
)

// Decision is the pair that should be active and why.
type Decision struct {
	Pair  model.ThemePair
	Phase model.Phase
}

// WriteRequest describes a write of the active theme pair to the host.
// It carries no I/O of its own.
type WriteRequest struct {
	Pair model.ThemePair
}

// Decide returns the pair that should be active at now.
//
// Solar: at or after sunset is night, at or after sunrise is day, and before
// sunrise the active pair is kept. A signal that was never computed also
// keeps the active pair.
//
// System: dark is night, anything else is day. There is no third branch.
func Decide(signal model.Signal, daytime, nighttime, active model.ThemePair, now time.Time) Decision {
	switch s := signal.(type) {
	case model.SolarSignal:
		if !s.Valid() {
			break
		}
		switch {
		case !now.Before(s.Sunset):
			return Decision{Pair: nighttime, Phase: model.PhaseNight}
		case !now.Before(s.Sunrise):
			return Decision{Pair: daytime, Phase: model.PhaseDay}
		}
	case model.SystemSignal:
		if s.IsDark {
			return Decision{Pair: nighttime, Phase: model.PhaseNight}
		}
		return Decision{Pair: daytime, Phase: model.PhaseDay}
	}
	return Decision{Pair: active, Phase: model.PhaseUnchanged}
}

// Reconcile returns a write request for desired, or nil when it already
// equals active.
func Reconcile(desired, active model.ThemePair) *WriteRequest {
	if desired == active {
		return nil
	}
	return &WriteRequest{Pair: desired}
}
