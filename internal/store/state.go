// Package store persists daynight's engine state between runs.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/jmylchreest/daynight/internal/model"
)

// CurrentSchemaVersion is the current version of the state schema.
const CurrentSchemaVersion = 1

// Trigger identifies what started an evaluation.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerTimer   Trigger = "timer"
	TriggerConfig  Trigger = "config"
	TriggerManual  Trigger = "manual"
)

// Evaluation records the outcome of one evaluation tick.
type Evaluation struct {
	ID         string          `json:"id"` // ULID
	At         time.Time       `json:"at"`
	Trigger    Trigger         `json:"trigger"`
	Skipped    bool            `json:"skipped,omitempty"` // Not configured yet
	Phase      model.Phase     `json:"phase,omitempty"`
	Desired    model.ThemePair `json:"desired"`
	Active     model.ThemePair `json:"active"`
	Wrote      bool            `json:"wrote"`
	Warnings   []string        `json:"warnings,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// State is the engine state persisted to ~/.local/share/daynight/state.json.
// The cached solar signal lets a restarted daemon keep serving the last
// known sunrise/sunset when the geolocation service is unreachable.
type State struct {
	Variant        model.Variant       `json:"variant,omitempty"`
	Solar          *model.SolarSignal  `json:"solar,omitempty"`
	System         *model.SystemSignal `json:"system,omitempty"`
	Latitude       *float64            `json:"latitude,omitempty"`
	Longitude      *float64            `json:"longitude,omitempty"`
	LastEvaluation *Evaluation         `json:"last_evaluation,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`

	SchemaVersion int `json:"schema_version"`
}

// Status is the daemon's view of itself, served over the control interface.
type Status struct {
	Version        string    `json:"version"`
	PID            int       `json:"pid"`
	StartedAt      time.Time `json:"started_at"`
	Interval       string    `json:"interval"`
	NextEvaluation time.Time `json:"next_evaluation,omitzero"`
	State          *State    `json:"state"`
}

// DefaultState returns an empty State.
func DefaultState() *State {
	return &State{SchemaVersion: CurrentSchemaVersion}
}

// StateFile reads and writes a State on disk.
type StateFile struct {
	mu   sync.RWMutex
	path string
}

// NewStateFile creates a StateFile at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the file path.
func (f *StateFile) Path() string {
	return f.path
}

// Load reads the state. A missing or corrupted file yields the default state.
func (f *StateFile) Load() (*State, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return &state, nil
}

// Save writes the state atomically.
func (f *StateFile) Save(state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
