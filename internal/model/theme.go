// Package model defines the core data structures for daynight.
package model

import (
	"errors"
	"fmt"
)

// ErrShortThemeList is returned when a host theme list has fewer than two entries.
var ErrShortThemeList = errors.New("theme list must contain a ui and a syntax theme")

// ThemePair is a UI theme plus a syntax theme, applied together.
// Comparison is positional: UI with UI, Syntax with Syntax.
type ThemePair struct {
	UI     string `json:"ui" toml:"ui"`
	Syntax string `json:"syntax" toml:"syntax"`
}

// Slice returns the pair in the [ui, syntax] list form editors store.
func (p ThemePair) Slice() []string {
	return []string{p.UI, p.Syntax}
}

// IsZero reports whether neither theme is set.
func (p ThemePair) IsZero() bool {
	return p.UI == "" && p.Syntax == ""
}

// Complete reports whether both themes are set.
func (p ThemePair) Complete() bool {
	return p.UI != "" && p.Syntax != ""
}

func (p ThemePair) String() string {
	return fmt.Sprintf("[%s, %s]", p.UI, p.Syntax)
}

// PairFromSlice parses a [ui, syntax] list. Extra entries are ignored.
func PairFromSlice(themes []string) (ThemePair, error) {
	if len(themes) < 2 {
		return ThemePair{}, fmt.Errorf("%w: got %d", ErrShortThemeList, len(themes))
	}
	return ThemePair{UI: themes[0], Syntax: themes[1]}, nil
}

// Phase describes which pair a decision selected.
type Phase string

const (
	PhaseDay       Phase = "day"
	PhaseNight     Phase = "night"
	PhaseUnchanged Phase = "unchanged"
)
