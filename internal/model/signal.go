package model

import (
	"fmt"
	"time"
)

// Variant selects how day and night are determined. Exactly one is used per run.
type Variant string

const (
	// VariantSolar uses computed sunrise and sunset for a location.
	VariantSolar Variant = "solar"
	// VariantSystem follows the operating system's dark-mode preference.
	VariantSystem Variant = "system"
)

// ValidVariants returns all valid variant values.
func ValidVariants() []Variant {
	return []Variant{VariantSolar, VariantSystem}
}

// Date is a calendar date in the local time zone.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf returns the local calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Local().Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns local midnight at the start of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Signal is the input used to decide between day and night.
// It is implemented by SolarSignal and SystemSignal.
type Signal interface {
	Variant() Variant
}

// SolarSignal holds sunrise and sunset for the date it was computed for.
type SolarSignal struct {
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	ComputedFor Date      `json:"computed_for"`
}

// Variant implements Signal.
func (s SolarSignal) Variant() Variant { return VariantSolar }

// Valid reports whether the signal has ever been computed.
func (s SolarSignal) Valid() bool {
	return !s.ComputedFor.IsZero() && !s.Sunrise.IsZero() && !s.Sunset.IsZero()
}

// Stale reports whether the calendar date has rolled over since the
// signal was computed.
func (s SolarSignal) Stale(now time.Time) bool {
	return DateOf(now) != s.ComputedFor
}

// SystemSignal holds the operating system's dark-mode preference.
type SystemSignal struct {
	IsDark bool `json:"is_dark"`
}

// Variant implements Signal.
func (s SystemSignal) Variant() Variant { return VariantSystem }

// ShiftedTo returns a copy with sunrise and sunset moved onto date, keeping
// their local clock times. A stale signal shifted this way stays usable
// until a fresh one can be computed.
func (s SolarSignal) ShiftedTo(date Date) SolarSignal {
	if !s.Valid() || s.ComputedFor == date {
		return s
	}
	return SolarSignal{
		Sunrise:     onDate(s.Sunrise, date),
		Sunset:      onDate(s.Sunset, date),
		ComputedFor: s.ComputedFor,
	}
}

func onDate(t time.Time, d Date) time.Time {
	t = t.Local()
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}
