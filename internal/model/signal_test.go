package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairFromSlice(t *testing.T) {
	p, err := PairFromSlice([]string{"one-light-ui", "one-light-syntax"})
	require.NoError(t, err)
	assert.Equal(t, ThemePair{UI: "one-light-ui", Syntax: "one-light-syntax"}, p)
	assert.Equal(t, []string{"one-light-ui", "one-light-syntax"}, p.Slice())

	_, err = PairFromSlice([]string{"only-ui"})
	assert.ErrorIs(t, err, ErrShortThemeList)
}

func TestThemePair_OrderSensitive(t *testing.T) {
	a := ThemePair{UI: "x", Syntax: "y"}
	b := ThemePair{UI: "y", Syntax: "x"}
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ThemePair{UI: "x", Syntax: "y"})
}

func TestSolarSignal_Stale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	sig := SolarSignal{
		Sunrise:     now.Add(-6 * time.Hour),
		Sunset:      now.Add(8 * time.Hour),
		ComputedFor: DateOf(now),
	}

	assert.True(t, sig.Valid())
	assert.False(t, sig.Stale(now))
	assert.False(t, sig.Stale(time.Date(2024, 6, 1, 23, 59, 0, 0, time.Local)))
	assert.True(t, sig.Stale(time.Date(2024, 6, 2, 0, 0, 0, 0, time.Local)))
	// Same day of month, different month.
	assert.True(t, sig.Stale(time.Date(2024, 7, 1, 12, 0, 0, 0, time.Local)))
}

func TestSolarSignal_ZeroIsInvalid(t *testing.T) {
	var sig SolarSignal
	assert.False(t, sig.Valid())
	assert.True(t, sig.Stale(time.Now()))
}

func TestDate(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 9}
	assert.Equal(t, "2024-03-09", d.String())
	assert.Equal(t, d, DateOf(d.Time().Add(13*time.Hour)))
	assert.True(t, Date{}.IsZero())
}

func TestSolarSignal_ShiftedTo(t *testing.T) {
	yesterday := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	sig := SolarSignal{
		Sunrise:     time.Date(2024, 6, 1, 5, 30, 0, 0, time.Local),
		Sunset:      time.Date(2024, 6, 1, 21, 15, 0, 0, time.Local),
		ComputedFor: DateOf(yesterday),
	}

	today := Date{Year: 2024, Month: time.June, Day: 2}
	shifted := sig.ShiftedTo(today)

	assert.Equal(t, time.Date(2024, 6, 2, 5, 30, 0, 0, time.Local), shifted.Sunrise)
	assert.Equal(t, time.Date(2024, 6, 2, 21, 15, 0, 0, time.Local), shifted.Sunset)
	// Still reports the date it was really computed for.
	assert.Equal(t, sig.ComputedFor, shifted.ComputedFor)

	assert.Equal(t, sig, sig.ShiftedTo(sig.ComputedFor))
	assert.Equal(t, SolarSignal{}, SolarSignal{}.ShiftedTo(today))
}
