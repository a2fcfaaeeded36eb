package solar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/daynight/internal/model"
)

func TestTimes_Equator(t *testing.T) {
	date := model.Date{Year: 2024, Month: time.March, Day: 20}
	rise, set, err := Times(date, 0, 0)
	require.NoError(t, err)

	assert.True(t, rise.Before(set))
	// Roughly twelve hours of daylight at the equinox.
	assert.InDelta(t, 12*time.Hour, set.Sub(rise), float64(15*time.Minute))

	// Around 06:00 UTC and 18:00 UTC at 0,0.
	assert.Equal(t, 6, rise.UTC().Hour())
	assert.Equal(t, 18, set.UTC().Hour())
}

func TestTimes_PolarNight(t *testing.T) {
	// Longyearbyen in December.
	date := model.Date{Year: 2024, Month: time.December, Day: 21}
	_, _, err := Times(date, 78.22, 15.65)
	assert.ErrorIs(t, err, ErrNoSunriseSunset)
}

func TestSignal(t *testing.T) {
	date := model.Date{Year: 2024, Month: time.June, Day: 21}
	sig, err := Signal(date, 51.5, -0.12)
	require.NoError(t, err)

	assert.True(t, sig.Valid())
	assert.Equal(t, date, sig.ComputedFor)
	assert.True(t, sig.Sunrise.Before(sig.Sunset))
}
