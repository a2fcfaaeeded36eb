// Package solar computes sunrise and sunset for a date and location.
package solar

import (
	"errors"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/jmylchreest/daynight/internal/model"
)

// ErrNoSunriseSunset is returned during polar day or polar night, when the
// sun does not cross the horizon on the given date.
var ErrNoSunriseSunset = errors.New("sun does not rise or set on this date at this location")

// Times returns sunrise and sunset for the given date and coordinates,
// converted to local time.
func Times(date model.Date, lat, lng float64) (rise, set time.Time, err error) {
	rise, set = sunrise.SunriseSunset(lat, lng, date.Year, date.Month, date.Day)
	if rise.IsZero() || set.IsZero() {
		return time.Time{}, time.Time{}, ErrNoSunriseSunset
	}
	return rise.Local(), set.Local(), nil
}

// Signal computes a SolarSignal for the given date and coordinates.
func Signal(date model.Date, lat, lng float64) (model.SolarSignal, error) {
	rise, set, err := Times(date, lat, lng)
	if err != nil {
		return model.SolarSignal{}, err
	}
	return model.SolarSignal{
		Sunrise:     rise,
		Sunset:      set,
		ComputedFor: date,
	}, nil
}
