package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/geo"
	"github.com/jmylchreest/daynight/internal/model"
	"github.com/jmylchreest/daynight/internal/solar"
	"github.com/jmylchreest/daynight/internal/store"
)

var sunOpts struct {
	date   string
	locate bool
}

var sunCmd = &cobra.Command{
	Use:   "sun",
	Short: "Print sunrise and sunset for the configured location",
	Long: `Print sunrise and sunset for a date (default today).

The location comes from the configuration, then from the daemon's saved
state. Use --locate to look it up with the geolocation service instead.`,
	RunE: runSun,
}

func init() {
	rootCmd.AddCommand(sunCmd)

	sunCmd.Flags().StringVar(&sunOpts.date, "date", "",
		"Date as YYYY-MM-DD (default today)")
	sunCmd.Flags().BoolVar(&sunOpts.locate, "locate", false,
		"Look up the location instead of using the configured one")
}

func runSun(cmd *cobra.Command, args []string) error {
	now := time.Now()
	day := now
	if sunOpts.date != "" {
		var err error
		day, err = time.ParseInLocation(time.DateOnly, sunOpts.date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", sunOpts.date, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Location.Timeout.Duration()+time.Second)
	defer cancel()

	lat, lng, err := sunLocation(ctx)
	if err != nil {
		return err
	}

	date := model.DateOf(day)
	rise, set, err := solar.Times(date, lat, lng)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "location: %.4f, %.4f\n", lat, lng)
	fmt.Fprintf(out, "date:     %s\n", date)
	fmt.Fprintf(out, "sunrise:  %s (%s)\n", rise.Format("15:04"), humanize.RelTime(rise, now, "ago", "from now"))
	fmt.Fprintf(out, "sunset:   %s (%s)\n", set.Format("15:04"), humanize.RelTime(set, now, "ago", "from now"))
	fmt.Fprintf(out, "daylight: %s\n", set.Sub(rise).Round(time.Minute))
	return nil
}

func sunLocation(ctx context.Context) (float64, float64, error) {
	if !sunOpts.locate {
		if cfg.Location.Known() {
			return *cfg.Location.Latitude, *cfg.Location.Longitude, nil
		}
		state, err := store.NewStateFile(config.StatePath()).Load()
		if err == nil && state.Latitude != nil && state.Longitude != nil {
			return *state.Latitude, *state.Longitude, nil
		}
	}

	loc, err := geo.NewClient(cfg.Location.GeolocationURL, cfg.Location.Timeout.Duration()).Locate(ctx)
	if err != nil {
		return 0, 0, err
	}
	return loc.Lat, loc.Lng, nil
}
