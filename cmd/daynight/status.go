package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/dbus"
	"github.com/jmylchreest/daynight/internal/host"
	"github.com/jmylchreest/daynight/internal/store"
	"github.com/jmylchreest/daynight/internal/theme"
)

var statusOpts struct {
	json bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what daynight is doing",
	Long: `Show the daemon's state: the active variant, the cached sunrise and sunset
or dark-mode value, and the last evaluation.

The running daemon is asked over D-Bus. When it is not running the last
state it saved is shown instead.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false,
		"Output the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, running, err := fetchStatus(ctx)
	if err != nil {
		return err
	}

	if statusOpts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	printStatus(cmd.OutOrStdout(), status, running, time.Now())
	return nil
}

// fetchStatus asks the daemon, falling back to the state file.
func fetchStatus(ctx context.Context) (*store.Status, bool, error) {
	client, err := dbus.Connect()
	if err == nil {
		defer client.Close()
		status, err := client.Status(ctx)
		if err == nil {
			return status, true, nil
		}
		logger.Warn("daemon status unavailable, reading state file", "error", err)
	} else if !errors.Is(err, dbus.ErrNotRunning) {
		logger.Debug("D-Bus unavailable", "error", err)
	}

	state, err := store.NewStateFile(config.StatePath()).Load()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state: %w", err)
	}
	return &store.Status{State: state}, false, nil
}

func printStatus(w io.Writer, status *store.Status, running bool, now time.Time) {
	if running {
		fmt.Fprintf(w, "daynightd:       running (pid %d, %s, started %s)\n",
			status.PID, status.Version, humanize.RelTime(status.StartedAt, now, "ago", "from now"))
	} else {
		fmt.Fprintln(w, "daynightd:       not running")
	}

	fmt.Fprintf(w, "configured:      %t\n", cfg.Activation.Configured)
	fmt.Fprintf(w, "variant:         %s\n", cfg.Variant())
	fmt.Fprintf(w, "daytime:         %s\n", cfg.Appearance.Daytime())
	fmt.Fprintf(w, "nighttime:       %s\n", cfg.Appearance.Nighttime())

	if settings, err := host.NewSettings(cfg.Host); err == nil {
		if active, err := settings.ActivePair(); err == nil {
			fmt.Fprintf(w, "active:          %s (%s / %s)\n", active, theme.Title(active.UI), theme.Title(active.Syntax))
		} else {
			fmt.Fprintf(w, "active:          unknown (%v)\n", err)
		}
	}

	state := status.State
	if state == nil {
		state = store.DefaultState()
	}

	if state.Latitude != nil && state.Longitude != nil {
		fmt.Fprintf(w, "location:        %.4f, %.4f\n", *state.Latitude, *state.Longitude)
	}
	if state.Solar != nil && state.Solar.Valid() {
		fmt.Fprintf(w, "sunrise:         %s (%s)\n", state.Solar.Sunrise.Format("15:04"), humanize.RelTime(state.Solar.Sunrise, now, "ago", "from now"))
		fmt.Fprintf(w, "sunset:          %s (%s)\n", state.Solar.Sunset.Format("15:04"), humanize.RelTime(state.Solar.Sunset, now, "ago", "from now"))
		fmt.Fprintf(w, "computed for:    %s\n", state.Solar.ComputedFor)
	}
	if state.System != nil {
		fmt.Fprintf(w, "dark mode:       %t\n", state.System.IsDark)
	}

	if ev := state.LastEvaluation; ev != nil {
		fmt.Fprintf(w, "last evaluation: %s (%s, %s)\n", humanize.RelTime(ev.At, now, "ago", "from now"), ev.Trigger, ev.ID)
		switch {
		case ev.Skipped:
			fmt.Fprintln(w, "  skipped: not configured")
		case ev.Wrote:
			fmt.Fprintf(w, "  switched to %s (%s)\n", ev.Desired, ev.Phase)
		default:
			fmt.Fprintf(w, "  no change (%s)\n", ev.Phase)
		}
		for _, warning := range ev.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		if ev.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", ev.Error)
		}
	}

	if running && !status.NextEvaluation.IsZero() {
		fmt.Fprintf(w, "next evaluation: %s (every %s)\n", humanize.RelTime(status.NextEvaluation, now, "ago", "from now"), status.Interval)
	}
}
