package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/dbus"
	"github.com/jmylchreest/daynight/internal/engine"
	"github.com/jmylchreest/daynight/internal/store"
)

var toggleCmd = &cobra.Command{
	Use:     "toggle",
	Aliases: []string{"evaluate"},
	Short:   "Re-evaluate and switch themes now",
	Long: `Ask the daemon to evaluate immediately instead of waiting for the next
tick. When the daemon is not running, one evaluation is run in-process.

Use -v to see the signal refresh and decision as they happen.`,
	RunE: runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbus.DefaultEvaluateTimeout)
	defer cancel()

	out := cmd.OutOrStdout()

	client, err := dbus.Connect()
	if err == nil {
		defer client.Close()
		id, err := client.Evaluate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Evaluated by daynightd:", id)

		status, err := client.Status(ctx)
		if err == nil && status.State != nil && status.State.LastEvaluation != nil {
			printEvaluation(out, status.State.LastEvaluation)
		}
		return nil
	}
	if !errors.Is(err, dbus.ErrNotRunning) {
		logger.Debug("D-Bus unavailable", "error", err)
	}

	logger.Info("daemon not running, evaluating locally")
	ev, err := evaluateLocally(ctx)
	if ev != nil {
		printEvaluation(out, ev)
	}
	return err
}

// evaluateLocally runs a single evaluation in-process and saves the state.
func evaluateLocally(ctx context.Context) (*store.Evaluation, error) {
	stateFile := store.NewStateFile(config.StatePath())
	state, err := stateFile.Load()
	if err != nil {
		logger.Warn("failed to load state", "error", err)
	}

	eng, err := engine.New(engine.Options{
		Config: cfg,
		Logger: logger,
		SaveLocation: func(lat, lng float64) error {
			cfg.Location.SetCoordinates(lat, lng)
			return cfg.Save(configFile())
		},
	})
	if err != nil {
		return nil, err
	}
	eng.Restore(state)

	ev, evalErr := eng.Evaluate(ctx, store.TriggerManual)

	snapshot := eng.Snapshot()
	snapshot.UpdatedAt = time.Now()
	if err := stateFile.Save(snapshot); err != nil {
		logger.Warn("failed to save state", "error", err)
	}
	return ev, evalErr
}

func printEvaluation(w io.Writer, ev *store.Evaluation) {
	switch {
	case ev.Skipped:
		fmt.Fprintln(w, "Not configured yet: run `daynight pick` first.")
	case ev.Wrote:
		fmt.Fprintf(w, "Switched to %s (%s)\n", ev.Desired, ev.Phase)
	default:
		fmt.Fprintf(w, "Already on %s (%s)\n", ev.Active, ev.Phase)
	}
	for _, warning := range ev.Warnings {
		fmt.Fprintln(w, "warning:", warning)
	}
}
