package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/daynight/internal/theme"
	"github.com/jmylchreest/daynight/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose the daytime and nighttime themes interactively",
	Long: `Walk through the four theme choices (daytime UI, daytime syntax,
nighttime UI, nighttime syntax) and save them to the configuration file.
Saving also marks daynight as configured, which enables switching.

Key bindings:
  j/k, ↑/↓    Navigate list
  /           Filter
  enter       Choose
  esc         Previous step
  ?           Show help
  q           Quit without saving`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	registry := theme.Scan(cfg.Host.ThemeDirs, logger)

	sel, err := tui.Run(registry, cfg.Appearance)
	if err != nil {
		return err
	}
	if sel == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled, nothing saved.")
		return nil
	}

	cfg.Appearance.DaytimeUITheme = sel.Daytime.UI
	cfg.Appearance.DaytimeSyntaxTheme = sel.Daytime.Syntax
	cfg.Appearance.NighttimeUITheme = sel.Nighttime.UI
	cfg.Appearance.NighttimeSyntaxTheme = sel.Nighttime.Syntax
	cfg.Activation.Configured = true

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(configFile()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daytime:   %s / %s\n", theme.Title(sel.Daytime.UI), theme.Title(sel.Daytime.Syntax))
	fmt.Fprintf(out, "Nighttime: %s / %s\n", theme.Title(sel.Nighttime.UI), theme.Title(sel.Nighttime.Syntax))
	fmt.Fprintln(out, "Saved", configFile())
	return nil
}
