package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/daynight/internal/output"
	"github.com/jmylchreest/daynight/internal/theme"
)

var themesOpts struct {
	kind     string
	format   string
	template string
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List installed UI and syntax themes",
	Long: `List the themes available to the editor: the bundled core themes plus any
theme packages found in the configured theme directories.

Configured themes are marked with * (day), + (night) or # (both).

Examples:
  # Pick a UI theme with rofi
  daynight themes --kind ui --format dmenu | rofi -dmenu | awk -F' [|] ' '{print $2}'

  # Names only
  daynight themes --template '{{.Name}}'`,
	RunE: runThemes,
}

func init() {
	rootCmd.AddCommand(themesCmd)

	themesCmd.Flags().StringVar(&themesOpts.kind, "kind", "",
		"Only list one kind of theme (ui, syntax)")
	themesCmd.Flags().StringVarP(&themesOpts.format, "format", "f", "plain",
		"Output format (plain, json, dmenu)")
	themesCmd.Flags().StringVar(&themesOpts.template, "template", "",
		"Go template applied to each theme (plain and dmenu formats)")
}

func runThemes(cmd *cobra.Command, args []string) error {
	var kinds []theme.Kind
	switch theme.Kind(themesOpts.kind) {
	case "":
		kinds = []theme.Kind{theme.KindUI, theme.KindSyntax}
	case theme.KindUI, theme.KindSyntax:
		kinds = []theme.Kind{theme.Kind(themesOpts.kind)}
	default:
		return fmt.Errorf("invalid kind %q, must be ui or syntax", themesOpts.kind)
	}

	format := output.FormatType(themesOpts.format)
	if !validFormat(format) {
		return fmt.Errorf("invalid format %q, must be one of %v", themesOpts.format, output.ValidFormats())
	}

	registry := theme.Scan(cfg.Host.ThemeDirs, logger)
	day, night := cfg.Appearance.Daytime(), cfg.Appearance.Nighttime()

	var entries []output.Entry
	for _, kind := range kinds {
		entries = append(entries, output.NewEntries(registry.Themes(kind),
			[]string{day.UI, day.Syntax}, []string{night.UI, night.Syntax})...)
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = themesOpts.template
	opts.ShowKind = len(kinds) > 1
	if err := output.NewFormatter(format, opts).Format(cmd.OutOrStdout(), entries); err != nil {
		return err
	}

	for _, missing := range missingThemes(registry) {
		logger.Warn("configured theme is not installed", "theme", missing)
	}
	return nil
}

func validFormat(format output.FormatType) bool {
	for _, f := range output.ValidFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// missingThemes returns configured themes the registry does not know.
func missingThemes(registry *theme.Registry) []string {
	var missing []string
	check := func(kind theme.Kind, name string) {
		if name != "" && !registry.Has(kind, name) {
			missing = append(missing, name)
		}
	}
	a := cfg.Appearance
	check(theme.KindUI, a.DaytimeUITheme)
	check(theme.KindSyntax, a.DaytimeSyntaxTheme)
	check(theme.KindUI, a.NighttimeUITheme)
	check(theme.KindSyntax, a.NighttimeSyntaxTheme)
	return missing
}
