// Package output provides output formatters for theme listings.
package output

import (
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/daynight/internal/theme"
)

// Role marks a theme that is part of a configured pair.
type Role string

const (
	RoleDay   Role = "day"
	RoleNight Role = "night"
	RoleBoth  Role = "both"
)

// Entry is one theme as listed by `daynight themes`.
type Entry struct {
	Kind    theme.Kind `json:"kind"`
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Role    Role       `json:"role,omitempty"`
	Bundled bool       `json:"bundled"`
	Path    string     `json:"path,omitempty"`
}

// Marker returns the single-character role marker used by text formats.
func (e Entry) Marker() string {
	switch e.Role {
	case RoleDay:
		return "*"
	case RoleNight:
		return "+"
	case RoleBoth:
		return "#"
	default:
		return " "
	}
}

// NewEntries builds entries for themes, marking the ones in the given pairs.
func NewEntries(themes []theme.Theme, day, night []string) []Entry {
	entries := make([]Entry, len(themes))
	for i, t := range themes {
		e := Entry{
			Kind:    t.Kind,
			Name:    t.Name,
			Title:   t.Title(),
			Bundled: t.Bundled,
			Path:    t.Path,
		}
		inDay, inNight := contains(day, t.Name), contains(night, t.Name)
		switch {
		case inDay && inNight:
			e.Role = RoleBoth
		case inDay:
			e.Role = RoleDay
		case inNight:
			e.Role = RoleNight
		}
		entries[i] = e
	}
	return entries
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Formatter formats theme entries for output.
type Formatter interface {
	// Format writes formatted entries to the writer.
	Format(w io.Writer, entries []Entry) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatPlain FormatType = "plain"
)

// ValidFormats lists the accepted --format values.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatDmenu}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for dmenu/plain format
	ShowKind  bool   // Prefix each line with the theme kind
	Separator string // Field separator for dmenu format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		Separator: " | ",
	}
}

// parseTemplate parses a custom line template; an invalid one is ignored.
func parseTemplate(name, text string) *template.Template {
	if text == "" {
		return nil
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil
	}
	return tmpl
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": theme.Title,
	}
}
