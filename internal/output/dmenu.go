package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// DmenuFormatter formats entries for dmenu/rofi/fuzzel: one line per
// theme, title first, package name last so it can be cut from the choice.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	return &DmenuFormatter{
		opts:     opts,
		template: parseTemplate("dmenu", opts.Template),
	}
}

// Format writes entries in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, f.formatLine(e)); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single entry line.
func (f *DmenuFormatter) formatLine(e Entry) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, e); err == nil {
			return buf.String()
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowKind {
		parts = append(parts, string(e.Kind))
	}
	title := e.Title
	if e.Role != "" {
		title += " (" + string(e.Role) + ")"
	}
	parts = append(parts, title, e.Name)

	return strings.Join(parts, sep)
}
