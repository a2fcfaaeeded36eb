package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// PlainFormatter formats entries as an aligned table.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{
		opts:     opts,
		template: parseTemplate("plain", opts.Template),
	}
}

// Format writes entries as plain text, one per line.
func (f *PlainFormatter) Format(w io.Writer, entries []Entry) error {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}

	for _, e := range entries {
		if f.template != nil {
			if err := f.template.Execute(w, e); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			continue
		}

		var sb strings.Builder
		sb.WriteString(e.Marker())
		sb.WriteString(" ")
		if f.opts.ShowKind {
			sb.WriteString(fmt.Sprintf("%-7s", e.Kind))
		}
		sb.WriteString(fmt.Sprintf("%-*s  %s", width, e.Name, e.Title))
		if e.Bundled {
			sb.WriteString(" (bundled)")
		}
		sb.WriteString("\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
