package theme

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind is the kind of theme a package provides.
type Kind string

const (
	KindUI     Kind = "ui"
	KindSyntax Kind = "syntax"
)

// Theme is an installed theme package.
type Theme struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"theme"`
	Path    string `json:"-"` // Package directory (empty for bundled)
	Bundled bool   `json:"-"`
}

// Title returns the human-readable title for the theme.
func (t Theme) Title() string {
	return Title(t.Name)
}

// Choice is a selectable value with a display description.
type Choice struct {
	Value       string
	Description string
}

var (
	kindSuffix  = regexp.MustCompile(`-(ui|syntax)`)
	themeSuffix = regexp.MustCompile(`-theme$`)
)

// Title turns a theme package name into a title:
// "one-dark-ui" -> "One Dark", "base16-tomorrow-dark-theme" -> "Base16 Tomorrow Dark",
// "solarizedDark-syntax" -> "Solarized Dark".
func Title(name string) string {
	name = kindSuffix.ReplaceAllString(name, "")
	name = themeSuffix.ReplaceAllString(name, "")
	return undasherize(uncamelcase(name))
}

// uncamelcase inserts a space before each upper-case letter that follows a
// lower-case letter or digit.
func uncamelcase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// undasherize splits on dashes, underscores and spaces and capitalizes each word.
func undasherize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
