package theme

import (
	_ "embed"
	"encoding/json"
)

// bundledJSON lists the themes that ship with the editor and are always
// available even when no theme directory is readable.
//
//go:embed bundled.json
var bundledJSON []byte

// BundledThemes returns the built-in themes.
func BundledThemes() []Theme {
	var themes []Theme
	if err := json.Unmarshal(bundledJSON, &themes); err != nil {
		return nil
	}
	for i := range themes {
		themes[i].Bundled = true
	}
	return themes
}
