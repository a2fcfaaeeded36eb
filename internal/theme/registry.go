package theme

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Registry holds the themes found in the configured directories plus the
// bundled set. A package in a directory overrides a bundled one of the
// same name.
type Registry struct {
	themes map[string]Theme
}

// packageManifest is the subset of package.json that identifies a theme.
type packageManifest struct {
	Name  string `json:"name"`
	Theme Kind   `json:"theme"`
}

// Scan builds a Registry from the given directories. Unreadable
// directories and malformed manifests are logged and skipped.
func Scan(dirs []string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{themes: make(map[string]Theme)}
	for _, t := range BundledThemes() {
		r.themes[t.Name] = t
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn("failed to read theme directory", "dir", dir, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			pkgDir := filepath.Join(dir, entry.Name())
			t, ok, err := readManifest(pkgDir)
			if err != nil {
				logger.Debug("skipping package with unreadable manifest", "path", pkgDir, "error", err)
				continue
			}
			if ok {
				r.themes[t.Name] = t
			}
		}
	}

	return r
}

// readManifest returns the theme described by dir/package.json, if any.
func readManifest(dir string) (Theme, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Theme{}, false, nil
		}
		return Theme{}, false, err
	}

	var m packageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Theme{}, false, err
	}
	if m.Name == "" || (m.Theme != KindUI && m.Theme != KindSyntax) {
		return Theme{}, false, nil
	}
	return Theme{Name: m.Name, Kind: m.Theme, Path: dir}, true, nil
}

// Themes returns all themes of the given kind sorted by name.
func (r *Registry) Themes(kind Kind) []Theme {
	var out []Theme
	for _, t := range r.themes {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UI returns the selectable UI themes.
func (r *Registry) UI() []Choice {
	return choices(r.Themes(KindUI))
}

// Syntax returns the selectable syntax themes.
func (r *Registry) Syntax() []Choice {
	return choices(r.Themes(KindSyntax))
}

// Has reports whether a theme of the given kind is installed.
func (r *Registry) Has(kind Kind, name string) bool {
	t, ok := r.themes[name]
	return ok && t.Kind == kind
}

func choices(themes []Theme) []Choice {
	out := make([]Choice, len(themes))
	for i, t := range themes {
		out[i] = Choice{Value: t.Name, Description: t.Title()}
	}
	return out
}
