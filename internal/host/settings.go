// Package host reads and writes the editor settings file that holds
// the active theme pair.
package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/model"
)

// Format is the encoding of a settings file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor returns the format implied by a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported settings format %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Settings is an editor settings file. Keys are dotted paths; a key that
// exists verbatim at a level (e.g. "workbench.colorTheme") wins over
// descending into nested tables.
type Settings struct {
	mu sync.Mutex

	path   string
	format Format

	themesKey string
	uiKey     string
	syntaxKey string
}

// NewSettings creates a Settings for the configured host file.
func NewSettings(cfg config.HostConfig) (*Settings, error) {
	if cfg.SettingsPath == "" {
		return nil, errors.New("no settings path configured")
	}
	format, err := FormatFor(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	return &Settings{
		path:      cfg.SettingsPath,
		format:    format,
		themesKey: cfg.ThemesKey,
		uiKey:     cfg.UIKey,
		syntaxKey: cfg.SyntaxKey,
	}, nil
}

// Path returns the settings file path.
func (s *Settings) Path() string {
	return s.path
}

// ActivePair returns the theme pair currently set in the file.
// A missing file or key yields the zero pair.
func (s *Settings) ActivePair() (model.ThemePair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return model.ThemePair{}, err
	}

	if s.splitKeys() {
		ui, _ := lookup(doc, s.uiKey).(string)
		syntax, _ := lookup(doc, s.syntaxKey).(string)
		return model.ThemePair{UI: ui, Syntax: syntax}, nil
	}

	raw := lookup(doc, s.themesKey)
	if raw == nil {
		return model.ThemePair{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return model.ThemePair{}, fmt.Errorf("%s in %s is %T, want a list", s.themesKey, s.path, raw)
	}
	themes := make([]string, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok {
			return model.ThemePair{}, fmt.Errorf("%s in %s contains non-string %T", s.themesKey, s.path, item)
		}
		themes = append(themes, name)
	}
	if len(themes) == 0 {
		return model.ThemePair{}, nil
	}
	return model.PairFromSlice(themes)
}

// SetActivePair writes the pair, preserving every other key in the file.
func (s *Settings) SetActivePair(pair model.ThemePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if s.splitKeys() {
		assign(doc, s.uiKey, pair.UI)
		assign(doc, s.syntaxKey, pair.Syntax)
	} else {
		assign(doc, s.themesKey, []any{pair.UI, pair.Syntax})
	}

	return s.save(doc)
}

func (s *Settings) splitKeys() bool {
	return s.uiKey != "" && s.syntaxKey != ""
}

func (s *Settings) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	doc := map[string]any{}
	switch s.format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Settings) save(doc map[string]any) error {
	var (
		data []byte
		err  error
	)
	switch s.format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	case FormatTOML:
		data, err = toml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// lookup resolves a dotted key.
func lookup(doc map[string]any, key string) any {
	if v, ok := doc[key]; ok {
		return v
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil
	}
	child, ok := doc[head].(map[string]any)
	if !ok {
		return nil
	}
	return lookup(child, rest)
}

// assign sets a dotted key, creating intermediate tables as needed.
func assign(doc map[string]any, key string, value any) {
	if _, ok := doc[key]; ok {
		doc[key] = value
		return
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		doc[key] = value
		return
	}
	child, ok := doc[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		doc[head] = child
	}
	assign(child, rest, value)
}
