// Package config handles configuration file loading and parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/daynight/internal/model"
)

// Default configuration values.
const (
	DefaultInterval       = 5 * time.Minute
	DefaultGeoTimeout     = 10 * time.Second
	DefaultMinNotifyEvery = time.Minute
	DefaultThemesKey      = "*.core.themes" // Atom keeps global settings under the "*" scope
	DefaultGeolocationURL = "https://maps.googleapis.com/maps/api/browserlocation/json?browser=chromium&sensor=true"

	// MinInterval guards against a zero or runaway ticker.
	MinInterval = 5 * time.Second
)

// Detector names for [system].detector.
const (
	DetectorAuto    = "auto"
	DetectorPortal  = "portal"
	DetectorCommand = "command"
)

// Config represents the daynight configuration.
// Loaded from ~/.config/daynight/config.toml
type Config struct {
	Activation    ActivationConfig    `toml:"activation"`
	Appearance    AppearanceConfig    `toml:"appearance"`
	Location      LocationConfig      `toml:"location"`
	System        SystemConfig        `toml:"system"`
	Host          HostConfig          `toml:"host"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ActivationConfig gates and schedules evaluation.
type ActivationConfig struct {
	Configured bool     `toml:"configured"` // Evaluation is a no-op until set
	Interval   Duration `toml:"interval"`   // e.g. "5m", or 5 for minutes
	Variant    string   `toml:"variant"`    // "solar" or "system"
}

// AppearanceConfig holds the daytime and nighttime theme pairs.
type AppearanceConfig struct {
	DaytimeUITheme       string `toml:"daytime_ui_theme"`
	DaytimeSyntaxTheme   string `toml:"daytime_syntax_theme"`
	NighttimeUITheme     string `toml:"nighttime_ui_theme"`
	NighttimeSyntaxTheme string `toml:"nighttime_syntax_theme"`
}

// Daytime returns the daytime pair.
func (a AppearanceConfig) Daytime() model.ThemePair {
	return model.ThemePair{UI: a.DaytimeUITheme, Syntax: a.DaytimeSyntaxTheme}
}

// Nighttime returns the nighttime pair.
func (a AppearanceConfig) Nighttime() model.ThemePair {
	return model.ThemePair{UI: a.NighttimeUITheme, Syntax: a.NighttimeSyntaxTheme}
}

// LocationConfig holds coordinates and geolocation settings.
type LocationConfig struct {
	Latitude       *float64 `toml:"latitude,omitempty"`  // Unset means unknown
	Longitude      *float64 `toml:"longitude,omitempty"` // Unset means unknown
	Update         bool     `toml:"update"`              // Geolocate and write coordinates back
	GeolocationURL string   `toml:"geolocation_url"`
	Timeout        Duration `toml:"timeout"`
}

// Known reports whether both coordinates are set.
func (l LocationConfig) Known() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// SetCoordinates stores a latitude/longitude pair.
func (l *LocationConfig) SetCoordinates(lat, lng float64) {
	l.Latitude = &lat
	l.Longitude = &lng
}

// SystemConfig configures the operating system dark-mode query.
type SystemConfig struct {
	Detector  string   `toml:"detector"`   // "auto", "portal", or "command"
	Command   string   `toml:"command"`    // Executable for the command detector
	Args      []string `toml:"args"`       // Arguments to the command
	DarkValue string   `toml:"dark_value"` // Trimmed stdout that means dark
}

// HostConfig describes the editor settings file that holds the active themes.
type HostConfig struct {
	SettingsPath string   `toml:"settings_path"` // .json, .yaml/.yml or .toml
	ThemesKey    string   `toml:"themes_key"`    // Dotted key of a [ui, syntax] list
	UIKey        string   `toml:"ui_key"`        // Alternative: separate ui key
	SyntaxKey    string   `toml:"syntax_key"`    // Alternative: separate syntax key
	ThemeDirs    []string `toml:"theme_dirs"`    // Directories of installed theme packages
}

// NotificationsConfig controls user-visible warnings.
type NotificationsConfig struct {
	Enabled     bool     `toml:"enabled"`
	MinInterval Duration `toml:"min_interval"` // Same warning is not repeated within this window
}

// DefaultSystemConfig returns the dark-mode query defaults for this platform.
func DefaultSystemConfig() SystemConfig {
	return SystemConfigFor(runtime.GOOS)
}

// SystemConfigFor returns the dark-mode query defaults for goos. The query
// must print something in light mode too: a command that fails there is
// indistinguishable from a broken one.
func SystemConfigFor(goos string) SystemConfig {
	if goos == "darwin" {
		return SystemConfig{
			Detector:  DetectorCommand,
			Command:   "osascript",
			Args:      []string{"-e", `tell application "System Events" to tell appearance preferences to get dark mode`},
			DarkValue: "true",
		}
	}
	return SystemConfig{
		Detector:  DetectorAuto,
		Command:   "gsettings",
		Args:      []string{"get", "org.gnome.desktop.interface", "color-scheme"},
		DarkValue: "'prefer-dark'",
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Activation: ActivationConfig{
			Configured: false,
			Interval:   Duration(DefaultInterval),
			Variant:    string(model.VariantSolar),
		},
		Location: LocationConfig{
			Update:         false,
			GeolocationURL: DefaultGeolocationURL,
			Timeout:        Duration(DefaultGeoTimeout),
		},
		System: DefaultSystemConfig(),
		Host: HostConfig{
			SettingsPath: defaultSettingsPath(),
			ThemesKey:    DefaultThemesKey,
			ThemeDirs:    defaultThemeDirs(),
		},
		Notifications: NotificationsConfig{
			Enabled:     true,
			MinInterval: Duration(DefaultMinNotifyEvery),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "daynight", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "daynight")
}

// StatePath returns the path to the persisted engine state.
func StatePath() string {
	return filepath.Join(DataPath(), "state.json")
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".atom", "config.json")
}

func defaultThemeDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".atom", "packages")}
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Host.SettingsPath = expandPath(cfg.Host.SettingsPath)
	for i, dir := range cfg.Host.ThemeDirs {
		cfg.Host.ThemeDirs[i] = expandPath(dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(model.ValidVariants(), model.Variant(c.Activation.Variant)) {
		return fmt.Errorf("invalid variant %q, must be one of: %v", c.Activation.Variant, model.ValidVariants())
	}

	if c.Activation.Interval.Duration() < MinInterval {
		return fmt.Errorf("interval must be at least %s, got %s", MinInterval, c.Activation.Interval.Duration())
	}

	if c.Location.Latitude != nil && (*c.Location.Latitude < -90 || *c.Location.Latitude > 90) {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", *c.Location.Latitude)
	}
	if c.Location.Longitude != nil && (*c.Location.Longitude < -180 || *c.Location.Longitude > 180) {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", *c.Location.Longitude)
	}

	switch c.System.Detector {
	case DetectorAuto, DetectorPortal, DetectorCommand:
	default:
		return fmt.Errorf("invalid detector %q, must be one of: auto, portal, command", c.System.Detector)
	}

	if (c.Host.UIKey == "") != (c.Host.SyntaxKey == "") {
		return errors.New("ui_key and syntax_key must be set together")
	}
	if c.Host.UIKey == "" && c.Host.ThemesKey == "" {
		return errors.New("either themes_key or ui_key/syntax_key must be set")
	}

	if c.Activation.Configured {
		if c.Host.SettingsPath == "" {
			return errors.New("settings_path is required once configured")
		}
		if !c.Appearance.Daytime().Complete() || !c.Appearance.Nighttime().Complete() {
			return errors.New("all four appearance themes are required once configured")
		}
	}

	return nil
}

// Variant returns the configured decision variant.
func (c *Config) Variant() model.Variant {
	return model.Variant(c.Activation.Variant)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
