// Package config loads the kvtree configuration file and merges it over the
// embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// FileName is the config file name looked up under the config directory.
const FileName = "config.yaml"

// ErrUnknownTheme is returned when ui.theme.default names a missing theme.
var ErrUnknownTheme = errors.New("unknown theme")

// Tree holds tree construction settings.
type Tree struct {
	MaxDepth        int   `yaml:"maxDepth"`
	AutoExpandLimit int   `yaml:"autoExpandLimit"`
	ExpandAll       *bool `yaml:"expandAll,omitempty"`
}

// ThemeColors holds ANSI or hex color strings for outline rows. Empty
// strings keep the renderer defaults.
type ThemeColors struct {
	Name        string `yaml:"name"`
	String      string `yaml:"string"`
	Number      string `yaml:"number"`
	Bool        string `yaml:"bool"`
	Null        string `yaml:"null"`
	Container   string `yaml:"container"`
	Placeholder string `yaml:"placeholder"`
	Type        string `yaml:"type"`
	SelectedBG  string `yaml:"selected_bg"`
}

// ThemeSelection names the active theme.
type ThemeSelection struct {
	Default string `yaml:"default"`
}

// UI holds terminal UI settings.
type UI struct {
	Theme  ThemeSelection         `yaml:"theme"`
	Themes map[string]ThemeColors `yaml:"themes"`
}

// Config is the merged configuration.
type Config struct {
	Tree Tree `yaml:"tree"`
	UI   UI   `yaml:"ui"`
}

// DefaultConfigYAML returns a copy of the embedded default config.
func DefaultConfigYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default returns the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, fmt.Errorf("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns explicit when set, otherwise the config file under
// $XDG_CONFIG_HOME/kvtree (or ~/.config/kvtree) when it exists, otherwise "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, "kvtree", FileName)
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", "kvtree", FileName)
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load returns the defaults merged with the file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Merge(cfg, data)
}

// Merge decodes data and lays its set fields over base.
func Merge(base Config, data []byte) (Config, error) {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("decode config: %w", err)
	}
	out := base
	if file.Tree.MaxDepth > 0 {
		out.Tree.MaxDepth = file.Tree.MaxDepth
	}
	if file.Tree.AutoExpandLimit > 0 {
		out.Tree.AutoExpandLimit = file.Tree.AutoExpandLimit
	}
	if file.Tree.ExpandAll != nil {
		out.Tree.ExpandAll = file.Tree.ExpandAll
	}
	if file.UI.Theme.Default != "" {
		out.UI.Theme.Default = file.UI.Theme.Default
	}
	if len(file.UI.Themes) > 0 {
		themes := make(map[string]ThemeColors, len(base.UI.Themes)+len(file.UI.Themes))
		for name, th := range base.UI.Themes {
			themes[name] = th
		}
		for name, th := range file.UI.Themes {
			themes[name] = mergeTheme(themes[name], th)
		}
		out.UI.Themes = themes
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

func mergeTheme(base, over ThemeColors) ThemeColors {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Name, over.Name)
	set(&base.String, over.String)
	set(&base.Number, over.Number)
	set(&base.Bool, over.Bool)
	set(&base.Null, over.Null)
	set(&base.Container, over.Container)
	set(&base.Placeholder, over.Placeholder)
	set(&base.Type, over.Type)
	set(&base.SelectedBG, over.SelectedBG)
	return base
}

// Validate checks that the selected theme exists.
func (c Config) Validate() error {
	if c.UI.Theme.Default == "" {
		return nil
	}
	if _, ok := c.UI.Themes[c.UI.Theme.Default]; !ok {
		return fmt.Errorf("%w %q (available: %v)", ErrUnknownTheme, c.UI.Theme.Default, c.ThemeNames())
	}
	return nil
}

// ActiveTheme returns the colors of the selected theme.
func (c Config) ActiveTheme() ThemeColors {
	return c.UI.Themes[c.UI.Theme.Default]
}

// ThemeNames returns the configured theme names, sorted.
func (c Config) ThemeNames() []string {
	out := make([]string, 0, len(c.UI.Themes))
	for k := range c.UI.Themes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
