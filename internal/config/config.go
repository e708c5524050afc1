// Package config manages conkit configuration and filesystem paths.
//
// Configuration lives in a TOML file under the conkit root, which can
// be customized via environment variables. The default root is
// ~/.conkit/ containing config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/filter"
	"github.com/mtrellis/conkit/internal/vt"
)

// Paths contains the filesystem paths used by conkit.
type Paths struct {
	// Root is the base directory for conkit data (default: ~/.conkit)
	Root string

	// Config is the path to the config file
	Config string
}

// DefaultPaths returns the default paths for conkit.
// Paths can be overridden with environment variables:
// - CONKIT_ROOT: Override the root directory
// - CONKIT_CONFIG: Override the config file path directly
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("CONKIT_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".conkit")
	}

	cfg := os.Getenv("CONKIT_CONFIG")
	if cfg == "" {
		cfg = filepath.Join(root, "config.toml")
	}

	return &Paths{
		Root:   root,
		Config: cfg,
	}, nil
}

// EnsureDirectories creates the root directory if it doesn't exist.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.Root, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.Root, err)
	}
	return nil
}

// Config holds all application configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	Path   PathConfig   `toml:"path"`

	// Rules are named colour-rule presets usable with `conkit list
	// --preset`. Each value is a colour expression such as
	// "fa&d,fg=blue;fe=.log,fg=yellow".
	Rules map[string]string `toml:"rules"`
}

// OutputConfig holds output pipeline options.
type OutputConfig struct {
	// LineEnding is the literal written for normalized line endings,
	// spelled as "crlf", "lf" or "cr".
	LineEnding string `toml:"line_ending"`

	// DefaultColor overrides the sampled process default colour. Uses
	// the colour-spec syntax, e.g. "white+bg_blue".
	DefaultColor string `toml:"default_color"`

	// Encoding selects the file output encoding: "utf8", "utf16" or a
	// code page number such as "850". Empty keeps the platform default.
	Encoding string `toml:"encoding"`
}

// PathConfig holds resolver options.
type PathConfig struct {
	// Ext overrides the executable extension list, semicolon-delimited
	// like PATHEXT.
	Ext string `toml:"ext"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			LineEnding: "crlf",
		},
		Rules: map[string]string{},
	}
}

// Load loads config from file, falling back to defaults. A missing
// file is not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	paths, err := DefaultPaths()
	if err != nil {
		return cfg, nil
	}
	return loadFrom(paths.Config, cfg)
}

func loadFrom(path string, cfg *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves config to file, creating the root directory first.
func Save(cfg *Config) error {
	paths, err := DefaultPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(paths.Config, data, 0644)
}

// lineEndings maps the config spelling to the written literal.
var lineEndings = map[string]string{
	"crlf": "\r\n",
	"lf":   "\n",
	"cr":   "\r",
}

// Apply pushes the loaded settings into the process-wide holders:
// the line-ending literal and the default colour override. Settings
// left empty keep their defaults.
func (c *Config) Apply() error {
	if c.Output.LineEnding != "" {
		literal, ok := lineEndings[c.Output.LineEnding]
		if !ok {
			return fmt.Errorf("config: unknown line ending %q", c.Output.LineEnding)
		}
		vt.SetLineEnding(literal)
	}
	if c.Output.DefaultColor != "" {
		color, err := console.ParseColor(c.Output.DefaultColor)
		if err != nil {
			return fmt.Errorf("config: bad default colour: %w", err)
		}
		console.SetDefaultColor(color.Resolve(console.FallbackDefault))
	}
	return nil
}

// Rule returns the named colour-rule preset compiled, or an error if
// the name is unknown or the expression malformed.
func (c *Config) Rule(name string) (*filter.ColorFilter, error) {
	expr, ok := c.Rules[name]
	if !ok {
		return nil, fmt.Errorf("config: no colour rule named %q", name)
	}
	cf, err := filter.CompileColor(expr)
	if err != nil {
		return nil, fmt.Errorf("config: rule %q: %w", name, err)
	}
	return cf, nil
}
