// Package config holds engine constants and the optional liquid.yaml /
// liquid.toml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// DefaultConfigFiles are looked up in order by Discover.
var DefaultConfigFiles = []string{"liquid.yaml", "liquid.yml", "liquid.toml"}

// Config is the engine configuration.
type Config struct {
	Backend    string      `yaml:"backend" toml:"backend"`
	Mode       string      `yaml:"mode" toml:"mode"`
	SearchPath []string    `yaml:"search_path" toml:"search_path"`
	MaxSteps   int         `yaml:"max_steps" toml:"max_steps"`
	Cache      CacheConfig `yaml:"cache" toml:"cache"`
	Log        LogConfig   `yaml:"log" toml:"log"`
}

// CacheConfig configures the template caches.
type CacheConfig struct {
	// Path is the sqlite file for compiled programs. Empty disables the store.
	Path string `yaml:"path" toml:"path"`
	// Size bounds the in-memory template cache. Zero means unbounded.
	Size int `yaml:"size" toml:"size"`
}

type LogConfig struct {
	Verbosity int    `yaml:"verbosity" toml:"verbosity"`
	File      string `yaml:"file" toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend:    BackendVM,
		Mode:       ModeStrict,
		SearchPath: []string{"."},
		Cache:      CacheConfig{Size: 300},
	}
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext (".yaml", ".yml" or ".toml").
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Discover loads the first of DefaultConfigFiles found in dir. It returns
// the defaults when none exists.
func Discover(dir string) (*Config, error) {
	for _, name := range DefaultConfigFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendVM, BackendTree:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	switch c.Mode {
	case ModeStrict, ModeWarn, ModeLax:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalidConfig)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: cache.size must not be negative", ErrInvalidConfig)
	}
	return nil
}
