// Package config loads gcj settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/yuchenkan/gcc-jump/scanner"
)

const (
	// EnvPath names the environment variable holding a config file path.
	EnvPath = "GCJ_CONFIG"

	// DefaultFile is looked up in the working directory when no path is
	// given.
	DefaultFile = ".gcj.toml"
)

// Config holds settings shared by all commands. Command-line flags
// override them.
type Config struct {
	// DB is the store directory.
	DB string `toml:"db"`

	// Trace enables debug logging on stderr.
	Trace bool `toml:"trace"`

	// Dump writes every unit finalized during ingest to stderr.
	Dump bool `toml:"dump"`

	// Section is the object section holding embedded unit ids.
	Section string `toml:"section"`

	// Compact disables JSON indentation.
	Compact bool `toml:"compact"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{Section: scanner.DefaultSection}
}

// Load reads the config at path. With an empty path it tries $GCJ_CONFIG
// and then DefaultFile; a missing default file yields Default(). A path
// given explicitly must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPath)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Section == "" {
		cfg.Section = scanner.DefaultSection
	}
	return cfg, nil
}
