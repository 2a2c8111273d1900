package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the project root.
const ConfigFileName = ".gocfg.yml"

// Config holds the export run configuration. Command-line flags override
// values loaded from the config file.
type Config struct {
	// OutDir is the directory that receives cfg.*.json documents.
	OutDir string `yaml:"out_dir"`

	// PerFunction writes one document per function instead of one per module.
	PerFunction bool `yaml:"per_function"`

	// UnwrapDepth bounds callee resolution through indirection layers.
	UnwrapDepth int `yaml:"unwrap_depth"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OutDir:      ".",
		PerFunction: false,
		UnwrapDepth: 8,
	}
}

// Load reads the config file from projectPath if present. A missing file is
// not an error; defaults are returned.
func Load(projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(projectPath, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if cfg.UnwrapDepth <= 0 {
		cfg.UnwrapDepth = DefaultConfig().UnwrapDepth
	}

	return cfg, nil
}
