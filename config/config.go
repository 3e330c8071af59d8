package config

import (
	"os"
	"path/filepath"

	"github.com/m4xw311/scribe/errors"
	"gopkg.in/yaml.v3"
)

// Dir is the per-user and per-project directory holding scribe's files.
const Dir = ".scribe"

type Mode string

const (
	// ModeAuto applies every workspace action as soon as the answer is final.
	ModeAuto Mode = "auto"
	// ModePrompt asks the host to confirm each action before it is applied.
	ModePrompt Mode = "prompt"
)

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type Log struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Executable        string           `yaml:"executable"`
	Model             string           `yaml:"model"`
	IncludeContext    bool             `yaml:"include_context"`
	ContextCharLimit  int              `yaml:"context_char_limit"`
	ReadCharLimit     int              `yaml:"read_char_limit"`
	ListingLimit      int              `yaml:"listing_limit"`
	MaxReadRounds     int              `yaml:"max_read_rounds"`
	Mode              Mode             `yaml:"mode"`
	DocumentExtension string           `yaml:"document_extension"`
	FilesystemAccess  FilesystemAccess `yaml:"filesystem_access"`
	Log               Log              `yaml:"log"`
}

// Default returns the configuration used when no file overrides a setting.
func Default() *Config {
	return &Config{
		Executable:        "claude",
		IncludeContext:    true,
		ContextCharLimit:  8000,
		ReadCharLimit:     20000,
		ListingLimit:      200,
		MaxReadRounds:     5,
		Mode:              ModePrompt,
		DocumentExtension: ".md",
		FilesystemAccess: FilesystemAccess{
			Hidden: []string{Dir, Dir + "/**", ".trash", ".trash/**"},
		},
		Log: Log{
			File:       filepath.Join(Dir, "scribe.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig loads configuration from the user's home directory and the given
// workspace directory, with the latter taking precedence. An empty workDir
// means the current working directory.
func LoadConfig(workDir string) (*Config, error) {
	cfg := Default()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		if err := loadIfExists(filepath.Join(home, Dir, "config.yaml"), cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading user config")
		}
	}

	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return nil, errors.Wrapf(err, "could not get working directory")
		}
	}
	if err := loadIfExists(filepath.Join(workDir, Dir, "config.yaml"), cfg); err != nil {
		return nil, errors.Wrapf(err, "error loading project config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadIfExists(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// Unmarshal only overwrites fields present in the YAML, so the project
	// file layers over the user file which layers over the defaults. Lists
	// are replaced, not merged.
	return yaml.Unmarshal(data, cfg)
}

// Validate rejects settings the rest of the system cannot work with.
func (c *Config) Validate() error {
	if c.Executable == "" {
		return errors.New("executable must not be empty")
	}
	switch c.Mode {
	case ModeAuto, ModePrompt:
	default:
		return errors.New("invalid mode %q: must be %q or %q", c.Mode, ModeAuto, ModePrompt)
	}
	for name, v := range map[string]int{
		"context_char_limit": c.ContextCharLimit,
		"read_char_limit":    c.ReadCharLimit,
		"listing_limit":      c.ListingLimit,
		"max_read_rounds":    c.MaxReadRounds,
	} {
		if v <= 0 {
			return errors.New("%s must be positive, got %d", name, v)
		}
	}
	return nil
}
