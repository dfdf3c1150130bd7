// Package config handles configuration loading and management for swarmdoc.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for swarmdoc.
type Config struct {
	Content   ContentConfig   `mapstructure:"content"`
	Run       RunConfig       `mapstructure:"run"`
	Locks     LocksConfig     `mapstructure:"locks"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gate      GateConfig      `mapstructure:"gate"`
	Commit    CommitConfig    `mapstructure:"commit"`
}

// ContentConfig describes the content tree that enumeration scans.
type ContentConfig struct {
	// Root is the directory scanned for processable files.
	Root string `mapstructure:"root"`
	// Extensions lists the file extensions that count as tasks.
	Extensions []string `mapstructure:"extensions"`
	// ExcludeNames lists basenames skipped during enumeration.
	ExcludeNames []string `mapstructure:"exclude_names"`
}

// RunConfig holds run-level settings.
type RunConfig struct {
	// Workers is the number of worker processes spawned per run.
	Workers int `mapstructure:"workers"`
	// ProgressFile is the shared progress file path.
	ProgressFile string `mapstructure:"progress_file"`
	// PromptFile holds the instruction payload handed to the processor.
	PromptFile string `mapstructure:"prompt_file"`
}

// LocksConfig holds lock namespace settings.
type LocksConfig struct {
	// Dir is the lock namespace directory.
	Dir string `mapstructure:"dir"`
	// MaxAge is the age past which a lock is reported as stale.
	MaxAge time.Duration `mapstructure:"max_age"`
}

// ProcessorConfig configures the external task processor.
type ProcessorConfig struct {
	// Command is the shell command run once per claimed task. The task is
	// passed through SWARMDOC_TASK, SWARMDOC_TASK_PATH and
	// SWARMDOC_INSTRUCTIONS environment variables.
	Command string `mapstructure:"command"`
	// Timeout bounds a single processor invocation. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// GateConfig configures the quality gate run before committing.
type GateConfig struct {
	// Command is the shell command whose exit status gates the commit.
	Command string `mapstructure:"command"`
}

// CommitConfig configures the final commit action.
type CommitConfig struct {
	// Message is the commit message used when the gate passes.
	Message string `mapstructure:"message"`
	// Paths lists the paths staged before committing. Empty means the
	// content root.
	Paths []string `mapstructure:"paths"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
// 1. Environment variables (SWARMDOC_*)
// 2. Project config (.swarmdoc.yaml in current directory or parent)
// 3. User config (~/.config/swarmdoc/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides, e.g. SWARMDOC_RUN_WORKERS=8.
	v.SetEnvPrefix("SWARMDOC")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("content.root", "docs")
	v.SetDefault("content.extensions", []string{".md"})
	v.SetDefault("content.exclude_names", []string{"index.md"})

	v.SetDefault("run.workers", 4)
	v.SetDefault("run.progress_file", ".swarmdoc_progress.json")
	v.SetDefault("run.prompt_file", ".swarmdoc_prompt.md")

	v.SetDefault("locks.dir", "docs/.locks")
	v.SetDefault("locks.max_age", "1h")

	v.SetDefault("processor.command", "")
	v.SetDefault("processor.timeout", "0")

	v.SetDefault("gate.command", "make check")

	v.SetDefault("commit.message", "Review: parallel content review complete")
	v.SetDefault("commit.paths", []string{})
}

// getUserConfigDir returns the XDG config directory for swarmdoc.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarmdoc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarmdoc")
	}
	return filepath.Join(home, ".config", "swarmdoc")
}

// findProjectConfig searches for .swarmdoc.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".swarmdoc.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Content: ContentConfig{
			Root:         "docs",
			Extensions:   []string{".md"},
			ExcludeNames: []string{"index.md"},
		},
		Run: RunConfig{
			Workers:      4,
			ProgressFile: ".swarmdoc_progress.json",
			PromptFile:   ".swarmdoc_prompt.md",
		},
		Locks: LocksConfig{
			Dir:    "docs/.locks",
			MaxAge: time.Hour,
		},
		Gate: GateConfig{
			Command: "make check",
		},
		Commit: CommitConfig{
			Message: "Review: parallel content review complete",
		},
	}
}

// CommitPaths returns the paths staged for the final commit, defaulting to
// the content root.
func (c *Config) CommitPaths() []string {
	if len(c.Commit.Paths) > 0 {
		return c.Commit.Paths
	}
	return []string{c.Content.Root}
}
