package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmdoc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective swarmdoc configuration.

Without arguments, displays all configuration values.
With one argument (key), displays the value for that key.

Configuration is read from ~/.config/swarmdoc/config.yaml, overridden
by .swarmdoc.yaml in the project, overridden by SWARMDOC_* environment
variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		default:
			displayConfigKey(cfg, args[0])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	for _, key := range config.Keys {
		value, err := getConfigValue(cfg, key)
		if err != nil {
			continue
		}
		fmt.Printf("%s: %s\n", key, value)
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "content.root":
		return cfg.Content.Root, nil
	case "content.extensions":
		return strings.Join(cfg.Content.Extensions, ","), nil
	case "content.exclude_names":
		return strings.Join(cfg.Content.ExcludeNames, ","), nil
	case "run.workers":
		return strconv.Itoa(cfg.Run.Workers), nil
	case "run.progress_file":
		return cfg.Run.ProgressFile, nil
	case "run.prompt_file":
		return cfg.Run.PromptFile, nil
	case "locks.dir":
		return cfg.Locks.Dir, nil
	case "locks.max_age":
		return cfg.Locks.MaxAge.String(), nil
	case "processor.command":
		return cfg.Processor.Command, nil
	case "processor.timeout":
		return cfg.Processor.Timeout.String(), nil
	case "gate.command":
		return cfg.Gate.Command, nil
	case "commit.message":
		return cfg.Commit.Message, nil
	case "commit.paths":
		return strings.Join(cfg.CommitPaths(), ","), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}
