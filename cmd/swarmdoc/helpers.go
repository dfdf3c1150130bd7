package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ShayCichocki/swarmdoc/internal/config"
	"github.com/ShayCichocki/swarmdoc/internal/lock"
	"github.com/ShayCichocki/swarmdoc/internal/progress"
	"github.com/ShayCichocki/swarmdoc/internal/task"
)

// configFile is shared by the commands that accept --config.
var configFile string

// loadConfig loads the effective configuration, honoring --config when set.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromPath(configFile)
	}
	return config.Load()
}

// buildEnumerator constructs the task enumerator from config.
func buildEnumerator(cfg *config.Config) *task.Enumerator {
	return task.NewEnumerator(cfg.Content.Root, cfg.Content.Extensions, cfg.Content.ExcludeNames, cfg.Locks.Dir)
}

// buildLockManager constructs the lock manager from config.
func buildLockManager(cfg *config.Config) *lock.Manager {
	return lock.NewManager(cfg.Locks.Dir)
}

// buildProgressStore constructs the progress store from config.
func buildProgressStore(cfg *config.Config) *progress.Store {
	return progress.NewStore(cfg.Run.ProgressFile)
}

// loadInstructions resolves the instruction payload: the environment variable
// set by the coordinator wins, otherwise the prompt file is read.
func loadInstructions(cfg *config.Config) (string, error) {
	if payload := os.Getenv("SWARMDOC_INSTRUCTIONS"); payload != "" {
		return payload, nil
	}

	data, err := os.ReadFile(cfg.Run.PromptFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("prompt file %s not found\n\n"+
				"Swarmdoc passes the prompt file's contents to every worker as the\n"+
				"processing instructions. Create it, for example:\n\n"+
				"  echo \"Review each document for accuracy and clarity.\" > %s",
				cfg.Run.PromptFile, cfg.Run.PromptFile)
		}
		return "", fmt.Errorf("reading prompt file %s: %w", cfg.Run.PromptFile, err)
	}

	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return "", fmt.Errorf("prompt file %s is empty", cfg.Run.PromptFile)
	}
	return payload, nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
