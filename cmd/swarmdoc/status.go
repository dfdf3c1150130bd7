package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmdoc/internal/config"
	"github.com/ShayCichocki/swarmdoc/internal/lock"
	"github.com/ShayCichocki/swarmdoc/internal/progress"
	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

var (
	statusWatch bool
	statusAll   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run progress",
	Long: `Display the state of the current or most recent run.

Shows the per-state task counts from the shared progress file, the
tasks currently in progress (live locks), and any failed tasks.

Use --watch to keep the display updating as workers write progress.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep refreshing as progress changes")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "List every task, not just active and failed ones")
	statusCmd.Flags().StringVar(&configFile, "config", "", "Config file path (overrides discovery)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := buildProgressStore(cfg)
	locks := buildLockManager(cfg)

	if !store.Exists() {
		fmt.Println("No run recorded. Start one with 'swarmdoc run'.")
		return nil
	}

	if err := displayStatus(cfg, store, locks); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}
	return watchStatus(cfg, store, locks)
}

// displayStatus renders one snapshot of the run state.
func displayStatus(cfg *config.Config, store *progress.Store, locks *lock.Manager) error {
	snap, err := store.Snapshot()
	if err != nil {
		return fmt.Errorf("reading progress: %w", err)
	}
	records, err := locks.List()
	if err != nil {
		return fmt.Errorf("listing locks: %w", err)
	}

	fmt.Printf("Run %s, started %s ago\n", snap.RunID, formatDuration(time.Since(snap.StartedAt)))
	fmt.Printf("  %d/%d tasks done (%.0f%%), %d in progress, %d failed\n",
		snap.Summary.Completed+snap.Summary.Failed, snap.Summary.Total,
		snap.Summary.PercentComplete(), len(records), snap.Summary.Failed)

	rows := statusRows(snap, statusAll)
	if len(rows) > 0 {
		fmt.Println(renderTable(
			[]string{"TASK", "STATE", "WORKER", "UPDATED"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
	}
	return nil
}

// statusRows selects and formats the snapshot entries worth showing. Without
// all, completed and pending tasks are summarized by the counts above rather
// than listed row by row.
func statusRows(snap *progress.Snapshot, all bool) [][]string {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var rows [][]string
	for _, rec := range snap.Records {
		if !all && rec.State != models.TaskClaimed && rec.State != models.TaskFailed {
			continue
		}

		state := string(rec.State)
		switch rec.State {
		case models.TaskCompleted:
			state = green(state)
		case models.TaskFailed:
			state = red(state)
		case models.TaskClaimed:
			state = yellow(state)
		}

		updated := ""
		if !rec.UpdatedAt.IsZero() {
			updated = formatDuration(time.Since(rec.UpdatedAt)) + " ago"
		}
		rows = append(rows, []string{rec.ID, state, rec.Worker, updated})
	}
	return rows
}

// watchStatus re-renders on every progress-file write. The watch is on the
// directory because each write replaces the file by rename.
func watchStatus(cfg *config.Config, store *progress.Store, locks *lock.Manager) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(store.Path())
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Base(store.Path())
	// Lock churn never touches the progress file, so a slow ticker keeps the
	// in-progress column honest between writes.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			fmt.Println()
			if err := displayStatus(cfg, store, locks); err != nil {
				return err
			}
		case <-ticker.C:
			fmt.Println()
			if err := displayStatus(cfg, store, locks); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}
