package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	locksClearAll    bool
	locksClearMaxAge time.Duration
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Inspect and clear task locks",
	Long: `Inspect the lock namespace.

Every live lock corresponds to a task some worker is processing right
now, or to a task abandoned by a crashed worker. 'locks list' shows
them with their owner and age; 'locks clear' removes the stale ones.`,
}

var locksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live locks",
	RunE:  runLocksList,
}

var locksClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stale locks",
	Long: `Remove locks older than the staleness threshold.

Locks left behind by crashed workers block their tasks from being
claimed on the next run until cleared here or swept at run start.
Use --all to remove every lock regardless of age; never do this while
a run is active.`,
	RunE: runLocksClear,
}

func init() {
	locksListCmd.Flags().StringVar(&configFile, "config", "", "Config file path (overrides discovery)")
	locksClearCmd.Flags().BoolVar(&locksClearAll, "all", false, "Remove every lock regardless of age")
	locksClearCmd.Flags().DurationVar(&locksClearMaxAge, "max-age", 0, "Staleness threshold (default from config)")
	locksClearCmd.Flags().StringVar(&configFile, "config", "", "Config file path (overrides discovery)")

	locksCmd.AddCommand(locksListCmd)
	locksCmd.AddCommand(locksClearCmd)
}

func runLocksList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	records, err := buildLockManager(cfg).List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No live locks.")
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		age := formatDuration(rec.Age())
		if rec.Age() > cfg.Locks.MaxAge {
			age = red(age + " (stale)")
		}
		rows = append(rows, []string{rec.Task, rec.Owner, age})
	}

	fmt.Println(renderTable(
		[]string{"TASK", "OWNER", "AGE"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	return nil
}

func runLocksClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	locks := buildLockManager(cfg)

	if locksClearAll {
		removed, err := locks.Sweep()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d lock(s).\n", removed)
		return nil
	}

	maxAge := cfg.Locks.MaxAge
	if cmd.Flags().Changed("max-age") {
		maxAge = locksClearMaxAge
	}

	records, err := locks.List()
	if err != nil {
		return err
	}

	removed := 0
	for _, rec := range records {
		if rec.Age() <= maxAge {
			continue
		}
		if err := locks.Reclaim(rec.Task); err != nil {
			return err
		}
		fmt.Printf("Reclaimed %s (held by %s for %s)\n", rec.Task, rec.Owner, formatDuration(rec.Age()))
		removed++
	}

	if removed == 0 {
		fmt.Printf("No locks older than %s.\n", maxAge)
	} else {
		fmt.Printf("Removed %d stale lock(s).\n", removed)
	}
	return nil
}
