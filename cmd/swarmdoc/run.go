package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmdoc/internal/coordinator"
	"github.com/ShayCichocki/swarmdoc/internal/exec"
	"github.com/ShayCichocki/swarmdoc/internal/git"
)

var (
	runWorkers    int
	runDryRun     bool
	runResume     bool
	runSkipCommit bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full coordinated processing pass",
	Long: `Run a full coordinated pass over the content tree.

The coordinator enumerates the processable files, sweeps stale locks
from any previous run, initializes the shared progress file, and spawns
N worker processes. Each worker walks the task list, claims tasks via
atomic lock-file creation, and runs the configured processor command on
every task it wins. After all workers exit, the quality gate runs; a
passing gate produces exactly one git commit of the content root.

Use --dry-run to see what a run would do without creating locks,
writing progress, spawning workers, or committing.

Use --resume after an interrupted run to preserve completed tasks:
only pending and failed work is processed again.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of workers to spawn (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report the plan without mutating anything")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Preserve completed tasks from a previous run")
	runCmd.Flags().BoolVar(&runSkipCommit, "skip-commit", false, "Run the gate but skip the final commit")
	runCmd.Flags().StringVar(&configFile, "config", "", "Config file path (overrides discovery)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	workers := cfg.Run.Workers
	if cmd.Flags().Changed("workers") {
		workers = runWorkers
	}
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	instructions, err := loadInstructions(cfg)
	if err != nil {
		if !runDryRun {
			return err
		}
		color.Yellow("warning: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	coord := coordinator.New(coordinator.Config{
		Workers:    workers,
		DryRun:     runDryRun,
		Resume:     runResume,
		SkipCommit: runSkipCommit,
		Enumerator: buildEnumerator(cfg),
		Locks:      buildLockManager(cfg),
		Progress:   buildProgressStore(cfg),
		Spawner: &coordinator.SelfSpawner{
			Instructions: instructions,
			ConfigFile:   configFile,
		},
		Gate: &coordinator.ExecGate{
			Runner:  exec.NewRunner(),
			Command: cfg.Gate.Command,
			WorkDir: cwd,
		},
		Committer: &coordinator.GitCommitter{
			Git:     git.NewRunner(cwd),
			Paths:   cfg.CommitPaths(),
			Message: cfg.Commit.Message,
		},
		RunLockPath: cfg.Run.ProgressFile + ".run.lock",
	})

	// Ctrl-C cancels the run context; workers notice between tasks.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coord.Start(ctx); err != nil {
		return err
	}
	if err := coord.AwaitAll(); err != nil {
		return err
	}
	report, err := coord.Finalize(ctx)
	if err != nil {
		return err
	}

	printReport(report)

	if report.Phase == coordinator.PhaseAborted {
		if report.GateError != "" {
			return errors.New("run aborted: quality gate failed")
		}
		return errors.New("run aborted: commit failed")
	}
	return nil
}

// printReport renders the run outcome for the operator.
func printReport(r *coordinator.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Println()
	if r.DryRun {
		fmt.Printf("Run %s (dry-run)\n", r.RunID)
		return
	}

	rows := [][]string{
		{"Total", strconv.Itoa(r.Summary.Total)},
		{"Completed", strconv.Itoa(r.Summary.Completed)},
		{"Failed", strconv.Itoa(r.Summary.Failed)},
		{"Pending", strconv.Itoa(r.Summary.Pending)},
	}
	fmt.Printf("Run %s: %.0f%% complete\n", r.RunID, r.Summary.PercentComplete())
	fmt.Println(renderTable([]string{"STATE", "TASKS"}, rows, []columnAlignment{alignLeft, alignRight}))

	if r.WorkerFailures > 0 {
		fmt.Printf("%s %d worker(s) exited with errors\n", yellow("!"), r.WorkerFailures)
	}
	for _, id := range r.Orphans {
		fmt.Printf("%s orphaned task: %s (worker crashed mid-processing)\n", red("✗"), id)
	}
	if r.LocksSwept > 0 {
		fmt.Printf("%s swept %d leftover lock(s)\n", yellow("!"), r.LocksSwept)
	}

	switch {
	case r.GateError != "":
		fmt.Printf("%s quality gate failed: %s\n", red("✗"), r.GateError)
		fmt.Printf("%s no commit was made\n", red("✗"))
	case r.CommitError != "":
		fmt.Printf("%s gate passed but commit failed: %s\n", red("✗"), r.CommitError)
	case r.Committed:
		fmt.Printf("%s quality gate passed, changes committed\n", green("✓"))
	default:
		fmt.Printf("%s quality gate passed, commit skipped\n", green("✓"))
	}
}
