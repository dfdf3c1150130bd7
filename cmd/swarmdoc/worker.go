package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmdoc/internal/exec"
	"github.com/ShayCichocki/swarmdoc/internal/worker"
)

var (
	workerID     string
	workerDryRun bool
)

// workerCmd is the hidden subcommand the coordinator re-executes for each
// spawned worker. It can also be invoked by hand to add capacity to a run
// already in progress.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a single worker pass (spawned by run)",
	Hidden: true,
	RunE:   runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&workerID, "id", "", "Worker identifier")
	workerCmd.Flags().BoolVar(&workerDryRun, "dry-run", false, "Report would-be claims without mutating anything")
	workerCmd.Flags().StringVar(&configFile, "config", "", "Config file path (overrides discovery)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	id := workerID
	if id == "" {
		id = fmt.Sprintf("worker-%d", os.Getpid())
	}

	var instructions string
	if !workerDryRun {
		instructions, err = loadInstructions(cfg)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	loop := &worker.Loop{
		ID:         id,
		Enumerator: buildEnumerator(cfg),
		Locks:      buildLockManager(cfg),
		Progress:   buildProgressStore(cfg),
		Processor: &worker.ExecProcessor{
			Runner:       exec.NewRunner(),
			Command:      cfg.Processor.Command,
			WorkDir:      cwd,
			WorkerID:     id,
			Instructions: instructions,
			Timeout:      cfg.Processor.Timeout,
		},
		DryRun: workerDryRun,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tally, err := loop.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] processed=%d skipped=%d failed=%d\n", id, tally.Processed, tally.Skipped, tally.Failed)
	if tally.Failed > 0 {
		return fmt.Errorf("%d task(s) failed", tally.Failed)
	}
	return nil
}
