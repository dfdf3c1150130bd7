package coordinator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Handle tracks one spawned worker process.
type Handle interface {
	// ID returns the worker's identifier.
	ID() string
	// Wait blocks until the worker exits and returns its exit error, if any.
	Wait() error
}

// Spawner launches worker processes. The coordinator treats a worker as a
// fixed function of (content root, lock namespace, instructions) invoked
// identically N times; this interface lets tests substitute in-process
// workers.
type Spawner interface {
	Spawn(ctx context.Context, id string) (Handle, error)
}

// SelfSpawner re-executes the current binary's hidden worker subcommand,
// passing the instruction payload through the environment the same way the
// worker command reads it.
type SelfSpawner struct {
	// Instructions is the review payload handed to every worker.
	Instructions string
	// ConfigFile, when set, is forwarded so workers load the same config.
	ConfigFile string
	// Stdout and Stderr receive the workers' output. Defaults to the
	// coordinator's own streams so operators see live worker logs.
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts one worker process.
func (s *SelfSpawner) Spawn(ctx context.Context, id string) (Handle, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating own executable: %w", err)
	}

	args := []string{"worker", "--id", id}
	if s.ConfigFile != "" {
		args = append(args, "--config", s.ConfigFile)
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = append(os.Environ(), "SWARMDOC_INSTRUCTIONS="+s.Instructions)
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", id, err)
	}
	return &procHandle{id: id, cmd: cmd}, nil
}

type procHandle struct {
	id  string
	cmd *exec.Cmd
}

func (h *procHandle) ID() string { return h.id }

func (h *procHandle) Wait() error { return h.cmd.Wait() }

// Verify SelfSpawner implements Spawner at compile time.
var _ Spawner = (*SelfSpawner)(nil)
