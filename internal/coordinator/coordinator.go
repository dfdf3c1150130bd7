// Package coordinator drives a run: sweep the lock namespace, spawn the
// worker pool, drain it, then gate the single commit on the external quality
// check.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ShayCichocki/swarmdoc/internal/lock"
	"github.com/ShayCichocki/swarmdoc/internal/progress"
	"github.com/ShayCichocki/swarmdoc/internal/task"
	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

// Phase is the coordinator's lifecycle state. No path returns from Committed
// or Aborted within one invocation; a fresh run starts over from Idle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseDraining  Phase = "draining"
	PhaseGating    Phase = "gating"
	PhaseCommitted Phase = "committed"
	PhaseAborted   Phase = "aborted"
)

// Config assembles a Coordinator's collaborators and run options.
type Config struct {
	// Workers is how many worker processes to spawn.
	Workers int
	// DryRun reports the plan without spawning workers, creating locks,
	// writing progress, or invoking gate and commit.
	DryRun bool
	// Resume preserves terminal progress entries from a prior run so only
	// pending and orphaned tasks are processed again.
	Resume bool
	// SkipCommit runs the gate but suppresses the commit action.
	SkipCommit bool

	// Enumerator lists the run's tasks.
	Enumerator *task.Enumerator
	// Locks manages the lock namespace.
	Locks *lock.Manager
	// Progress is the shared progress store.
	Progress *progress.Store
	// Spawner launches worker processes.
	Spawner Spawner
	// Gate is the quality check run before committing.
	Gate Gate
	// Committer performs the commit action on a passing gate.
	Committer Committer
	// RunLockPath is the flock path that keeps two coordinators from
	// running concurrently over the same workspace.
	RunLockPath string
}

// Report summarizes a finished run for the operator.
type Report struct {
	RunID   string
	Phase   Phase
	DryRun  bool
	Summary progress.Summary
	// Orphans lists tasks left with a lock but no terminal progress record,
	// the signature of a crashed worker. They need operator intervention,
	// not a silent retry.
	Orphans []string
	// LocksSwept counts locks removed during finalize. Any non-zero value
	// corresponds to abandoned work.
	LocksSwept int
	// WorkerFailures counts workers that exited non-zero.
	WorkerFailures int
	GatePassed     bool
	Committed      bool
	// GateError and CommitError carry failure detail when Phase is Aborted.
	GateError   string
	CommitError string
}

// Coordinator owns the run lifecycle. It is single-threaded: parallelism
// lives entirely in the spawned worker processes.
type Coordinator struct {
	cfg     Config
	phase   Phase
	runID   string
	runLock *flock.Flock
	handles []Handle

	workerFailures int
}

// New creates a Coordinator in the Idle phase.
func New(cfg Config) *Coordinator {
	c := &Coordinator{cfg: cfg, phase: PhaseIdle}
	if cfg.RunLockPath != "" {
		c.runLock = flock.New(cfg.RunLockPath)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	return c.phase
}

// RunID returns the identifier assigned at Start.
func (c *Coordinator) RunID() string {
	return c.runID
}

// Start sweeps the lock namespace, initializes progress with every
// enumerated task pending, and spawns the worker pool.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.phase != PhaseIdle {
		return fmt.Errorf("start from phase %s", c.phase)
	}

	c.runID = uuid.New().String()[:8]

	tasks, err := c.cfg.Enumerator.Enumerate()
	if err != nil {
		return fmt.Errorf("enumerating tasks: %w", err)
	}
	log.Printf("[coordinator] run %s: %d tasks, %d workers", c.runID, len(tasks), c.cfg.Workers)

	if c.cfg.DryRun {
		for i := 1; i <= c.cfg.Workers; i++ {
			log.Printf("[coordinator] dry-run: would spawn worker-%d", i)
		}
		c.phase = PhaseRunning
		return nil
	}

	if c.runLock != nil {
		held, err := c.runLock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring run lock: %w", err)
		}
		if !held {
			return errors.New("another swarmdoc run is already active in this workspace")
		}
	}

	if err := c.cfg.Locks.EnsureDir(); err != nil {
		return err
	}
	// A run begins from a clean slate: locks surviving from a previous run
	// belong to crashed workers and are discarded here, never mid-run.
	swept, err := c.cfg.Locks.Sweep()
	if err != nil {
		return fmt.Errorf("initial lock sweep: %w", err)
	}
	if swept > 0 {
		log.Printf("[coordinator] swept %d stale locks from previous run", swept)
	}

	if err := c.cfg.Progress.Init(c.runID, tasks, c.cfg.Resume); err != nil {
		return fmt.Errorf("initializing progress: %w", err)
	}

	for i := 1; i <= c.cfg.Workers; i++ {
		id := fmt.Sprintf("worker-%d", i)
		handle, err := c.cfg.Spawner.Spawn(ctx, id)
		if err != nil {
			log.Printf("[coordinator] failed to spawn %s: %v", id, err)
			c.workerFailures++
			continue
		}
		log.Printf("[coordinator] spawned %s", id)
		c.handles = append(c.handles, handle)
	}

	c.phase = PhaseRunning
	return nil
}

// AwaitAll blocks until every spawned worker has exited. It does not time
// out: a hung worker hangs the run.
func (c *Coordinator) AwaitAll() error {
	if c.phase != PhaseRunning {
		return fmt.Errorf("await from phase %s", c.phase)
	}
	c.phase = PhaseDraining

	for _, h := range c.handles {
		if err := h.Wait(); err != nil {
			log.Printf("[coordinator] %s exited with error: %v", h.ID(), err)
			c.workerFailures++
			continue
		}
		log.Printf("[coordinator] %s completed", h.ID())
	}
	return nil
}

// Finalize sweeps the lock namespace, derives the run summary and orphan
// set, runs the quality gate, and performs the commit action only on a
// passing gate. Gate and commit failures end the run in Aborted; they are
// reported through the Report, not as errors.
func (c *Coordinator) Finalize(ctx context.Context) (*Report, error) {
	if c.phase != PhaseDraining {
		return nil, fmt.Errorf("finalize from phase %s", c.phase)
	}

	report := &Report{
		RunID:          c.runID,
		DryRun:         c.cfg.DryRun,
		WorkerFailures: c.workerFailures,
	}

	if c.cfg.DryRun {
		log.Printf("[coordinator] dry-run: would run quality gate and commit")
		c.phase = PhaseCommitted
		report.Phase = c.phase
		return report, nil
	}
	defer func() {
		if c.runLock != nil {
			if err := c.runLock.Unlock(); err != nil {
				log.Printf("[coordinator] releasing run lock: %v", err)
			}
		}
	}()

	// Capture live locks before the sweep: a lock surviving the drain with
	// no terminal progress record is a crashed worker's orphan.
	liveLocks, err := c.cfg.Locks.List()
	if err != nil {
		return nil, fmt.Errorf("listing locks: %w", err)
	}

	swept, err := c.cfg.Locks.Sweep()
	if err != nil {
		return nil, fmt.Errorf("final lock sweep: %w", err)
	}
	report.LocksSwept = swept

	snap, err := c.cfg.Progress.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}
	report.Summary = snap.Summary
	report.Orphans = findOrphans(snap, liveLocks)

	for _, id := range report.Orphans {
		log.Printf("[coordinator] orphaned task %s: lock present with no terminal state", id)
	}

	c.phase = PhaseGating
	if err := c.cfg.Gate.Check(ctx); err != nil {
		log.Printf("[coordinator] quality gate failed: %v", err)
		report.GateError = err.Error()
		c.phase = PhaseAborted
		report.Phase = c.phase
		return report, nil
	}
	report.GatePassed = true

	if c.cfg.SkipCommit {
		log.Printf("[coordinator] gate passed, commit skipped by request")
		c.phase = PhaseCommitted
		report.Phase = c.phase
		return report, nil
	}

	if err := c.cfg.Committer.Commit(ctx); err != nil {
		log.Printf("[coordinator] commit failed: %v", err)
		report.CommitError = err.Error()
		c.phase = PhaseAborted
		report.Phase = c.phase
		return report, nil
	}
	report.Committed = true

	c.phase = PhaseCommitted
	report.Phase = c.phase
	return report, nil
}

// findOrphans returns task IDs abandoned by a crashed worker: a live lock
// whose task never reached a terminal state, or a claimed record whose
// worker exited without writing one.
func findOrphans(snap *progress.Snapshot, locks []lock.Record) []string {
	orphaned := make(map[string]bool)

	for _, lk := range locks {
		rec, ok := snap.Record(lk.Task)
		if !ok || !rec.State.Terminal() {
			orphaned[lk.Task] = true
		}
	}
	for _, rec := range snap.Records {
		if rec.State == models.TaskClaimed {
			orphaned[rec.ID] = true
		}
	}

	var ids []string
	for id := range orphaned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
