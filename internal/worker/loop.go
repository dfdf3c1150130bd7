// Package worker implements the claim/process/record loop run by each
// worker process.
//
// Workers never coordinate with each other beyond the lock namespace: each
// one is a pure consumer of the shared task list, independently replaceable
// and restartable. A failed claim means another worker owns the task and is
// resolved immediately by moving on, so contention degrades to a skip, never
// a spin.
package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/ShayCichocki/swarmdoc/internal/lock"
	"github.com/ShayCichocki/swarmdoc/internal/progress"
	"github.com/ShayCichocki/swarmdoc/internal/task"
	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

// Tally counts per-task outcomes for one worker's pass over the task list.
type Tally struct {
	Processed int
	Skipped   int
	Failed    int
}

// Loop is one worker's pass over the shared task list.
type Loop struct {
	// ID identifies this worker in lock records and progress entries.
	ID string
	// Enumerator lists the tasks to attempt.
	Enumerator *task.Enumerator
	// Locks is the claim/release gate. No task is processed without a
	// successful claim.
	Locks *lock.Manager
	// Progress receives per-task outcome records.
	Progress *progress.Store
	// Processor performs the work for each claimed task.
	Processor Processor
	// DryRun reports would-be claims without creating locks, writing
	// progress, or invoking the processor.
	DryRun bool
}

// Run walks the enumerated tasks once, claiming and processing each one that
// no other worker holds. Per-task processor errors are recorded and do not
// abort the loop; only an unreadable content root or a canceled context
// stops a worker early.
func (l *Loop) Run(ctx context.Context) (Tally, error) {
	var tally Tally

	tasks, err := l.Enumerator.Enumerate()
	if err != nil {
		return tally, fmt.Errorf("enumerating tasks: %w", err)
	}
	log.Printf("[%s] found %d tasks", l.ID, len(tasks))

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			log.Printf("[%s] stopping early: %v", l.ID, err)
			return tally, err
		}

		if l.DryRun {
			held, err := l.Locks.Held(t.ID)
			if err != nil {
				log.Printf("[%s] dry-run check %s: %v", l.ID, t.ID, err)
				tally.Failed++
				continue
			}
			if held {
				tally.Skipped++
				continue
			}
			log.Printf("[%s] would claim %s", l.ID, t.ID)
			tally.Processed++
			continue
		}

		switch l.processOne(ctx, t) {
		case outcomeProcessed:
			tally.Processed++
		case outcomeSkipped:
			tally.Skipped++
		case outcomeFailed:
			tally.Failed++
		}
	}

	log.Printf("[%s] complete: processed=%d skipped=%d failed=%d",
		l.ID, tally.Processed, tally.Skipped, tally.Failed)
	return tally, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processOne claims, processes, records, and releases a single task. The
// terminal progress record is written before the lock is released so a
// reader never observes "lock absent, state still in progress". The release
// runs unconditionally on both paths.
func (l *Loop) processOne(ctx context.Context, t models.Task) outcome {
	claimed, err := l.Locks.Claim(t.ID, l.ID)
	if err != nil {
		log.Printf("[%s] claim %s: %v", l.ID, t.ID, err)
		return outcomeFailed
	}
	if !claimed {
		// Another worker owns it; expected, not an error.
		return outcomeSkipped
	}
	defer func() {
		if err := l.Locks.Release(t.ID, l.ID); err != nil {
			log.Printf("[%s] release %s: %v", l.ID, t.ID, err)
		}
	}()

	// A task processed and released earlier in the run has no lock anymore;
	// its terminal progress record is what prevents a second processing.
	snap, err := l.Progress.Snapshot()
	if err != nil {
		log.Printf("[%s] snapshot before %s: %v", l.ID, t.ID, err)
		return outcomeFailed
	}
	if rec, ok := snap.Record(t.ID); ok && rec.State.Terminal() {
		return outcomeSkipped
	}

	if err := l.Progress.Record(t.ID, models.TaskClaimed, l.ID, ""); err != nil {
		log.Printf("[%s] record claim %s: %v", l.ID, t.ID, err)
	}

	log.Printf("[%s] processing %s", l.ID, t.ID)

	procErr := l.Processor.Process(ctx, t)
	if procErr != nil {
		log.Printf("[%s] failed %s: %v", l.ID, t.ID, procErr)
		if err := l.Progress.Record(t.ID, models.TaskFailed, l.ID, procErr.Error()); err != nil {
			log.Printf("[%s] record failure %s: %v", l.ID, t.ID, err)
		}
		return outcomeFailed
	}

	if err := l.Progress.Record(t.ID, models.TaskCompleted, l.ID, ""); err != nil {
		log.Printf("[%s] record completion %s: %v", l.ID, t.ID, err)
		return outcomeFailed
	}
	return outcomeProcessed
}
