package coordinator

import (
	"context"
	"fmt"
	"log"

	"github.com/ShayCichocki/swarmdoc/internal/git"
)

// Committer produces the single versioned snapshot of all task mutations.
// It is invoked at most once per run, only after a passing gate.
type Committer interface {
	Commit(ctx context.Context) error
}

// GitCommitter stages the configured paths and creates one commit.
type GitCommitter struct {
	Git     git.Runner
	Paths   []string
	Message string
}

// Commit stages and commits. A run whose workers changed nothing is not an
// error; the commit is simply skipped.
func (c *GitCommitter) Commit(ctx context.Context) error {
	if err := c.Git.Add(c.Paths...); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	hasChanges, err := c.Git.HasChanges()
	if err != nil {
		return fmt.Errorf("checking staged changes: %w", err)
	}
	if !hasChanges {
		log.Printf("[commit] no changes to commit")
		return nil
	}

	if err := c.Git.Commit(c.Message); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Verify GitCommitter implements Committer at compile time.
var _ Committer = (*GitCommitter)(nil)
