// Package git provides the small set of git operations the commit action needs.
package git

// Runner defines the git operations used when finalizing a run.
// This abstraction allows mocking git in tests.
type Runner interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)

	// Status returns the output of git status --porcelain.
	Status() (string, error)

	// HasChanges returns true if there are uncommitted changes.
	HasChanges() (bool, error)

	// Add stages the specified paths for commit.
	Add(paths ...string) error

	// Commit creates a new commit with the given message.
	Commit(message string) error
}
