package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/swarmdoc/internal/exec"
	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

// outputTailLimit bounds how much processor output is kept in an error message.
const outputTailLimit = 400

// Processor performs the actual content work for one claimed task. The loop
// treats it as an opaque, potentially slow, potentially failing call.
type Processor interface {
	Process(ctx context.Context, task models.Task) error
}

// ExecProcessor runs a configured shell command once per task. The task is
// passed through environment variables so the command line needs no quoting:
//
//	SWARMDOC_TASK          task identifier
//	SWARMDOC_TASK_PATH     absolute path to the content file
//	SWARMDOC_WORKER        worker ID
//	SWARMDOC_INSTRUCTIONS  the review instruction payload
type ExecProcessor struct {
	// Runner executes the command.
	Runner exec.CommandRunner
	// Command is the shell command line. Required.
	Command string
	// WorkDir is the working directory for the command.
	WorkDir string
	// WorkerID identifies the invoking worker.
	WorkerID string
	// Instructions is the fixed instruction payload for every task.
	Instructions string
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// Process runs the configured command for the task.
func (p *ExecProcessor) Process(ctx context.Context, task models.Task) error {
	if p.Command == "" {
		return errors.New("no processor command configured (set processor.command)")
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	env := []string{
		"SWARMDOC_TASK=" + task.ID,
		"SWARMDOC_TASK_PATH=" + task.Path,
		"SWARMDOC_WORKER=" + p.WorkerID,
		"SWARMDOC_INSTRUCTIONS=" + p.Instructions,
	}

	out, err := p.Runner.RunShell(ctx, p.WorkDir, env, p.Command)
	if err != nil {
		return fmt.Errorf("processor command failed: %w: %s", err, outputTail(out))
	}
	return nil
}

// outputTail returns the trailing portion of command output for error
// reporting.
func outputTail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > outputTailLimit {
		s = "..." + s[len(s)-outputTailLimit:]
	}
	return s
}

// Verify ExecProcessor implements Processor at compile time.
var _ Processor = (*ExecProcessor)(nil)
