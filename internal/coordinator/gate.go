package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/swarmdoc/internal/exec"
)

// Gate is the external quality check whose pass/fail result gates the
// commit action.
type Gate interface {
	Check(ctx context.Context) error
}

// ExecGate runs a configured shell command and treats a non-zero exit as a
// gate failure.
type ExecGate struct {
	Runner  exec.CommandRunner
	Command string
	WorkDir string
}

// Check runs the gate command once.
func (g *ExecGate) Check(ctx context.Context) error {
	if g.Command == "" {
		log.Printf("[gate] no gate command configured, passing")
		return nil
	}

	out, err := g.Runner.RunShell(ctx, g.WorkDir, nil, g.Command)
	if err != nil {
		tail := strings.TrimSpace(string(out))
		if len(tail) > 400 {
			tail = "..." + tail[len(tail)-400:]
		}
		return fmt.Errorf("quality gate %q failed: %w: %s", g.Command, err, tail)
	}
	return nil
}

// Verify ExecGate implements Gate at compile time.
var _ Gate = (*ExecGate)(nil)
