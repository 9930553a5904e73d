package bootsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/starford/glance/internal/apperr"
)

// RunIDEnv carries the run id into the headless process.
const RunIDEnv = "GLANCE_BOOT_RUN_ID"

// CommandRuntime runs the headless runtime as a child process:
// argv[0] argv[1:]... <task>.
type CommandRuntime struct {
	argv   []string
	logger *slog.Logger
}

// NewCommandRuntime creates a CommandRuntime for a non-empty argv.
func NewCommandRuntime(argv []string, logger *slog.Logger) (*CommandRuntime, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("bootsync: %w: empty command", apperr.ErrInvalid)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRuntime{argv: append([]string(nil), argv...), logger: logger}, nil
}

// RunTask implements HeadlessRuntime. The process is killed when ctx ends.
func (c *CommandRuntime) RunTask(ctx context.Context, task, runID string) error {
	args := append(append([]string(nil), c.argv[1:]...), task)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	cmd.Env = append(os.Environ(), RunIDEnv+"="+runID)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		c.logger.Warn("bootsync: headless runtime output",
			slog.String("run_id", runID),
			slog.String("output", tail(out.String(), 2048)))
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("bootsync: %s exited with code %d: %w", c.argv[0], exitErr.ExitCode(), err)
		}
		return fmt.Errorf("bootsync: run %s: %w", c.argv[0], err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

var _ HeadlessRuntime = (*CommandRuntime)(nil)
