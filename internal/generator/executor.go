package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"growth-charts/internal/models"
)

// DefaultMaxOutputBytes caps each captured stream when no limit is configured
const DefaultMaxOutputBytes = 8 << 20

// Command describes one external program invocation as an argument vector
type Command struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// Executor runs a Command to completion
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*models.ExecutionResult, error)
}

// ProcessExecutor runs commands as child processes without a shell
type ProcessExecutor struct {
	MaxOutputBytes int
}

// Execute runs cmd and waits for it to exit. A nonzero exit status is
// reported in the result, not as an error.
func (e *ProcessExecutor) Execute(ctx context.Context, cmd Command) (*models.ExecutionResult, error) {
	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)

	limit := e.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, max: limit}
	stderrLimited := &limitedWriter{w: &stderr, max: limit}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	start := time.Now()
	err := execCmd.Run()

	result := &models.ExecutionResult{
		ExitCode:  -1,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
		Duration:  time.Since(start),
	}

	// Killed by the context
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", cmd.Binary, err)
	}

	result.ExitCode = 0
	return result, nil
}

// limitedWriter keeps the first max bytes and silently drops the rest
type limitedWriter struct {
	w         io.Writer
	max       int
	written   int
	truncated bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := l.max - l.written
	if remaining <= 0 {
		l.truncated = true
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
		l.truncated = true
	}
	written, err := l.w.Write(p)
	l.written += written
	if err != nil {
		return written, err
	}
	return n, nil
}
