package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessFailed matches any nonzero exit of the external program
	ErrProcessFailed = errors.New("external program failed")

	// ErrMissingArtifact is returned when the program reported success but
	// the artifact cannot be read
	ErrMissingArtifact = errors.New("artifact missing")

	// ErrEmptyArtifact is a MissingArtifact whose file exists but holds nothing
	ErrEmptyArtifact = fmt.Errorf("%w: artifact is empty", ErrMissingArtifact)

	// ErrArtifactTruncated is a MissingArtifact whose output exceeded the capture limit
	ErrArtifactTruncated = fmt.Errorf("%w: artifact exceeds the output limit", ErrMissingArtifact)

	// ErrStaleArtifact is a MissingArtifact whose shared file predates the run
	ErrStaleArtifact = fmt.Errorf("%w: artifact is stale", ErrMissingArtifact)

	// ErrTimeout is returned when the program is killed for running too long
	ErrTimeout = errors.New("external program timed out")

	// ErrNoInterpreter is returned when no system interpreter is on PATH
	ErrNoInterpreter = errors.New("no python interpreter found")
)

// ProcessError carries the exit status of a failed run
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("external program exited with status %d", e.ExitCode)
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrProcessFailed
}
