package models

import "time"

// ExecutionResult represents the outcome of one external program run
type ExecutionResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Truncated bool
	Duration  time.Duration
}

// Success reports whether the program exited with status zero
func (r *ExecutionResult) Success() bool {
	return r != nil && r.ExitCode == 0
}
