package cli

import "fmt"

// ExitFailure is the exit code of a rejected submission, a missing record
// or a failed check.
const ExitFailure = 1

// CommandError signals a command failure with a specific exit code.
// Commands return this after printing their errors to stderr, so main only
// has to exit.
type CommandError struct {
	exitCode int
}

// NewCommandError creates a new CommandError with the given exit code.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed with exit code %d", e.exitCode)
}

// ExitCode returns the exit code associated with this error.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}
