package model

import "fmt"

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically distinguish the error taxonomy: not-found,
// conflict, validation, I/O, and concurrency failures each map to their
// own code.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitNotFound indicates a requested template, feature, or package
	// identifier is unknown.
	ExitNotFound ExitCode = 2

	// ExitResolutionConflict indicates the feature graph contains cycles
	// or mutually exclusive selections.
	ExitResolutionConflict ExitCode = 3

	// ExitValidationFailed indicates the merged configuration violates a
	// structural invariant.
	ExitValidationFailed ExitCode = 4

	// ExitSourceUnreachable indicates a discovery source or package could
	// not be read (network failure, unreadable archive).
	ExitSourceUnreachable ExitCode = 5

	// ExitDestinationExists indicates the destination already contains a
	// devcontainer configuration and --force was not given.
	ExitDestinationExists ExitCode = 6

	// ExitInitInProgress indicates another caller is concurrently
	// initializing the same destination. Reported distinctly from
	// ExitDestinationExists so callers can decide to wait and retry.
	ExitInitInProgress ExitCode = 7

	// ExitUserCancelled indicates the operation was cancelled.
	ExitUserCancelled ExitCode = 8
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
