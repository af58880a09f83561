package core

import (
	"errors"
	"fmt"
	"os/exec"
)

// Common errors used across the package
var (
	// Launch errors
	ErrComposeFileNotFound = errors.New("compose file not found")
	ErrServiceRequired     = errors.New("profile requires 'service' to be set")
	ErrEmptyCommand        = errors.New("command cannot be empty")
	ErrInvalidMountSpec    = errors.New("mount spec must be in host:container form")
	ErrInvalidEnvVar       = errors.New("environment entry must be in KEY=value form")

	// Runner errors
	ErrRunCanceled = errors.New("run canceled")
)

// SpawnExitCode is the wrapper-specific exit code used when the child process
// could not be started at all, so there is no child status to propagate.
const SpawnExitCode = 127

// ExitCodeError carries the exit status of a finished child process so the
// wrapper can terminate with the same code.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return fmt.Sprintf("non-zero exit code: %d", e.Code)
}

// IsExitCodeError checks if the error carries a child exit status
func IsExitCodeError(err error) bool {
	var ece ExitCodeError
	return errors.As(err, &ece)
}

// CodeFromError maps an execution error to the process exit code the wrapper
// should terminate with. The child status is propagated verbatim; a spawn
// failure maps to SpawnExitCode; anything else is a plain failure.
func CodeFromError(err error) int {
	if err == nil {
		return 0
	}

	var ece ExitCodeError
	if errors.As(err, &ece) {
		return ece.Code
	}

	var xerr *exec.ExitError
	if errors.As(err, &xerr) {
		return xerr.ExitCode()
	}

	var eerr *exec.Error
	if errors.As(err, &eerr) {
		return SpawnExitCode
	}

	return 1
}

// wrapRunError converts the raw error from exec.Cmd.Run into the package's
// error types, preserving the child exit status when there is one.
func wrapRunError(op string, err error) error {
	if err == nil {
		return nil
	}

	var xerr *exec.ExitError
	if errors.As(err, &xerr) {
		return fmt.Errorf("%s: %w", op, ExitCodeError{Code: xerr.ExitCode()})
	}

	return fmt.Errorf("%s: %w", op, err)
}
