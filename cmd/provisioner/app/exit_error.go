package app

import (
	"errors"
	"fmt"

	perrors "provisioner/pkg/errors"
)

// Exit codes besides the pass-through status of a failed step.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// ExitError carries the process exit status out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ToExitError maps err onto the process exit status: configuration problems
// exit 2, a failed step exits with that step's status, anything else exits 1.
func ToExitError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var cfgErr *perrors.ConfigError
	if errors.As(err, &cfgErr) || errors.Is(err, perrors.ErrPlanNotFound) {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	var stepErr *perrors.StepError
	if errors.As(err, &stepErr) {
		return &ExitError{Code: perrors.ExitCode(stepErr), Err: err}
	}

	return &ExitError{Code: ExitFailure, Err: err}
}

// Code returns the exit status for an error returned by a command.
func Code(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(ToExitError(err), &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return ExitFailure
}
