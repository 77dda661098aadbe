package errors

import (
	"errors"
	"fmt"
)

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrEmptyCommand         = errors.New("command is empty")
	ErrStepFailed           = errors.New("provisioning step failed")
	ErrRunNotFound          = errors.New("run not found")
	ErrHistoryDisabled      = errors.New("run history is disabled")
	ErrDiscordNotConfigured = errors.New("discord client not configured")
	ErrInvalidSpeech        = errors.New("invalid speech request")
	ErrUpstream             = errors.New("upstream error")
)

// StepError reports the first failing step of a provisioning run.
type StepError struct {
	StepName string
	Index    int
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed with exit status %d: %v", e.Index+1, e.StepName, e.ExitCode, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStepFailed) match any StepError.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

func NewStepError(stepName string, index int, err error) *StepError {
	return &StepError{
		StepName: stepName,
		Index:    index,
		ExitCode: ExitCode(err),
		Err:      err,
	}
}

type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidConfig
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewPlanError builds a ConfigError that unwraps to ErrInvalidPlan.
func NewPlanError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     ErrInvalidPlan,
	}
}

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps an error to a process exit status. A nil error is 0. When the
// chain carries a positive exit status (exec.ExitError, StepError) that status
// is returned; anything else, including signal deaths reported as -1, is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
		return stepErr.ExitCode
	}

	var coder exitCoder
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}

	return 1
}
