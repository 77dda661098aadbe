package engine

import "time"

// State is the lifecycle of a provisioning run. Succeeded and Failed are terminal.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// StepResult records one invoked step.
type StepResult struct {
	Name     string        `json:"name" yaml:"name"`
	Command  string        `json:"command" yaml:"command"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result is the outcome of one run. Steps holds only the steps that were
// invoked, in invocation order.
type Result struct {
	RunID      string       `json:"run_id" yaml:"run_id"`
	Plan       string       `json:"plan" yaml:"plan"`
	State      State        `json:"state" yaml:"state"`
	ExitCode   int          `json:"exit_code" yaml:"exit_code"`
	FailedStep string       `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
	StepsTotal int          `json:"steps_total" yaml:"steps_total"`
	Steps      []StepResult `json:"steps" yaml:"steps"`
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
}

func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) Succeeded() bool {
	return r.State == StateSucceeded
}
