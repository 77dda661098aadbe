package models

// Run is the persisted summary of one provisioning run.
type Run struct {
	UUID       string    `gorm:"primaryKey;type:varchar(36)" json:"uuid" yaml:"uuid"`
	Plan       string    `gorm:"index" json:"plan" yaml:"plan"`
	Status     string    `json:"status" yaml:"status"`
	ExitCode   int       `json:"exit_code" yaml:"exit_code"`
	FailedStep string    `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	StepsRun   int       `json:"steps_run" yaml:"steps_run"`
	StepsTotal int       `json:"steps_total" yaml:"steps_total"`
	Steps      []RunStep `gorm:"serializer:json" json:"steps" yaml:"steps"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
	StartedAt  int64     `gorm:"index" json:"started_at" yaml:"started_at"`
	FinishedAt int64     `json:"finished_at" yaml:"finished_at"`
	CreatedAt  int64     `json:"created_at" yaml:"created_at"`
	UpdatedAt  int64     `json:"updated_at" yaml:"updated_at"`
}

type RunStep struct {
	Name       string `json:"name" yaml:"name"`
	Command    string `json:"command" yaml:"command"`
	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}
