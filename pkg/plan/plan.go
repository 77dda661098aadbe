// Package plan holds the provisioning plans compiled into the binary and the
// parsing that turns their YAML form into ordered, executable steps.
package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"

	perrors "provisioner/pkg/errors"
	"provisioner/pkg/runner"
)

// Step is one external command invocation, treated as an atomic pass/fail unit.
type Step struct {
	Name string `yaml:"name" json:"name"`
	// Announce is printed on its own line right before the step runs.
	Announce string `yaml:"announce,omitempty" json:"announce,omitempty"`
	// Run is the command as authored, e.g. "apt-get install -y ffmpeg".
	Run string `yaml:"run" json:"run"`

	Command string   `yaml:"-" json:"command"`
	Args    []string `yaml:"-" json:"args"`
}

// Plan is an ordered list of steps.
type Plan struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// NewStep builds an already-split step.
func NewStep(name, command string, args ...string) Step {
	return Step{
		Name:    name,
		Run:     runner.CommandLine(command, args),
		Command: command,
		Args:    args,
	}
}

// CommandLine returns the command and arguments joined for display.
func (s Step) CommandLine() string {
	return runner.CommandLine(s.Command, s.Args)
}

// Parse decodes a YAML plan and splits every step's command string.
func Parse(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", perrors.ErrInvalidPlan, err)
	}

	for i := range p.Steps {
		step := &p.Steps[i]
		fields, err := SplitCommand(step.Run)
		if err != nil {
			return Plan{}, perrors.NewPlanError(fmt.Sprintf("steps[%d].run", i), step.Run, err.Error())
		}
		if len(fields) > 0 {
			step.Command = fields[0]
			step.Args = fields[1:]
		}
	}

	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// SplitCommand splits a shell-style command string into words. Quotes are
// honoured; expansions are rejected since steps never run through a shell.
func SplitCommand(run string) ([]string, error) {
	if strings.ContainsAny(run, "$`") {
		return nil, fmt.Errorf("expansions are not supported in step commands")
	}
	fields, err := shell.Fields(run, func(string) string { return "" })
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Validate checks the invariants every runnable plan must hold.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return perrors.NewPlanError("name", p.Name, "plan name is required")
	}

	seen := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if strings.TrimSpace(step.Name) == "" {
			return perrors.NewPlanError(field+".name", step.Name, "step name is required")
		}
		if seen[step.Name] {
			return perrors.NewPlanError(field+".name", step.Name, "duplicate step name")
		}
		seen[step.Name] = true
		if strings.TrimSpace(step.Command) == "" {
			return perrors.NewPlanError(field+".run", step.Run, "step command is empty")
		}
	}
	return nil
}
