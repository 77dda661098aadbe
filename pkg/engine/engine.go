// Package engine runs provisioning plans: every step in declared order, each
// to completion, stopping at the first step that exits nonzero.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"
	"provisioner/pkg/plan"
	"provisioner/pkg/runner"
)

type EngineOpts struct {
	runner    runner.CommandRunner
	out       io.Writer
	logger    *logger.Logger
	runLogger *logger.RunLogger
	hooks     []Hook
	clock     func() time.Time
	newID     func() string
}

type OptFunc func(*EngineOpts)

type Engine struct {
	EngineOpts
}

func NewEngine(opts ...OptFunc) *Engine {
	o := EngineOpts{
		runner: runner.NewSimpleRunner(),
		out:    os.Stdout,
		logger: logger.Default(),
		clock:  time.Now,
		newID:  func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{EngineOpts: o}
}

func WithRunner(r runner.CommandRunner) OptFunc {
	return func(opts *EngineOpts) {
		opts.runner = r
	}
}

// WithOutput sets where announcement lines are printed.
func WithOutput(w io.Writer) OptFunc {
	return func(opts *EngineOpts) {
		opts.out = w
	}
}

func WithLogger(l *logger.Logger) OptFunc {
	return func(opts *EngineOpts) {
		opts.logger = l
	}
}

// WithRunLogger mirrors step headers and the final banner into a run directory.
func WithRunLogger(rl *logger.RunLogger) OptFunc {
	return func(opts *EngineOpts) {
		opts.runLogger = rl
		if rl != nil {
			opts.logger = rl.Logger
		}
	}
}

// WithHooks registers hooks called once the run is terminal, in order.
func WithHooks(hooks ...Hook) OptFunc {
	return func(opts *EngineOpts) {
		opts.hooks = append(opts.hooks, hooks...)
	}
}

// WithRunID fixes the run ID instead of generating a UUID.
func WithRunID(id string) OptFunc {
	return func(opts *EngineOpts) {
		opts.newID = func() string { return id }
	}
}

func WithClock(clock func() time.Time) OptFunc {
	return func(opts *EngineOpts) {
		opts.clock = clock
	}
}

// Run executes p. It returns a nil error only when every step exited zero;
// otherwise the error is a *errors.StepError for the first failing step and
// no later step is started. The Result is always non-nil.
func (e *Engine) Run(ctx context.Context, p plan.Plan) (*Result, error) {
	result := &Result{
		RunID:      e.newID(),
		Plan:       p.Name,
		State:      StateRunning,
		StepsTotal: len(p.Steps),
		Steps:      make([]StepResult, 0, len(p.Steps)),
		StartedAt:  e.clock(),
	}

	ctx = context.WithValue(ctx, logger.RunIDKey, result.RunID)
	log := e.logger.WithContext(ctx).WithField("plan", p.Name)
	log.WithField("steps", len(p.Steps)).Info("Provisioning started")

	var runErr error
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			runErr = perrors.NewStepError(step.Name, i, fmt.Errorf("not started: %w", err))
			result.FailedStep = step.Name
			break
		}

		stepResult, err := e.runStep(ctx, i, step)
		result.Steps = append(result.Steps, stepResult)
		if err != nil {
			runErr = perrors.NewStepError(step.Name, i, err)
			result.FailedStep = step.Name
			break
		}
	}

	result.FinishedAt = e.clock()
	if runErr != nil {
		result.State = StateFailed
		result.ExitCode = perrors.ExitCode(runErr)
		result.Error = runErr.Error()

		log.WithFields(logrus.Fields{
			"step":      result.FailedStep,
			"exit_code": result.ExitCode,
		}).Error("Provisioning failed")
		if e.runLogger != nil {
			e.runLogger.LogRunFailure(result.FailedStep, result.ExitCode, runErr)
		}
	} else {
		result.State = StateSucceeded
		log.WithFields(logrus.Fields{
			"steps":    len(result.Steps),
			"duration": result.Duration().String(),
		}).Info("Provisioning completed successfully")
		if e.runLogger != nil {
			e.runLogger.LogRunSuccess(len(result.Steps))
		}
	}

	e.runHooks(context.WithoutCancel(ctx), result)

	return result, runErr
}

func (e *Engine) runStep(ctx context.Context, index int, step plan.Step) (StepResult, error) {
	if step.Announce != "" {
		fmt.Fprintln(e.out, step.Announce)
	}

	commandLine := step.CommandLine()
	if e.runLogger != nil {
		e.runLogger.LogStepHeader(step.Name, commandLine)
	}

	e.logger.WithStep(step.Name, index).WithField("command", commandLine).Info("Running step")

	start := e.clock()
	err := e.runner.Run(ctx, step.Command, step.Args)
	stepResult := StepResult{
		Name:     step.Name,
		Command:  commandLine,
		ExitCode: perrors.ExitCode(err),
		Duration: e.clock().Sub(start),
	}

	if err != nil {
		stepResult.Error = err.Error()
		e.logger.WithStep(step.Name, index).WithFields(logrus.Fields{
			"exit_code": stepResult.ExitCode,
			"duration":  stepResult.Duration.String(),
		}).WithError(err).Error("Step failed")
		return stepResult, err
	}

	e.logger.WithStep(step.Name, index).WithField("duration", stepResult.Duration.String()).Info("Step completed successfully")
	return stepResult, nil
}
