package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"provisioner/internal/config"
	"provisioner/internal/dao"
	"provisioner/pkg/engine"
	"provisioner/pkg/hooks"
	"provisioner/pkg/logger"
	"provisioner/pkg/plan"
	"provisioner/pkg/runner"

	"github.com/google/uuid"
)

// ProvisionExecutor assembles an engine from configuration and runs one plan.
type ProvisionExecutor struct {
	cfg     *config.Config
	logger  *logger.Logger
	history dao.RunDAO
	runner  runner.CommandRunner
	out     io.Writer
	hooks   []engine.Hook
}

type ExecutorOption func(*ProvisionExecutor)

func WithHistory(runDao dao.RunDAO) ExecutorOption {
	return func(e *ProvisionExecutor) {
		e.history = runDao
	}
}

// WithCommandRunner bypasses the SimpleRunner the executor would build.
func WithCommandRunner(r runner.CommandRunner) ExecutorOption {
	return func(e *ProvisionExecutor) {
		e.runner = r
	}
}

func WithAnnouncementOutput(w io.Writer) ExecutorOption {
	return func(e *ProvisionExecutor) {
		e.out = w
	}
}

func WithExtraHooks(h ...engine.Hook) ExecutorOption {
	return func(e *ProvisionExecutor) {
		e.hooks = append(e.hooks, h...)
	}
}

func NewProvisionExecutor(cfg *config.Config, log *logger.Logger, opts ...ExecutorOption) *ProvisionExecutor {
	if log == nil {
		log = logger.Default()
	}
	e := &ProvisionExecutor{
		cfg:    cfg,
		logger: log,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named plan; an empty name selects the configured plan.
// The result is nil only when the plan cannot be found.
func (e *ProvisionExecutor) Execute(ctx context.Context, planName string) (*engine.Result, error) {
	if planName == "" {
		planName = e.cfg.Plan
	}
	p, err := plan.Lookup(planName)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	opts := []engine.OptFunc{
		engine.WithRunID(runID),
		engine.WithLogger(e.logger),
		engine.WithOutput(e.out),
		engine.WithHooks(e.buildHooks()...),
	}

	var runLogger *logger.RunLogger
	if e.cfg.RunsDir != "" {
		runDir := filepath.Join(e.cfg.RunsDir, fmt.Sprintf("%s_%s", p.Name, time.Now().Format("2006-01-02_15-04-05")))
		runLogger, err = logger.NewRunLogger(runID, runDir, e.logger)
		if err != nil {
			e.logger.WithError(err).WithField("dir", runDir).Warn("Run log disabled")
		} else {
			defer runLogger.Close()
			opts = append(opts, engine.WithRunLogger(runLogger))
		}
	}

	cmdRunner := e.runner
	if cmdRunner == nil {
		runnerOpts := []runner.SimpleOption{runner.WithLogger(e.logger)}
		if runLogger != nil {
			runnerOpts = append(runnerOpts, runner.WithTee(runLogger.Output()))
		}
		cmdRunner = runner.NewSimpleRunner(runnerOpts...)
	}
	opts = append(opts, engine.WithRunner(cmdRunner))

	return engine.NewEngine(opts...).Run(ctx, p)
}

func (e *ProvisionExecutor) buildHooks() []engine.Hook {
	var hs []engine.Hook
	if e.history != nil {
		hs = append(hs, hooks.NewHistoryHook(e.history))
	}
	if e.cfg.Discord.Enabled() {
		hs = append(hs, hooks.NewNotifierHook(hooks.NotifierHookConfig{
			Token:     e.cfg.Discord.Token,
			ChannelID: e.cfg.Discord.ChannelID,
		}))
	}
	return append(hs, e.hooks...)
}
