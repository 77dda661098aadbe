package engine

import (
	"context"

	"provisioner/pkg/logger"
)

// Hook observes a finished run. Hooks cannot change the run's outcome.
type Hook interface {
	Name() string
	AfterRun(ctx context.Context, result *Result) error
}

// HookFunc adapts a function into a Hook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, result *Result) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) AfterRun(ctx context.Context, result *Result) error {
	return h.Fn(ctx, result)
}

// runHooks calls every hook in registration order. Failures are logged only.
func (e *Engine) runHooks(ctx context.Context, result *Result) {
	for _, hook := range e.hooks {
		if err := hook.AfterRun(ctx, result); err != nil {
			e.logger.WithFields(logger.Fields{
				"hook":   hook.Name(),
				"run_id": result.RunID,
			}).WithError(err).Warn("Post-run hook failed")
			continue
		}
		e.logger.WithFields(logger.Fields{
			"hook":   hook.Name(),
			"run_id": result.RunID,
		}).Debug("Post-run hook completed")
	}
}
