package hooks

import (
	"context"
	"fmt"

	"provisioner/internal/dao"
	"provisioner/internal/models"
	"provisioner/pkg/engine"
)

// HistoryHook records every finished run through a RunDAO.
type HistoryHook struct {
	dao dao.RunDAO
}

func NewHistoryHook(runDAO dao.RunDAO) *HistoryHook {
	return &HistoryHook{dao: runDAO}
}

func (h *HistoryHook) Name() string {
	return "history"
}

func (h *HistoryHook) AfterRun(ctx context.Context, result *engine.Result) error {
	if err := h.dao.SaveRun(RunFromResult(result)); err != nil {
		return fmt.Errorf("failed to record run %s: %w", result.RunID, err)
	}
	return nil
}

// RunFromResult projects an engine result onto the persisted run model.
func RunFromResult(result *engine.Result) *models.Run {
	run := &models.Run{
		UUID:       result.RunID,
		Plan:       result.Plan,
		Status:     string(result.State),
		ExitCode:   result.ExitCode,
		FailedStep: result.FailedStep,
		Error:      result.Error,
		StepsRun:   len(result.Steps),
		StepsTotal: result.StepsTotal,
		Steps:      make([]models.RunStep, 0, len(result.Steps)),
		DurationMs: result.Duration().Milliseconds(),
		StartedAt:  result.StartedAt.UnixMilli(),
	}
	if !result.FinishedAt.IsZero() {
		run.FinishedAt = result.FinishedAt.UnixMilli()
	}

	for _, step := range result.Steps {
		run.Steps = append(run.Steps, models.RunStep{
			Name:       step.Name,
			Command:    step.Command,
			ExitCode:   step.ExitCode,
			DurationMs: step.Duration.Milliseconds(),
			Error:      step.Error,
		})
	}
	return run
}
