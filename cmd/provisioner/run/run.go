package run

import (
	"context"
	"fmt"
	"io"
	"strings"

	"provisioner/cmd/provisioner/app"
	"provisioner/internal/services"
	"provisioner/pkg/logger"
	"provisioner/pkg/plan"
	"provisioner/pkg/probe"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Execute runs one plan with the loaded configuration. An empty planName
// selects the configured plan.
func Execute(ctx context.Context, a *app.App, planName string) error {
	history, err := services.OpenHistory(a.Config, a.Logger)
	if err != nil {
		a.Logger.WithError(err).Warn("Run history unavailable, continuing without it")
		history = nil
	}

	ctx, cancel := a.SignalContext(ctx)
	defer cancel()

	executor := services.NewProvisionExecutor(a.Config, a.Logger, services.WithHistory(history))
	result, err := executor.Execute(ctx, planName)
	if err != nil {
		return app.ToExitError(err)
	}

	a.Logger.WithFields(logger.Fields{
		"run_id": result.RunID,
		"plan":   result.Plan,
	}).Info("All provisioning steps finished")
	return nil
}

// RunE is the handler shared by the root command and `run`.
func RunE(opts *app.Options, planName *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		a, err := app.New(opts)
		if err != nil {
			return err
		}

		name := ""
		if planName != nil {
			name = *planName
		}
		return Execute(cmd.Context(), a, name)
	}
}

func NewRunCommand(opts *app.Options) *cobra.Command {
	var planName string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a provisioning plan",
		Long: `Run every step of a provisioning plan in order, stopping at the first
step that fails. The process exits with the failing command's status.`,
		Args: cobra.NoArgs,
		RunE: RunE(opts, &planName),
	}

	runCmd.Flags().StringVarP(&planName, "plan", "p", "",
		fmt.Sprintf("Plan to run (%s); defaults to the configured plan", strings.Join(plan.Names(), ", ")))

	return runCmd
}

// NewPlansCommand lists the compiled-in plans and their steps.
func NewPlansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List available provisioning plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return RenderPlans(cmd.OutOrStdout(), services.NewPlanService(nil).ListPlans())
		},
	}
}

func RenderPlans(w io.Writer, plans []services.PlanView) error {
	table := tablewriter.NewWriter(w)
	table.Header("Plan", "#", "Step", "Command", "Announce")

	for _, p := range plans {
		name := p.Name
		if p.Default {
			name += " (default)"
		}
		for i, step := range p.Steps {
			table.Append([]string{name, fmt.Sprintf("%d", i+1), step.Name, step.Command, step.Announce})
		}
	}

	return table.Render()
}

// NewCheckCommand reports whether ffmpeg is installed. It exits 1 when it is not.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that ffmpeg is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return Check(cmd.Context(), cmd.OutOrStdout(), probe.NewProber())
		},
	}
}

func Check(ctx context.Context, w io.Writer, prober services.Prober) error {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := prober.FFmpeg(ctx)
	if err != nil {
		return &app.ExitError{Code: app.ExitFailure, Err: err}
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	table.Append([]string{"ffmpeg found", fmt.Sprintf("%t", info.Found)})
	if info.Found {
		table.Append([]string{"Path", info.Path})
		table.Append([]string{"Version", info.VersionLine})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !info.Found {
		return &app.ExitError{Code: app.ExitFailure, Err: fmt.Errorf("ffmpeg not found on PATH")}
	}
	return nil
}

