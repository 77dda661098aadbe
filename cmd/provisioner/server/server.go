package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"provisioner/api/routes"
	"provisioner/cmd/provisioner/app"
	"provisioner/internal/config"
	"provisioner/internal/services"
	"provisioner/pkg/logger"
	"provisioner/pkg/probe"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type ServerOpts struct {
	Port int
	Ip   string
}

func NewServerCommand(opts *app.Options) *cobra.Command {
	serverConfig := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the provisioner status server",
		Long: `Start the HTTP server for the provisioned service. It reports service
status, the ffmpeg installation, the available plans and recorded runs, and
answers POST /speak.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			port, err := listenPort(cmd, a, serverConfig)
			if err != nil {
				return app.ToExitError(err)
			}

			ctx, cancel := a.SignalContext(cmd.Context())
			defer cancel()

			return Serve(ctx, a, fmt.Sprintf("%s:%d", serverConfig.Ip, port))
		},
	}

	serverCmd.Flags().IntVarP(&serverConfig.Port, "port", "p", 8080, "Port to run the server on (overrides server.port)")
	serverCmd.Flags().StringVarP(&serverConfig.Ip, "ip", "i", "", "IP address to bind the server to (default all interfaces)")

	return serverCmd
}

// listenPort prefers --port over server.port (or the platform PORT).
func listenPort(cmd *cobra.Command, a *app.App, serverConfig *ServerOpts) (int, error) {
	if cmd.Flags().Changed("port") {
		return serverConfig.Port, config.ValidatePort(serverConfig.Port)
	}
	return a.Config.Server.ListenPort()
}

// Serve runs the status server until ctx is cancelled.
func Serve(ctx context.Context, a *app.App, addr string) error {
	if a.Logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	history, err := services.OpenHistory(a.Config, a.Logger)
	if err != nil {
		return app.ToExitError(fmt.Errorf("failed to open run history: %w", err))
	}
	if watcher, ok := history.(services.Watcher); ok {
		go func() {
			if err := watcher.Watch(ctx, nil); err != nil {
				a.Logger.WithError(err).Error("Run history watcher stopped")
			}
		}()
	}

	router := routes.InitRouter(routes.Services{
		Status: services.NewStatusService(probe.NewProber()),
		Plans:  services.NewPlanService(nil),
		Runs:   services.NewRunService(history),
		Speech: services.NewSpeechService(a.Config.Speech, a.Logger),
		Logger: a.Logger,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.Logger.WithFields(logger.Fields{"addr": addr}).Info("Status server listening")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		a.Logger.Info("Shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
