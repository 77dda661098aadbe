// Package app holds what every provisioner subcommand shares: global flags,
// loaded configuration and the logger.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"provisioner/internal/config"
	"provisioner/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Options are the persistent flags of the root command.
type Options struct {
	ConfigFile string
	Verbose    bool
}

type App struct {
	Config *config.Config
	Logger *logger.Logger
}

// New loads configuration and builds the logger. Configuration errors come
// back as an *ExitError with code 2.
func New(opts *Options) (*App, error) {
	cfg, err := config.Load(config.Options{ConfigFile: opts.ConfigFile})
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}

	level := logger.ParseLevel(cfg.Log.Level, opts.Verbose)
	appLogger := logger.NewLoggerWithFormat(level, cfg.Log.Format)
	logger.SetLevel(level)
	logrus.SetLevel(level)

	return &App{Config: cfg, Logger: appLogger}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func (a *App) SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			a.Logger.WithFields(logger.Fields{
				"signal": sig.String(),
			}).Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
