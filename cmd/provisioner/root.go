package main

import (
	"context"

	"provisioner/cmd/provisioner/app"
	"provisioner/cmd/provisioner/run"
	"provisioner/cmd/provisioner/server"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	opts := &app.Options{}

	var rootCmd = &cobra.Command{
		Use:   "provisioner",
		Short: "Install ffmpeg and Python dependencies before deploy",
		Long: `Provisioner runs a fixed, ordered list of package manager commands
(apt-get, then pip) and stops at the first one that fails. Without a
subcommand it runs the configured plan.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          run.RunE(opts, nil),
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "Config file (default: provisioner.yaml in ., /etc/provisioner, $HOME/.provisioner)")

	rootCmd.AddCommand(run.NewRunCommand(opts))
	rootCmd.AddCommand(run.NewPlansCommand())
	rootCmd.AddCommand(run.NewCheckCommand())
	rootCmd.AddCommand(server.NewServerCommand(opts))
	return rootCmd
}

func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
