package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// newRootCommand builds the command tree. Each call returns a fresh tree so
// tests can execute commands without sharing flag state.
func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	serve := newServeCommand(flags)

	root := &cobra.Command{
		Use:   "server",
		Short: "Charity event manager - accounts, event catalog and enrollments",
		Long: `Charity event manager serves member accounts, the charity event catalog and
event enrollments over a JSON API backed by a document store.

The server supports:
- Signup and login with optional admin codes
- Enrolling in and leaving events, with both sides of the link kept in step
- Repairing one-sided enrollments left by interrupted writes
- Firebase Realtime Database, PostgreSQL, Redis or in-memory storage`,
		SilenceUsage: true,
		// Run serve when no subcommand is given.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.RunE(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (optional, env vars override it)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(
		serve,
		newVersionCommand(),
		newHealthcheckCommand(),
		newReconcileCommand(flags),
		newSeedCommand(flags),
		newAdminCodeCommand(flags),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and env vars, then applies log flags.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	return cfg, nil
}
