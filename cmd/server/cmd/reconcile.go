package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/audit"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/enrollment"
)

func newReconcileCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair one-sided enrollments",
		Long: `Scan every user and event and make their enrollment lists agree.

User records are authoritative: an event roster gains or loses a user to
match the user's enrolled events. Ids that point at a missing record are
dropped. The report is printed as JSON.

Examples:
  # Show what would change
  server reconcile --dry-run

  # Apply repairs against PostgreSQL
  STORE_BACKEND=postgres STORE_URL=postgres://... server reconcile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store docstore.Store, logger zerolog.Logger) error {
				coordinator := enrollment.NewCoordinator(store, audit.NewLoggerWithZerolog(logger), logger)
				report, err := enrollment.NewReconciler(coordinator).Reconcile(ctx, enrollment.Options{DryRun: dryRun})
				if err != nil && report.Failed == 0 {
					return fmt.Errorf("reconcile: %w", err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
				if err != nil {
					return fmt.Errorf("reconcile: %d repairs failed: %w", report.Failed, err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report repairs without writing them")
	return cmd
}

// withStore loads config, opens the store and runs fn with it.
func withStore(ctx context.Context, flags *globalFlags, fn func(context.Context, docstore.Store, zerolog.Logger) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg, Version)
	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()
	return fn(ctx, store, logger)
}
