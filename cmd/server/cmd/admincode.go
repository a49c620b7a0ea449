package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/sanitize"
)

func newAdminCodeCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-code",
		Short: "Manage admin codes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <key> <code>",
		Short: "Store an admin code",
		Long: `Store an admin code under Admin_Codes/<key>. Anyone who signs up with the
code becomes an administrator.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, code := args[0], args[1]
			if !docstore.ValidKey(key) {
				return fmt.Errorf("invalid key %q", key)
			}
			if code == "" || !sanitize.IsClean(code) {
				return fmt.Errorf("code must be non-empty and free of quote, terminator and comment symbols")
			}
			return withStore(cmd.Context(), flags, func(ctx context.Context, store docstore.Store, logger zerolog.Logger) error {
				if err := accounts.NewValidator(store).AddAdminCode(ctx, key, code); err != nil {
					return err
				}
				logger.Info().Str("key", key).Msg("admin code stored")
				fmt.Fprintf(cmd.OutOrStdout(), "admin code %s stored\n", key)
				return nil
			})
		},
	})
	return cmd
}
