package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply the embedded SQL migrations, including the triggers that make
ledger_events and the break-glass access log append-only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, rootOpts, func(ctx context.Context, b *Backend, log *slog.Logger) error {
				if b.Migrate == nil {
					return ErrNoDatabase
				}
				version, err := b.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				log.Info("migrations applied", "version", version)
				if rootOpts.Output == "json" {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int64{"schema_version": version})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return err
			})
		},
	}
}
