package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"provenant/internal/ledger/models"
)

func NewConflictsCommand(rootOpts *RootOptions) *cobra.Command {
	var onlyOpen bool
	cmd := &cobra.Command{
		Use:   "conflicts <record_id>",
		Short: "List lineage conflicts of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid record id %q: %w", args[0], err)
			}
			return withBackend(cmd, rootOpts, func(ctx context.Context, b *Backend, _ *slog.Logger) error {
				conflicts, err := b.Ledger.Conflicts(ctx, recordID, onlyOpen)
				if err != nil {
					return err
				}
				return writeConflicts(cmd, rootOpts.Output, conflicts)
			})
		},
	}
	cmd.Flags().BoolVar(&onlyOpen, "open", false, "only unresolved conflicts")
	return cmd
}

func writeConflicts(cmd *cobra.Command, output string, conflicts []models.ConflictRecord) error {
	if output == "json" {
		if conflicts == nil {
			conflicts = []models.ConflictRecord{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tSERVER\tSUBMITTED_BY\tDETECTED_AT\tRESOLUTION")
	for _, c := range conflicts {
		resolution := "open"
		if c.Resolved {
			resolution = string(c.ResolutionStrategy)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n", c.ID, c.ClientVersion, c.ServerVersion, c.SubmittedBy,
			c.DetectedAt.UTC().Format(time.RFC3339), resolution)
	}
	return tw.Flush()
}
