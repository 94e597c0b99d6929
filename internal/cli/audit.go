package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"provenant/internal/compliance"
)

// ErrFatalFindings is returned when a report carries fatal findings and the
// caller asked to fail on them.
var ErrFatalFindings = errors.New("compliance report has fatal findings")

func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		format      string
		failOnFatal bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run every compliance check and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := compliance.ParseFormat(format)
			if err != nil {
				return err
			}
			return withBackend(cmd, rootOpts, func(ctx context.Context, b *Backend, log *slog.Logger) error {
				auditor, err := compliance.New(b.Ledger, b.Access, compliance.WithLogger(log))
				if err != nil {
					return err
				}
				report, err := auditor.Run(ctx)
				if err != nil {
					return fmt.Errorf("audit: %w", err)
				}
				if err := compliance.Write(cmd.OutOrStdout(), report, f); err != nil {
					return err
				}
				if failOnFatal && report.Summary.Fatal {
					return ErrFatalFindings
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "report format (json|csv)")
	cmd.Flags().BoolVar(&failOnFatal, "fail-on-fatal", true, "exit non-zero when the report has fatal findings")
	return cmd
}
