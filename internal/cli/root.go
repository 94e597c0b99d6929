// Package cli implements provenantctl, the operator tool for migrations,
// chain verification, compliance reports and conflict inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"provenant/internal/compliance"
	"provenant/internal/ledger/models"
	"provenant/internal/platform/config"
	"provenant/internal/platform/logger"
)

// Reader is the ledger read surface the commands need.
type Reader interface {
	compliance.LedgerReader
	Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error)
}

// Backend is an opened set of stores. Migrate is nil when the backend has no
// schema to manage.
type Backend struct {
	Ledger  Reader
	Access  compliance.AccessLog
	Migrate func(ctx context.Context) (int64, error)
	Close   func() error
}

// Opener builds a Backend from configuration.
type Opener func(ctx context.Context, cfg *config.Config) (*Backend, error)

type RootOptions struct {
	ConfigPath string
	Output     string
	Verbose    bool
	Open       Opener
}

var ValidOutputs = []string{"text", "json"}

var ErrNoDatabase = errors.New("no database configured; set PROVENANT_DATABASE_URL or database.url")

func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:   "provenantctl",
		Short: "Operate a provenant ledger",
		Long: `Operator tool for the provenant clinical audit-trail store.

Applies migrations, re-verifies hash chains, produces compliance reports
and lists lineage conflicts. All commands except migrate are read-only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVerifyChainCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewConflictsCommand(opts))
	return cmd
}

// withBackend loads configuration, opens the backend and closes it after fn.
func withBackend(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, b *Backend, log *slog.Logger) error) error {
	cfg, errs := config.Load(opts.ConfigPath)
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	var log *slog.Logger
	if opts.Verbose {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), "text", cfg.SlogLevel())
	} else {
		log = logger.NewWithWriter(io.Discard, "text", cfg.SlogLevel())
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := opts.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer func() { _ = b.Close() }()
	}
	return fn(ctx, b, log)
}
