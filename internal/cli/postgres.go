package cli

import (
	"context"

	bgpostgres "provenant/internal/breakglass/store/postgres"
	ledgerpostgres "provenant/internal/ledger/store/postgres"
	outboxpostgres "provenant/internal/outbox/store/postgres"
	"provenant/internal/platform/config"
	pgplatform "provenant/internal/platform/postgres"
)

// OpenPostgres is the production Opener.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if !cfg.HasDatabase() {
		return nil, ErrNoDatabase
	}
	db, err := pgplatform.Open(ctx, cfg.Database.URL, pgplatform.Options{MaxOpenConns: 4, MaxIdleConns: 1})
	if err != nil {
		return nil, err
	}
	bg := bgpostgres.New(db)
	ledger, err := ledgerpostgres.New(db, bg, outboxpostgres.New(db))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Backend{
		Ledger: ledger,
		Access: bg,
		Migrate: func(context.Context) (int64, error) {
			if err := pgplatform.RunMigrations(db); err != nil {
				return 0, err
			}
			return pgplatform.SchemaVersion(db)
		},
		Close: db.Close,
	}, nil
}
