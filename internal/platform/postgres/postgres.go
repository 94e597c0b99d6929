// Package postgres opens the shared database handle, applies the embedded
// schema and inspects the append-only guards installed by it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver

	"provenant/pkg/platform/sentinel"
)

// ImmutableSQLState is raised by the append-only triggers.
const ImmutableSQLState = "PV001"

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects and pings the database.
func Open(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// TranslateError maps trigger refusals to sentinel.ErrImmutable and unique
// violations to sentinel.ErrConflict. Other errors pass through unchanged.
func TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case ImmutableSQLState:
		return fmt.Errorf("%s: %w", pgErr.Message, sentinel.ErrImmutable)
	case "23505":
		return fmt.Errorf("%s: %w", pgErr.Message, sentinel.ErrConflict)
	}
	return err
}

// GuardTriggers are the append-only triggers the ledger relies on.
var GuardTriggers = []struct {
	Table   string
	Trigger string
}{
	{"ledger_events", "ledger_events_no_update_delete"},
	{"ledger_events", "ledger_events_no_truncate"},
	{"breakglass_access_log", "breakglass_access_log_no_update_delete"},
}

// VerifyImmutabilityGuard checks that every guard trigger is installed and
// enabled.
func VerifyImmutabilityGuard(ctx context.Context, db *sql.DB) error {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pg_trigger t
			JOIN pg_class c ON t.tgrelid = c.oid
			JOIN pg_namespace n ON c.relnamespace = n.oid
			WHERE c.relname = $1
			AND t.tgname = $2
			AND t.tgenabled <> 'D'
			AND n.nspname = current_schema()
		)
	`
	var missing []string
	for _, g := range GuardTriggers {
		var ok bool
		if err := db.QueryRowContext(ctx, query, g.Table, g.Trigger).Scan(&ok); err != nil {
			return fmt.Errorf("inspect trigger %s: %w", g.Trigger, err)
		}
		if !ok {
			missing = append(missing, g.Table+"."+g.Trigger)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("immutability guard missing or disabled: %v", missing)
	}
	return nil
}
