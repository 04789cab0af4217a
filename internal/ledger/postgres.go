package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensebot/mailledger/internal/entity"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS expenses (
	id                BIGSERIAL PRIMARY KEY,
	logged_at         TIMESTAMPTZ NOT NULL,
	vendor            TEXT NOT NULL,
	amount            NUMERIC(12,2) NOT NULL,
	category          TEXT NOT NULL,
	tx_date           DATE NOT NULL,
	source_message_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_expenses_source ON expenses (source_message_id);
`

// PostgresConfig carries pool tuning for the postgres backend.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// PostgresWriter appends rows through a pgx pool; the database serializes
// concurrent appends.
type PostgresWriter struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresWriter(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "mailledger"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("ledger.postgres.connected")
	return &PostgresWriter{pool: pool, logger: logger}, nil
}

func (w *PostgresWriter) Append(ctx context.Context, rec entity.ExpenseRecord) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO expenses (logged_at, vendor, amount, category, tx_date, source_message_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		time.Now().UTC(),
		rec.Vendor,
		rec.Amount,
		rec.Category,
		rec.Date,
		rec.SourceID,
	)
	if err != nil {
		return &WriteError{Backend: "postgres", Err: err}
	}
	w.logger.Info("ledger.postgres.append.ok", "source_id", rec.SourceID)
	return nil
}

// HasSource supports the opt-in lookup-before-append dedup check.
func (w *PostgresWriter) HasSource(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := w.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE source_message_id = $1)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}

func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}
