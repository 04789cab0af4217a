package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/expensebot/mailledger/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS expenses (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	logged_at         TEXT NOT NULL,
	vendor            TEXT NOT NULL,
	amount            REAL NOT NULL,
	category          TEXT NOT NULL,
	tx_date           TEXT NOT NULL,
	source_message_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_expenses_source ON expenses (source_message_id);
`

// SQLiteWriter appends rows to a local SQLite database. database/sql
// serializes writes, so concurrent webhook appends are safe.
type SQLiteWriter struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteWriter(path string, logger *slog.Logger) (*SQLiteWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer: sqlite locks the whole file anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteWriter{db: db, logger: logger}, nil
}

func (w *SQLiteWriter) Append(ctx context.Context, rec entity.ExpenseRecord) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO expenses (logged_at, vendor, amount, category, tx_date, source_message_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		rec.Vendor,
		rec.Amount,
		rec.Category,
		rec.Date.Format(dateFormat),
		rec.SourceID,
	)
	if err != nil {
		return &WriteError{Backend: "sqlite", Err: err}
	}
	w.logger.Info("ledger.sqlite.append.ok", "source_id", rec.SourceID)
	return nil
}

// HasSource supports the opt-in lookup-before-append dedup check.
func (w *SQLiteWriter) HasSource(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := w.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE source_message_id = ?)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
