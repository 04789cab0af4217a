package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/expensebot/mailledger/internal/entity"
)

// CSVWriter appends rows to a plain CSV file, writing the header when the
// file is new. Useful for piping the ledger into other tooling.
type CSVWriter struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewCSVWriter(path string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{path: path, logger: logger}
}

func (w *CSVWriter) Append(_ context.Context, rec entity.ExpenseRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, statErr := os.Stat(w.path)
	isNew := statErr != nil || st.Size() == 0

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &WriteError{Backend: "csv", Err: fmt.Errorf("open: %w", err)}
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("ledger.csv.close_error", "error", err)
		}
	}()

	cw := csv.NewWriter(f)
	if isNew {
		if err := cw.Write(Columns); err != nil {
			return &WriteError{Backend: "csv", Err: fmt.Errorf("write header: %w", err)}
		}
	}
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		rec.Vendor,
		strconv.FormatFloat(rec.Amount, 'f', 2, 64),
		rec.Category,
		rec.Date.Format(dateFormat),
		rec.SourceID,
	}
	if err := cw.Write(row); err != nil {
		return &WriteError{Backend: "csv", Err: fmt.Errorf("write row: %w", err)}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &WriteError{Backend: "csv", Err: fmt.Errorf("flush: %w", err)}
	}

	w.logger.Info("ledger.csv.append.ok", "source_id", rec.SourceID)
	return nil
}

func (w *CSVWriter) Close() error { return nil }
