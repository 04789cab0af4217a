package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/expensebot/mailledger/internal/entity"
)

const dateFormat = "2006-01-02"

// XLSXWriter appends rows to a workbook on disk. The workbook is opened,
// extended, and saved per append; a mutex serializes concurrent webhook
// pipelines, since excelize files are not safe for parallel mutation.
type XLSXWriter struct {
	path   string
	sheet  string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewXLSXWriter(path, sheet string, logger *slog.Logger) *XLSXWriter {
	if sheet == "" {
		sheet = "Expenses"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{path: path, sheet: sheet, logger: logger}
}

func (w *XLSXWriter) Append(_ context.Context, rec entity.ExpenseRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	f, created, err := w.open()
	if err != nil {
		return &WriteError{Backend: "xlsx", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("ledger.xlsx.close_error", "error", err)
		}
	}()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return &WriteError{Backend: "xlsx", Err: fmt.Errorf("read sheet: %w", err)}
	}
	next := len(rows) + 1

	values := []any{
		time.Now().UTC().Format(time.RFC3339),
		rec.Vendor,
		rec.Amount,
		rec.Category,
		rec.Date.Format(dateFormat),
		rec.SourceID,
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, next)
		if err := f.SetCellValue(w.sheet, cell, v); err != nil {
			return &WriteError{Backend: "xlsx", Err: fmt.Errorf("set cell %s: %w", cell, err)}
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return &WriteError{Backend: "xlsx", Err: fmt.Errorf("save workbook: %w", err)}
	}

	w.logger.Info("ledger.xlsx.append.ok",
		"row", next,
		"source_id", rec.SourceID,
		"created_workbook", created,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// open loads the workbook, creating it with a header row when absent.
func (w *XLSXWriter) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(w.sheet); idx == -1 {
			if _, err := f.NewSheet(w.sheet); err != nil {
				_ = f.Close()
				return nil, false, err
			}
			if err := w.writeHeader(f); err != nil {
				_ = f.Close()
				return nil, false, err
			}
		}
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}

	f = excelize.NewFile()
	if _, err := f.NewSheet(w.sheet); err != nil {
		_ = f.Close()
		return nil, false, err
	}
	// drop excelize's default sheet unless it's ours
	if w.sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	if err := w.writeHeader(f); err != nil {
		_ = f.Close()
		return nil, false, err
	}
	return f, true, nil
}

func (w *XLSXWriter) writeHeader(f *excelize.File) error {
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(w.sheet, cell, h); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(w.sheet, "A", "A", 22) // logged at
	_ = f.SetColWidth(w.sheet, "B", "B", 28) // vendor
	_ = f.SetColWidth(w.sheet, "C", "C", 12) // amount
	_ = f.SetColWidth(w.sheet, "D", "D", 18) // category
	_ = f.SetColWidth(w.sheet, "E", "E", 14) // date
	_ = f.SetColWidth(w.sheet, "F", "F", 40) // source id
	return nil
}

func (w *XLSXWriter) Close() error { return nil }
