package ledger_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/ledger"
)

func testRecord(sourceID string) entity.ExpenseRecord {
	return entity.ExpenseRecord{
		Vendor:   "Starbucks",
		Amount:   4.75,
		Category: "Food",
		Date:     time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		SourceID: sourceID,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_HeaderThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	w := ledger.NewCSVWriter(path, nil)

	require.NoError(t, w.Append(context.Background(), testRecord("<a@x>")))
	require.NoError(t, w.Append(context.Background(), testRecord("<b@x>")))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.Columns, rows[0])
	assert.Equal(t, "Starbucks", rows[1][1])
	assert.Equal(t, "4.75", rows[1][2])
	assert.Equal(t, "Food", rows[1][3])
	assert.Equal(t, "2025-03-12", rows[1][4])
	assert.Equal(t, "<a@x>", rows[1][5])
	assert.Equal(t, "<b@x>", rows[2][5])
}

func TestCSVWriter_ReprocessingAppendsDuplicateRow(t *testing.T) {
	// at-least-once: the same source id simply appends again
	path := filepath.Join(t.TempDir(), "expenses.csv")
	w := ledger.NewCSVWriter(path, nil)

	require.NoError(t, w.Append(context.Background(), testRecord("<dup@x>")))
	require.NoError(t, w.Append(context.Background(), testRecord("<dup@x>")))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, rows[1], rows[2])
}

func TestCSVWriter_WriteErrorOnBadPath(t *testing.T) {
	w := ledger.NewCSVWriter(filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv"), nil)

	err := w.Append(context.Background(), testRecord("<a@x>"))
	var werr *ledger.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "csv", werr.Backend)
}
