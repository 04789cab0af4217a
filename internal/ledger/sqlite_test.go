package ledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/ledger"
)

func newSQLite(t *testing.T) *ledger.SQLiteWriter {
	t.Helper()
	w, err := ledger.NewSQLiteWriter(filepath.Join(t.TempDir(), "expenses.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestSQLiteWriter_AppendAndHasSource(t *testing.T) {
	w := newSQLite(t)
	ctx := context.Background()

	seen, err := w.HasSource(ctx, "<a@x>")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, w.Append(ctx, testRecord("<a@x>")))

	seen, err = w.HasSource(ctx, "<a@x>")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSQLiteWriter_ConcurrentAppends(t *testing.T) {
	w := newSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Append(ctx, testRecord("<conc@x>")))
		}()
	}
	wg.Wait()
}
