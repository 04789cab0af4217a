// Package ledger is the append-only persistent store for validated expense
// records. The schema is fixed; rows are never updated or deleted.
package ledger

import (
	"context"
	"fmt"

	"github.com/expensebot/mailledger/internal/entity"
)

// Columns is the fixed column order every backend writes.
var Columns = []string{
	"Logged At",
	"Vendor",
	"Amount",
	"Category",
	"Date",
	"Source Message ID",
}

// Writer appends one validated record per call. Implementations must be safe
// under concurrent invocation: webhook requests run pipelines in parallel.
//
// Appends are best-effort at-least-once: no backend checks for an existing
// source message id before writing unless the caller asks via SourceChecker.
type Writer interface {
	Append(ctx context.Context, rec entity.ExpenseRecord) error
	Close() error
}

// SourceChecker is implemented by backends that can answer the opt-in
// lookup-before-append dedup question. File backends (xlsx, csv) don't.
type SourceChecker interface {
	HasSource(ctx context.Context, sourceID string) (bool, error)
}

// WriteError surfaces a store-side failure (quota, auth, transient network).
// The caller decides whether to retry the whole message later.
type WriteError struct {
	Backend string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ledger append (%s): %v", e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
