package entity

import (
	"time"
)

// ExpenseRecord is the validated expense entity written to the ledger.
// Constructed once by the normalizer; immutable; appended once; never
// updated or deleted.
type ExpenseRecord struct {
	Vendor   string
	Amount   float64 // always > 0 once validated
	Category string
	Date     time.Time // date portion only, UTC
	SourceID string    // RawMessage.ID, for audit/dedup
}
