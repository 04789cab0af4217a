package llm

import "context"

// ExpenseFields is the normalized shape we want from the model. All fields
// arrive as strings after sanitization; the normalizer does the typed
// coercion.
type ExpenseFields struct {
	Vendor   string `json:"vendor"`
	Amount   string `json:"amount"` // decimal
	Category string `json:"category"`
	Date     string `json:"date,omitempty"` // YYYY-MM-DD, optional
}

// Completer is the single-turn completion boundary the extraction client
// depends on. It returns the raw message content, unparsed: the model is not
// guaranteed to return well-formed JSON, and parsing it defensively is the
// normalizer's job.
type Completer interface {
	Complete(ctx context.Context, system, user string) ([]byte, error)
}
