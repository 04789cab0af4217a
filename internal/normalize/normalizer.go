// Package normalize coerces raw model output into a validated ExpenseRecord.
// Model output is adversarial by nature: nothing about field presence or type
// is trusted here.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/expensebot/mailledger/constants"
	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/llm"
)

type Normalizer struct {
	schema *jsonschema.Schema
	logger *slog.Logger
}

func New(logger *slog.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileSchema(llm.BuildExpenseJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("compile expense schema: %w", err)
	}
	return &Normalizer{schema: schema, logger: logger}, nil
}

// Normalize turns one extraction outcome into an ExpenseRecord or a
// *ValidationError. upstreamErr is the extraction client's error, if any;
// it is propagated as UpstreamFailure without looking at the payload.
func (n *Normalizer) Normalize(payload []byte, upstreamErr error, msg *entity.RawMessage) (entity.ExpenseRecord, error) {
	if upstreamErr != nil {
		return entity.ExpenseRecord{}, &ValidationError{Reason: UpstreamFailure, Cause: upstreamErr}
	}

	cleaned, _, err := llm.NormalizeAndSanitizeJSON(payload, n.logger)
	if err != nil {
		return entity.ExpenseRecord{}, &ValidationError{Reason: MalformedResponse, Cause: err}
	}
	if err := llm.ValidateAgainstSchema(n.schema, cleaned); err != nil {
		return entity.ExpenseRecord{}, &ValidationError{Reason: MalformedResponse, Cause: err}
	}

	var fields llm.ExpenseFields
	if err := json.Unmarshal(cleaned, &fields); err != nil {
		return entity.ExpenseRecord{}, &ValidationError{Reason: MalformedResponse, Cause: err}
	}

	vendor := strings.TrimSpace(fields.Vendor)
	if vendor == "" {
		return entity.ExpenseRecord{}, missingField("vendor")
	}

	if strings.TrimSpace(fields.Amount) == "" {
		return entity.ExpenseRecord{}, invalidField("amount", errors.New("absent"))
	}
	amount, err := ParseAmount(fields.Amount)
	if err != nil {
		return entity.ExpenseRecord{}, invalidField("amount", err)
	}

	category := strings.TrimSpace(fields.Category)
	if category == "" {
		return entity.ExpenseRecord{}, missingField("category")
	}
	if canon, ok := constants.Canonicalize(category); ok {
		category = canon
	}

	// date is optional by design: absent or unparsable falls back to the
	// message's received date, never an error.
	date, ok := ParseDate(fields.Date)
	if !ok {
		date = dateOnly(msg.ReceivedAt)
		if fields.Date != "" {
			n.logger.Debug("normalize.date.fallback",
				"message_id", msg.ID, "raw_date", fields.Date)
		}
	}

	return entity.ExpenseRecord{
		Vendor:   vendor,
		Amount:   amount,
		Category: category,
		Date:     date,
		SourceID: msg.ID,
	}, nil
}

// ParseAmount accepts numeric-string amounts as models actually emit them:
// currency symbols, currency codes, and thousands separators are stripped
// before parsing. The result must be a positive decimal.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	for _, sym := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP"} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive amount %v", v)
	}
	return v, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDate tries the calendar-date formats we recognize, returning the date
// portion in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
