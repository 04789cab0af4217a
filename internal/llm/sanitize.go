package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// NormalizeAndSanitizeJSON makes near-miss model output validate without
// hiding real failures:
//   - strips markdown code fences around the object
//   - renames known key synonyms (merchant -> vendor, total -> amount, ...)
//   - drops null/empty values
//   - coerces a numeric amount to its string form
//   - removes unknown keys (strict additionalProperties friendliness)
//
// A document that doesn't decode as a JSON object is returned as an error;
// that is the normalizer's MalformedResponse case, not ours to mask.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(stripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	rename("merchant", "vendor")
	rename("merchant_name", "vendor")
	rename("vendor_name", "vendor")
	rename("total", "amount")
	rename("total_amount", "amount")
	rename("price", "amount")
	rename("tx_date", "date")
	rename("purchase_date", "date")

	// amount: numeric -> string; null/empty -> gone
	if v, ok := m["amount"]; ok {
		switch t := v.(type) {
		case float64:
			m["amount"] = fmt.Sprintf("%.2f", t)
		case string:
			if strings.TrimSpace(t) == "" || strings.EqualFold(strings.TrimSpace(t), "null") {
				delete(m, "amount")
				dropped = append(dropped, "amount(empty)")
			} else {
				m["amount"] = strings.TrimSpace(t)
			}
		case nil:
			delete(m, "amount")
			dropped = append(dropped, "amount(null)")
		default:
			delete(m, "amount")
			dropped = append(dropped, "amount(type)")
		}
	}

	// trim string fields; drop nulls and empties. Wrong-typed values are
	// left alone so schema validation can flag the document as malformed.
	for _, k := range []string{"vendor", "category", "date"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		}
	}

	// remove unknown keys
	allowed := map[string]struct{}{"vendor": {}, "amount": {}, "category": {}, "date": {}}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.sanitize.applied", "dropped", dropped)
	}
	return out, dropped, nil
}

// stripFences removes a leading/trailing markdown code fence, a common model
// tic even under json_object response format.
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
