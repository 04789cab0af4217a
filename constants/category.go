package constants

import (
	"strings"
)

type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Travel        Category = "Travel"
	Health        Category = "Health"
	Other         Category = "Other"
)

var allCategories = []Category{
	Food,
	Transport,
	Shopping,
	Utilities,
	Entertainment,
	Travel,
	Health,
	Other,
}

// AsStringSlice returns the default category labels offered to the model.
// The set is open: unknown labels are passed through, not rejected.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label onto a known category when possible.
// Returns the input unchanged (and false) when no mapping applies, since the
// category set is open by design.
func Canonicalize(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	normalized := strings.ToLower(trimmed)

	// synonyms map
	synonyms := map[string]Category{
		"meals":          Food,
		"groceries":      Food,
		"restaurant":     Food,
		"coffee":         Food,
		"uber":           Transport,
		"lyft":           Transport,
		"taxi":           Transport,
		"transportation": Transport,
		"transit":        Transport,
		"gas":            Transport,
		"fuel":           Transport,
		"parking":        Transport,
		"airline":        Travel,
		"hotel":          Travel,
		"lodging":        Travel,
		"internet":       Utilities,
		"phone":          Utilities,
		"electricity":    Utilities,
		"pharmacy":       Health,
		"medical":        Health,
		"movies":         Entertainment,
		"streaming":      Entertainment,
		"retail":         Shopping,
		"clothing":       Shopping,
	}

	if cat, ok := synonyms[normalized]; ok {
		return string(cat), true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return string(cat), true
		}
	}

	return trimmed, false
}
