package llm

// BuildExpenseJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Types only, no required keys: field presence is judged by the
// normalizer so it can report which field is missing, while the schema rejects
// structurally garbage documents up front.
func BuildExpenseJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"vendor":   map[string]any{"type": "string"},
			"amount":   map[string]any{"type": "string"},
			"category": map[string]any{"type": "string"},
			"date":     map[string]any{"type": "string"},
		},
	}
}
