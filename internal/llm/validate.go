package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles a generic-map schema once so validation per message
// is cheap.
func CompileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("expense.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("expense.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// ValidateAgainstSchema checks a JSON document against a compiled schema.
func ValidateAgainstSchema(schema *jsonschema.Schema, doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
