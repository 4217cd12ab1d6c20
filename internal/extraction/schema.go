package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns the schema the model's JSON output must
// satisfy before it is trusted by the workflow.
func BuildInvoiceJSONSchema() map[string]any {
	number := map[string]any{"type": "number"}
	str := map[string]any{"type": "string"}
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"vendor_name":    map[string]any{"type": "string", "minLength": 1},
			"invoice_number": str,
			"invoice_date":   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"due_date":       map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"payment_terms":  str,
			"mobile":         str,
			"email":          str,
			"subtotal":       number,
			"taxes": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"total": number,
					"gst":   number,
					"hst":   number,
					"qst":   number,
					"pst":   number,
				},
				"required":             []string{"total"},
				"additionalProperties": false,
			},
			"total_amount": number,
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": str,
						"quantity":    number,
						"rate":        number,
						"amount":      number,
					},
					"required":             []string{"description", "quantity", "rate", "amount"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"vendor_name", "invoice_number", "invoice_date", "due_date", "subtotal", "taxes", "total_amount", "line_items"},
		"additionalProperties": false,
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
