package extraction

import "strings"

// buildSystemPrompt composes the system message with the formatting rules
// the schema validation later enforces.
func buildSystemPrompt() string {
	parts := []string{
		"You are an invoice parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Use ISO-8601 dates (YYYY-MM-DD). If a due date is absent, use the invoice date.",
		"Monetary values are plain numbers without currency symbols or thousands separators.",
		"Put GST/HST/QST/PST amounts under 'taxes' and their sum in 'taxes.total'.",
		"List every visible line item in 'line_items', preserving document order.",
		"Never output null. If an optional field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the structured invoice fields from the following document text.\n\n")
	b.WriteString("--- DOCUMENT START ---\n")
	b.WriteString(text)
	b.WriteString("\n--- DOCUMENT END ---\n")
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models wrap around JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
