package extraction

import "context"

// InvoiceFields is the structured shape the model must return.
type InvoiceFields struct {
	VendorName    string     `json:"vendor_name"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"` // YYYY-MM-DD
	DueDate       string     `json:"due_date"`     // YYYY-MM-DD
	PaymentTerms  string     `json:"payment_terms,omitempty"`
	Mobile        string     `json:"mobile,omitempty"`
	Email         string     `json:"email,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	Taxes         Taxes      `json:"taxes"`
	TotalAmount   float64    `json:"total_amount"`
	LineItems     []LineItem `json:"line_items"`
}

type Taxes struct {
	Total float64 `json:"total"`
	GST   float64 `json:"gst,omitempty"`
	HST   float64 `json:"hst,omitempty"`
	QST   float64 `json:"qst,omitempty"`
	PST   float64 `json:"pst,omitempty"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// Usage is the token accounting reported by the model API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Result carries the parsed fields plus the verbatim API response for the
// extraction-run audit record.
type Result struct {
	Fields      InvoiceFields
	RawResponse []byte
	Usage       Usage
	Model       string
}

// Extractor is the interface the intake workflow depends on. Model reports
// the identifier recorded on the extraction-run row before the call starts.
type Extractor interface {
	Extract(ctx context.Context, text string) (Result, error)
	Model() string
}
