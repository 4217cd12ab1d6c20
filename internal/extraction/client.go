package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/invoice-intake/internal/config"
)

const anthropicVersion = "2023-06-01"

// Client talks to the Anthropic messages API and turns invoice text into
// schema-validated structured fields.
type Client struct {
	cfg        config.ExtractionConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.ExtractionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage Usage `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract sends the document text to the model and returns the parsed
// fields, the verbatim API response, and token usage.
func (c *Client) Extract(ctx context.Context, text string) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("extraction.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(text),
	)

	schema := BuildInvoiceJSONSchema()
	body := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    buildSystemPrompt() + "\n\nJSON Schema:\n" + mustJSON(schema),
		Messages:  []message{{Role: "user", Content: buildUserPrompt(text)}},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	raw, err := c.post(ctx, endpoint, body, rid)
	if err != nil {
		c.log.Error("extraction.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, err
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.log.Error("extraction.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return Result{}, fmt.Errorf("decode model response: %w", err)
	}
	if mr.Error != nil {
		return Result{}, fmt.Errorf("model error %s: %s", mr.Error.Type, mr.Error.Message)
	}
	var content string
	for _, part := range mr.Content {
		if part.Type == "text" {
			content += part.Text
		}
	}
	if content == "" {
		return Result{}, fmt.Errorf("no text content in model response")
	}

	fieldsJSON := []byte(stripCodeFence(content))
	if err := ValidateAgainstSchema(schema, fieldsJSON); err != nil {
		c.log.Error("extraction.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, fmt.Errorf("model output rejected: %w", err)
	}

	var fields InvoiceFields
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		return Result{}, fmt.Errorf("decode fields: %w", err)
	}

	model := mr.Model
	if model == "" {
		model = c.cfg.Model
	}
	c.log.Info("extraction.done",
		"req_id", rid,
		"model", model,
		"tokens_in", mr.Usage.InputTokens,
		"tokens_out", mr.Usage.OutputTokens,
		"line_items", len(fields.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Fields: fields, RawResponse: raw, Usage: mr.Usage, Model: model}, nil
}

// Model returns the configured model identifier (recorded on the run row
// before the API reports back).
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) post(ctx context.Context, url string, body any, rid string) ([]byte, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("extraction.body_close_error", "req_id", rid, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("model api status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
