package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/invoice-intake/internal/config"
)

func testConfig(baseURL string) config.ExtractionConfig {
	return config.ExtractionConfig{
		APIKey:    "test-key",
		Model:     "claude-sonnet-4-20250514",
		BaseURL:   baseURL,
		MaxTokens: 4096,
		Timeout:   5 * time.Second,
	}
}

func messagesBody(text string) string {
	body, _ := json.Marshal(map[string]any{
		"model": "claude-sonnet-4-20250514",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"usage": map[string]int{"input_tokens": 321, "output_tokens": 123},
	})
	return string(body)
}

func TestClientExtract(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq messagesRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesBody("```json\n" + validFieldsJSON + "\n```")))
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), nil)
	res, err := c.Extract(context.Background(), "some invoice text")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if gotPath != "/v1/messages" {
		t.Errorf("wrong endpoint: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key not sent: %q", gotKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version not sent: %q", gotVersion)
	}
	if gotReq.Model != "claude-sonnet-4-20250514" || gotReq.MaxTokens != 4096 {
		t.Errorf("request not built from config: %+v", gotReq)
	}
	if !strings.Contains(gotReq.System, "JSON Schema:") {
		t.Errorf("system prompt should embed the schema: %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || !strings.Contains(gotReq.Messages[0].Content, "some invoice text") {
		t.Errorf("document text missing from user message: %+v", gotReq.Messages)
	}

	if res.Fields.VendorName != "Acme Inc." {
		t.Errorf("vendor not parsed: %+v", res.Fields)
	}
	if res.Fields.TotalAmount != 105 || res.Fields.Taxes.GST != 5 {
		t.Errorf("amounts not parsed: %+v", res.Fields)
	}
	if len(res.Fields.LineItems) != 2 {
		t.Errorf("line items not parsed: %+v", res.Fields.LineItems)
	}
	if res.Usage.InputTokens != 321 || res.Usage.OutputTokens != 123 {
		t.Errorf("usage not captured: %+v", res.Usage)
	}
	if res.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model not captured: %s", res.Model)
	}
	if len(res.RawResponse) == 0 {
		t.Error("raw response not captured")
	}
}

func TestClientExtractAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error","message":"try later"}}`, http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), nil)
	if _, err := c.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error on non-2xx status")
	} else if !strings.Contains(err.Error(), "503") {
		t.Fatalf("status should be reported: %v", err)
	}
}

func TestClientExtractRejectsBadOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Syntactically fine JSON that violates the schema.
		_, _ = w.Write([]byte(messagesBody(`{"vendor_name":"Acme Inc."}`)))
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), nil)
	_, err := c.Extract(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "model output rejected") {
		t.Fatalf("expected schema rejection, got %v", err)
	}
}

func TestClientExtractNoTextContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","content":[],"usage":{}}`))
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), nil)
	if _, err := c.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error when response carries no text")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
