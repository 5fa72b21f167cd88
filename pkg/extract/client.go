// Package extract is a client for a structured entity-extraction API: given
// free text and a list of field names, the service returns a value and a
// confidence score for each field it could locate.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultInvoiceFields is used when an extractor node configures no explicit
// field list.
var DefaultInvoiceFields = []string{
	"invoice_number",
	"invoice_date",
	"due_date",
	"vendor_name",
	"total_amount",
	"tax_amount",
	"currency",
}

// Result is the outcome of one field-extraction call.
type Result struct {
	Fields     map[string]any     `json:"fields"`
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

type Client struct {
	apiKey string
	url    string
	hc     *http.Client
}

func NewClient(apiKey, url string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("extraction api key not configured")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		url:    url,
		hc:     &http.Client{Timeout: timeout},
	}, nil
}

type extractRequest struct {
	Text        string   `json:"text"`
	Fields      []string `json:"fields"`
	Model       string   `json:"model"`
	Description string   `json:"description,omitempty"`
}

type extractResponse struct {
	Fields     map[string]any     `json:"fields"`
	Confidence map[string]float64 `json:"confidence"`
}

// ExtractFields asks the extraction service for the named fields in text.
func (c *Client) ExtractFields(ctx context.Context, text string, fields []string, model, description string) (*Result, error) {
	body, err := json.Marshal(extractRequest{
		Text:        text,
		Fields:      fields,
		Model:       model,
		Description: description,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode extraction request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build extraction request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call extraction api")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var detail bytes.Buffer
		_, _ = detail.ReadFrom(resp.Body)
		return nil, errors.Errorf("extraction api error (status %d): %s",
			resp.StatusCode, strings.TrimSpace(detail.String()))
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode extraction response")
	}
	if decoded.Fields == nil {
		decoded.Fields = map[string]any{}
	}

	return &Result{Fields: decoded.Fields, Confidence: decoded.Confidence}, nil
}
