// Package ocr is a client for a Mistral-style document OCR API. Documents
// are submitted inline as base64 data URLs and the extracted text comes
// back as per-page markdown.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxFileSizeBytes caps a single document at 50MB, matching the API limit.
	MaxFileSizeBytes = 50 * 1024 * 1024

	defaultTimeout = 120 * time.Second
)

// Result is the outcome of one text-extraction call.
type Result struct {
	Text           string  `json:"text"`
	ProcessingTime float64 `json:"processing_time_seconds"`
	PageCount      int     `json:"page_count"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// APIError carries the HTTP-style status the OCR API failed with.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ocr api error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	apiKey string
	url    string
	model  string
	hc     *http.Client
}

func NewClient(apiKey, url, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("ocr api key not configured")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey: apiKey,
		url:    url,
		model:  model,
		hc:     &http.Client{Timeout: timeout},
	}, nil
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText submits a document and returns the combined text of all pages.
func (c *Client) ExtractText(ctx context.Context, content []byte, filename string) (*Result, error) {
	start := time.Now()

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		contentTypeFor(filename), base64.StdEncoding.EncodeToString(content))

	body, err := json.Marshal(ocrRequest{
		Model:    c.model,
		Document: ocrDocument{Type: "document_url", DocumentURL: dataURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode ocr request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build ocr request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call ocr api")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var detail bytes.Buffer
		_, _ = detail.ReadFrom(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(detail.String())}
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode ocr response")
	}

	parts := make([]string, 0, len(decoded.Pages))
	for _, page := range decoded.Pages {
		if page.Markdown != "" {
			parts = append(parts, page.Markdown)
		}
	}

	return &Result{
		Text:           strings.Join(parts, "\n\n"),
		ProcessingTime: time.Since(start).Seconds(),
		PageCount:      len(decoded.Pages),
	}, nil
}

// ValidateFileType reports whether the content type is one the OCR API
// accepts.
func ValidateFileType(contentType string) bool {
	switch contentType {
	case "application/pdf", "image/png", "image/jpeg", "image/jpg", "image/webp":
		return true
	}
	return false
}

// ValidateFileSize enforces the upload cap and returns the size in MB.
func ValidateFileSize(content []byte) (float64, error) {
	if len(content) > MaxFileSizeBytes {
		return 0, &APIError{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("file too large: %d bytes (max %d)", len(content), MaxFileSizeBytes),
		}
	}
	return float64(len(content)) / (1024 * 1024), nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/pdf"
	}
}
