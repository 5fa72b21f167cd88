package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFields(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var captured extractRequest
		var gotAuth string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"fields": map[string]any{
					"invoice_number": "INV-42",
					"total_amount":   99.5,
				},
				"confidence": map[string]float64{
					"invoice_number": 0.98,
					"total_amount":   0.91,
				},
			})
		}))
		defer srv.Close()

		client, err := NewClient("test-key", srv.URL, time.Second)
		require.NoError(t, err)

		result, err := client.ExtractFields(context.Background(),
			"Invoice INV-42, total 99.50", []string{"invoice_number", "total_amount"}, "gpt-4o", "invoice fields")
		require.NoError(t, err)

		assert.Equal(t, "INV-42", result.Fields["invoice_number"])
		assert.Equal(t, 99.5, result.Fields["total_amount"])
		assert.Equal(t, 0.98, result.Confidence["invoice_number"])

		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, "Invoice INV-42, total 99.50", captured.Text)
		assert.Equal(t, []string{"invoice_number", "total_amount"}, captured.Fields)
		assert.Equal(t, "gpt-4o", captured.Model)
		assert.Equal(t, "invoice fields", captured.Description)
	})

	t.Run("NilFieldsBecomeEmptyMap", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}))
		defer srv.Close()

		client, err := NewClient("test-key", srv.URL, time.Second)
		require.NoError(t, err)

		result, err := client.ExtractFields(context.Background(), "text", DefaultInvoiceFields, "gpt-4o", "")
		require.NoError(t, err)
		assert.NotNil(t, result.Fields)
		assert.Empty(t, result.Fields)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client, err := NewClient("test-key", srv.URL, time.Second)
		require.NoError(t, err)

		_, err = client.ExtractFields(context.Background(), "text", DefaultInvoiceFields, "gpt-4o", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		client, err := NewClient("test-key", srv.URL, time.Second)
		require.NoError(t, err)

		_, err = client.ExtractFields(context.Background(), "text", DefaultInvoiceFields, "gpt-4o", "")
		assert.Error(t, err)
	})
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "http://localhost", time.Second)
	assert.EqualError(t, err, "extraction api key not configured")
}
