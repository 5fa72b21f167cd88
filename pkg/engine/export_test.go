package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

func validatedRecords() []models.ValidatedRecord {
	return []models.ValidatedRecord{
		{
			ExtractedRecord: models.ExtractedRecord{
				DocumentID: "d1",
				Filename:   "invoice.pdf",
				Fields: map[string]any{
					"total_amount": 99.5,
					"vendor":       map[string]any{"name": "ACME", "country": "FR"},
				},
				Metadata: map[string]any{"source": "test"},
			},
			Results: []models.RuleResult{{Field: "total_amount", Rule: models.MinValueRule, IsValid: true, Message: "Valid"}},
			IsValid: true,
		},
	}
}

func TestExportDataNode(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		dir := t.TempDir()
		node := &exportDataNode{
			id:     "out",
			cfg:    ExportConfig{Format: "json", Path: dir, IncludeMetadata: true},
			logger: nopLogger{},
		}

		out, err := node.Execute(context.Background(), map[string]any{"validated_data": validatedRecords()})
		assert.NoError(t, err)

		summary := out["export_summary"].(models.ExportSummary)
		assert.Equal(t, 1, summary.ExportedCount)
		assert.Equal(t, 0, summary.FailedCount)

		files := out["exported_files"].([]models.ExportedFile)
		assert.Len(t, files, 1)
		assert.Equal(t, filepath.Join(dir, "d1.json"), files[0].Path)

		raw, err := os.ReadFile(files[0].Path)
		assert.NoError(t, err)
		var payload map[string]any
		assert.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "d1", payload["document_id"])
		assert.Equal(t, true, payload["is_valid"])
		assert.Contains(t, payload, "metadata")
	})

	t.Run("JSONWithoutMetadata", func(t *testing.T) {
		dir := t.TempDir()
		node := &exportDataNode{
			id:     "out",
			cfg:    ExportConfig{Format: "json", Path: dir},
			logger: nopLogger{},
		}

		out, err := node.Execute(context.Background(), map[string]any{"validated_data": validatedRecords()})
		assert.NoError(t, err)

		files := out["exported_files"].([]models.ExportedFile)
		raw, err := os.ReadFile(files[0].Path)
		assert.NoError(t, err)
		var payload map[string]any
		assert.NoError(t, json.Unmarshal(raw, &payload))
		assert.NotContains(t, payload, "metadata")
	})

	t.Run("CSVFlattensNestedFields", func(t *testing.T) {
		dir := t.TempDir()
		node := &exportDataNode{
			id:     "out",
			cfg:    ExportConfig{Format: "csv", Path: dir},
			logger: nopLogger{},
		}

		out, err := node.Execute(context.Background(), map[string]any{"validated_data": validatedRecords()})
		assert.NoError(t, err)

		files := out["exported_files"].([]models.ExportedFile)
		raw, err := os.ReadFile(filepath.Join(dir, "d1.csv"))
		assert.NoError(t, err)
		content := string(raw)
		assert.Contains(t, content, "vendor_name")
		assert.Contains(t, content, "vendor_country")
		assert.Contains(t, content, "total_amount")
		assert.Len(t, files, 1)
	})

	t.Run("PerItemFailureIsCountedNotRaised", func(t *testing.T) {
		dir := t.TempDir()
		node := &exportDataNode{
			id:     "out",
			cfg:    ExportConfig{Format: "json", Path: dir},
			logger: nopLogger{},
		}

		// A document id that collides with an existing directory cannot be
		// written as a file.
		assert.NoError(t, os.Mkdir(filepath.Join(dir, "d1.json"), 0o755))

		out, err := node.Execute(context.Background(), map[string]any{"validated_data": validatedRecords()})
		assert.NoError(t, err)

		summary := out["export_summary"].(models.ExportSummary)
		assert.Equal(t, 0, summary.ExportedCount)
		assert.Equal(t, 1, summary.FailedCount)
		assert.Empty(t, out["exported_files"])
	})
}

func TestFlatten(t *testing.T) {
	flat := flatten(map[string]any{
		"a": 1,
		"b": map[string]any{"c": 2, "d": map[string]any{"e": 3}},
	}, "")
	assert.Equal(t, map[string]any{"a": 1, "b_c": 2, "b_d_e": 3}, flat)
}
