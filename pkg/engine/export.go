package engine

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// exportDataNode serializes every validated record to one file per document id
// in the configured format. Per-item write failures are counted, never
// raised; all file handles are closed before the node returns.
type exportDataNode struct {
	id     string
	cfg    ExportConfig
	logger Logger
}

func (n *exportDataNode) ID() string     { return n.id }
func (n *exportDataNode) Kind() NodeKind { return ExportDataKind }

func (n *exportDataNode) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	records, err := coerceSlice[models.ValidatedRecord](inputs["validated_data"])
	if err != nil {
		return nil, fmt.Errorf("decode validated data: %w", err)
	}
	n.logger.Infof("Exporting %d documents to %s (metadata: %v)", len(records), n.cfg.Format, n.cfg.IncludeMetadata)

	if err := os.MkdirAll(n.cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	exported := make([]models.ExportedFile, 0, len(records))
	summary := models.ExportSummary{
		TotalDocuments: len(records),
		Format:         n.cfg.Format,
	}

	for _, record := range records {
		path := filepath.Join(n.cfg.Path, fmt.Sprintf("%s.%s", record.DocumentID, n.cfg.Format))

		var writeErr error
		switch n.cfg.Format {
		case "json":
			writeErr = n.writeJSON(path, record)
		case "csv":
			writeErr = n.writeCSV(path, record)
		}
		if writeErr != nil {
			n.logger.Errorf("Export failed for document %s: %v", record.DocumentID, writeErr)
			summary.FailedCount++
			continue
		}

		exported = append(exported, models.ExportedFile{
			DocumentID: record.DocumentID,
			Filename:   record.Filename,
			Path:       path,
			Format:     n.cfg.Format,
		})
		summary.ExportedCount++
	}

	return map[string]any{
		"exported_files": exported,
		"export_summary": summary,
		"stage":          "export_complete",
	}, nil
}

func (n *exportDataNode) writeJSON(path string, record models.ValidatedRecord) error {
	payload := map[string]any{
		"document_id":        record.DocumentID,
		"filename":           record.Filename,
		"extracted_data":     record.Fields,
		"validation_results": record.Results,
		"is_valid":           record.IsValid,
		"exported_at":        time.Now().UTC().Format(time.RFC3339),
	}
	if n.cfg.IncludeMetadata {
		payload["metadata"] = record.Metadata
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func (n *exportDataNode) writeCSV(path string, record models.ValidatedRecord) error {
	flattened := flatten(record.Fields, "")
	if len(flattened) == 0 {
		// Nothing to write; still produce an empty file for the record.
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		return f.Close()
	}

	keys := make([]string, 0, len(flattened))
	for k := range flattened {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make([]string, len(keys))
	for i, k := range keys {
		row[i] = stringify(flattened[k])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(keys); err != nil {
		return err
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// flatten collapses nested maps into underscore-joined keys for CSV export.
func flatten(data map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(nested, key) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
