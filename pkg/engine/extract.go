package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Deuspheara/doc-processor/pkg/extract"
	"github.com/Deuspheara/doc-processor/pkg/models"
)

// aiExtractorNode runs successfully OCR'd documents through the external
// entity-extraction collaborator, either with the fields configured on the
// node or the default field set. Per-document failures are recorded on the
// record, not propagated.
type aiExtractorNode struct {
	id        string
	cfg       ExtractorConfig
	extractor FieldExtractor
	logger    Logger
}

func (n *aiExtractorNode) ID() string     { return n.id }
func (n *aiExtractorNode) Kind() NodeKind { return AIExtractorKind }

func (n *aiExtractorNode) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	docs, err := coerceSlice[models.OCRDocument](inputs["processed_documents"])
	if err != nil {
		return nil, fmt.Errorf("decode processed documents: %w", err)
	}
	n.logger.Infof("Running AI extraction on %d documents using model %s", len(docs), n.cfg.Model)

	fields := n.cfg.Fields
	if len(fields) == 0 {
		fields = extract.DefaultInvoiceFields
	}

	extracted := make([]models.ExtractedRecord, 0, len(docs))
	successful, failed := 0, 0

	for _, doc := range docs {
		if doc.Error != "" || doc.ExtractedText == "" {
			reason := doc.Error
			if reason == "" {
				reason = "no text available for extraction"
			}
			extracted = append(extracted, models.ExtractedRecord{
				DocumentID: doc.DocumentID,
				Filename:   doc.Filename,
				Fields:     map[string]any{},
				Error:      reason,
				Stage:      "extraction_error",
			})
			failed++
			continue
		}

		result, extractErr := n.extractor.ExtractFields(ctx, doc.ExtractedText, fields, n.cfg.Model, n.cfg.Description)
		if extractErr != nil {
			n.logger.Errorf("AI extraction failed for document %s: %v", doc.DocumentID, extractErr)
			extracted = append(extracted, models.ExtractedRecord{
				DocumentID: doc.DocumentID,
				Filename:   doc.Filename,
				Fields:     map[string]any{},
				Error:      extractErr.Error(),
				Stage:      "extraction_error",
			})
			failed++
			continue
		}

		metadata := cloneMetadata(doc.Metadata)
		metadata["extraction_completed_at"] = time.Now().UTC().Format(time.RFC3339)
		metadata["model_used"] = n.cfg.Model
		metadata["extraction_fields"] = fields

		extracted = append(extracted, models.ExtractedRecord{
			DocumentID: doc.DocumentID,
			Filename:   doc.Filename,
			Fields:     result.Fields,
			Confidence: result.Confidence,
			Metadata:   metadata,
			Stage:      "extraction_complete",
		})
		successful++
	}

	return map[string]any{
		"extracted_data":   extracted,
		"successful_count": successful,
		"failed_count":     failed,
		"stage":            "extraction_complete",
	}, nil
}
