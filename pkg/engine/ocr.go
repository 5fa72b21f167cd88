package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

const defaultOCRConfidence = 0.95

// ocrProcessorNode runs every input document with content through the
// external text-extraction collaborator. Per-document failures are recorded
// on the document record and never abort the node.
type ocrProcessorNode struct {
	id        string
	cfg       OCRConfig
	extractor TextExtractor
	logger    Logger
}

func (n *ocrProcessorNode) ID() string     { return n.id }
func (n *ocrProcessorNode) Kind() NodeKind { return OCRProcessorKind }

func (n *ocrProcessorNode) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	docs, err := coerceSlice[models.Document](inputs["documents"])
	if err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	n.logger.Infof("Processing OCR for %d documents with language=%s, threshold=%.2f",
		len(docs), n.cfg.Language, n.cfg.ConfidenceThreshold)

	processed := make([]models.OCRDocument, 0, len(docs))
	successful, failed := 0, 0

	for _, doc := range docs {
		if len(doc.Content) == 0 {
			continue
		}

		result, extractErr := n.extractor.ExtractText(ctx, doc.Content, doc.Filename)
		if extractErr != nil {
			n.logger.Errorf("OCR processing failed for document %s: %v", doc.ID, extractErr)
			processed = append(processed, models.OCRDocument{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Error:      extractErr.Error(),
				Stage:      "ocr_error",
			})
			failed++
			continue
		}

		confidence := result.Confidence
		if confidence == 0 {
			confidence = defaultOCRConfidence
		}
		if confidence < n.cfg.ConfidenceThreshold {
			n.logger.Warnf("OCR confidence %.2f below threshold %.2f for %s",
				confidence, n.cfg.ConfidenceThreshold, doc.ID)
		}

		metadata := cloneMetadata(doc.Metadata)
		metadata["ocr_completed_at"] = time.Now().UTC().Format(time.RFC3339)
		metadata["text_length"] = len(result.Text)
		metadata["language"] = n.cfg.Language
		metadata["confidence_threshold"] = n.cfg.ConfidenceThreshold

		processed = append(processed, models.OCRDocument{
			DocumentID:      doc.ID,
			Filename:        doc.Filename,
			ExtractedText:   result.Text,
			ConfidenceScore: confidence,
			Metadata:        metadata,
			Stage:           "ocr_complete",
		})
		successful++
	}

	return map[string]any{
		"processed_documents": processed,
		"successful_count":    successful,
		"failed_count":        failed,
		"stage":               "ocr_complete",
	}, nil
}
