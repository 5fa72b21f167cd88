package engine

import (
	"context"
	"fmt"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// documentInputNode normalizes the documents handed to the run and tags
// them as having passed the input stage.
type documentInputNode struct {
	id     string
	logger Logger
}

func (n *documentInputNode) ID() string     { return n.id }
func (n *documentInputNode) Kind() NodeKind { return DocumentInputKind }

func (n *documentInputNode) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	docs, err := coerceSlice[models.Document](inputs["documents"])
	if err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	n.logger.Infof("Processing %d documents in document input node", len(docs))

	normalized := make([]models.Document, 0, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("doc_%d", i)
		}
		if doc.Filename == "" {
			doc.Filename = fmt.Sprintf("document_%d", i)
		}
		if doc.ContentType == "" {
			doc.ContentType = "application/octet-stream"
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Stage = "input"
		normalized = append(normalized, doc)
	}

	return map[string]any{
		"documents": normalized,
		"count":     len(normalized),
		"stage":     "document_input_complete",
	}, nil
}
