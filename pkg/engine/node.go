package engine

import (
	"context"
	"encoding/json"

	"github.com/Deuspheara/doc-processor/pkg/extract"
	"github.com/Deuspheara/doc-processor/pkg/ocr"
)

// Logger defines the logging interface for the engine.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NodeKind is the closed set of node types a workflow may declare.
type NodeKind string

const (
	DocumentInputKind NodeKind = "document-input"
	OCRProcessorKind  NodeKind = "ocr-processor"
	AIExtractorKind   NodeKind = "ai-extractor"
	DataValidatorKind NodeKind = "data-validator"
	ExportDataKind    NodeKind = "export-data"
)

// KnownKind reports whether t names a supported node type.
func KnownKind(t string) bool {
	switch NodeKind(t) {
	case DocumentInputKind, OCRProcessorKind, AIExtractorKind, DataValidatorKind, ExportDataKind:
		return true
	}
	return false
}

// TextExtractor is the external OCR collaborator consumed by the
// ocr-processor node.
type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte, filename string) (*ocr.Result, error)
}

// FieldExtractor is the external entity-extraction collaborator consumed by
// the ai-extractor node.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string, fields []string, model, description string) (*extract.Result, error)
}

// Node is one executable step of a built graph. Execute is a pure
// transformation over its declared input keys: it never mutates the
// execution context directly and returns either an output mapping or an
// error that fails the whole run.
type Node interface {
	ID() string
	Kind() NodeKind
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// decodeConfig unmarshals a node's raw config into its typed configuration
// struct. An absent config yields the zero value.
func decodeConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// coerceSlice converts a gathered input value into a typed slice. Values
// produced by upstream nodes in the same run are already typed; values
// arriving as decoded JSON (initial input data) are converted through a
// marshal round-trip.
func coerceSlice[T any](v any) ([]T, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]T); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
