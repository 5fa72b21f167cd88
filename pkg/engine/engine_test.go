package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Deuspheara/doc-processor/pkg/engine"
	"github.com/Deuspheara/doc-processor/pkg/extract"
	"github.com/Deuspheara/doc-processor/pkg/models"
	"github.com/Deuspheara/doc-processor/pkg/ocr"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{})  {}
func (l logger) Warnf(format string, args ...interface{})  {}
func (l logger) Errorf(format string, args ...interface{}) {}

// fakeTextExtractor returns deterministic text, or an error for filenames
// listed in failures.
type fakeTextExtractor struct {
	failures map[string]bool
	calls    int
}

func (f *fakeTextExtractor) ExtractText(ctx context.Context, content []byte, filename string) (*ocr.Result, error) {
	f.calls++
	if f.failures[filename] {
		return nil, &ocr.APIError{StatusCode: 500, Message: "ocr backend unavailable"}
	}
	return &ocr.Result{
		Text:      fmt.Sprintf("text of %s", filename),
		PageCount: 1,
	}, nil
}

type fakeFieldExtractor struct {
	fields map[string]any
}

func (f *fakeFieldExtractor) ExtractFields(ctx context.Context, text string, fields []string, model, description string) (*extract.Result, error) {
	out := f.fields
	if out == nil {
		out = map[string]any{"total_amount": 42.0}
	}
	return &extract.Result{Fields: out, Confidence: map[string]float64{"total_amount": 0.9}}, nil
}

func newEngine(te engine.TextExtractor, fe engine.FieldExtractor) *engine.Engine {
	return engine.NewEngine(te, fe, logger{})
}

func node(id, kind string) models.NodeSpec {
	return models.NodeSpec{ID: id, Type: kind}
}

func nodeWithConfig(t *testing.T, id, kind string, cfg any) models.NodeSpec {
	t.Helper()
	raw, err := json.Marshal(cfg)
	assert.NoError(t, err)
	return models.NodeSpec{ID: id, Type: kind, Config: raw}
}

func inputDocs(names ...string) map[string]any {
	docs := make([]models.Document, 0, len(names))
	for i, name := range names {
		docs = append(docs, models.Document{
			ID:          fmt.Sprintf("d%d", i+1),
			Filename:    name,
			Content:     []byte("%PDF-1.4 test"),
			ContentType: "application/pdf",
		})
	}
	return map[string]any{"documents": docs}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(path, []byte("occupied"), 0o644))
}

func TestBuildGraph(t *testing.T) {
	eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})

	t.Run("EmptyWorkflow", func(t *testing.T) {
		_, _, err := eng.BuildGraph(models.WorkflowDefinition{})
		assert.ErrorIs(t, err, engine.ErrEmptyWorkflow)
	})

	t.Run("UnknownNodeType", func(t *testing.T) {
		_, _, err := eng.BuildGraph(models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("a", "teleporter")},
		})
		var invalid *engine.InvalidNodeError
		assert.ErrorAs(t, err, &invalid)
		assert.Equal(t, "a", invalid.NodeID)
	})

	t.Run("DuplicateNodeID", func(t *testing.T) {
		_, _, err := eng.BuildGraph(models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("a", "document-input"), node("a", "document-input")},
		})
		var invalid *engine.InvalidNodeError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("DependenciesInvertEdgesInOrder", func(t *testing.T) {
		nodes, deps, err := eng.BuildGraph(models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				node("a", "document-input"),
				node("b", "document-input"),
				node("c", "document-input"),
			},
			Edges: []models.EdgeSpec{
				{Source: "b", Target: "c"},
				{Source: "a", Target: "c"},
			},
		})
		assert.NoError(t, err)
		assert.Len(t, nodes, 3)
		assert.Equal(t, []string{"b", "a"}, deps["c"])
		assert.Empty(t, deps["a"])
		assert.Empty(t, deps["b"])
	})

	t.Run("EdgeToUndeclaredTargetDropped", func(t *testing.T) {
		_, deps, err := eng.BuildGraph(models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("a", "document-input")},
			Edges: []models.EdgeSpec{{Source: "a", Target: "ghost"}},
		})
		assert.NoError(t, err)
		_, ok := deps["ghost"]
		assert.False(t, ok)
	})

	t.Run("BadValidatorConfig", func(t *testing.T) {
		_, _, err := eng.BuildGraph(models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				nodeWithConfig(t, "v", "data-validator", map[string]any{
					"validation_rules": []map[string]any{{"field": "x", "type": "sorcery"}},
				}),
			},
		})
		var invalid *engine.InvalidNodeError
		assert.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "unknown type")
	})
}

func TestExecuteWorkflow(t *testing.T) {
	t.Run("TopologicalValidity", func(t *testing.T) {
		// Diamond: in -> (ocr1, ocr2) -> merge
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				node("merge", "data-validator"),
				node("ocr1", "ocr-processor"),
				node("in", "document-input"),
				node("ocr2", "ocr-processor"),
			},
			Edges: []models.EdgeSpec{
				{Source: "in", Target: "ocr1"},
				{Source: "in", Target: "ocr2"},
				{Source: "ocr1", Target: "merge"},
				{Source: "ocr2", Target: "merge"},
			},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		result, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("a.pdf"))
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedRunStatus, result.Status)

		// Every node executed after all of its dependencies.
		for _, pair := range [][2]string{{"in", "ocr1"}, {"in", "ocr2"}, {"ocr1", "merge"}, {"ocr2", "merge"}} {
			before, after := result.Results[pair[0]], result.Results[pair[1]]
			assert.False(t, after.ExecutedAt.Before(before.ExecutedAt),
				"%s executed before its dependency %s", pair[1], pair[0])
		}
		assert.Equal(t, 4, result.Summary.TotalNodes)
		assert.Equal(t, 4, result.Summary.SuccessfulNodes)
	})

	t.Run("CycleIsHardError", func(t *testing.T) {
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("a", "document-input"), node("b", "document-input")},
			Edges: []models.EdgeSpec{
				{Source: "a", Target: "b"},
				{Source: "b", Target: "a"},
			},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		_, err := eng.ExecuteWorkflow(context.Background(), def, nil)
		assert.ErrorIs(t, err, engine.ErrCyclicWorkflow)
	})

	t.Run("EmptyDefinitionNeverStarts", func(t *testing.T) {
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		_, err := eng.ExecuteWorkflow(context.Background(), models.WorkflowDefinition{}, nil)
		assert.ErrorIs(t, err, engine.ErrEmptyWorkflow)
	})

	t.Run("HaltOnFirstNodeError", func(t *testing.T) {
		// The export node fails at node level: its export path collides with
		// an existing file, so the directory cannot be created.
		blocked := filepath.Join(t.TempDir(), "blocked")
		writeFile(t, blocked)

		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				node("a", "document-input"),
				nodeWithConfig(t, "b", "export-data", map[string]any{"export_path": filepath.Join(blocked, "out")}),
				node("c", "data-validator"),
			},
			Edges: []models.EdgeSpec{
				{Source: "a", Target: "b"},
				{Source: "b", Target: "c"},
			},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		result, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("a.pdf"))
		assert.NoError(t, err)

		assert.Equal(t, models.FailedRunStatus, result.Status)
		assert.Contains(t, result.Results, "a")
		assert.Contains(t, result.Results, "b")
		assert.NotContains(t, result.Results, "c")
		assert.Equal(t, models.ErrorOutcome, result.Results["b"].Status)
		assert.NotEmpty(t, result.Results["b"].Error)
		assert.Equal(t, 1, result.Summary.FailedNodes)
		assert.Equal(t, 1, result.Summary.SuccessfulNodes)
	})

	t.Run("ExampleScenario", func(t *testing.T) {
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("in", "document-input"), node("ocr", "ocr-processor")},
			Edges: []models.EdgeSpec{{Source: "in", Target: "ocr"}},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		result, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("a.pdf"))
		assert.NoError(t, err)

		assert.Equal(t, models.CompletedRunStatus, result.Status)
		assert.Equal(t, 1, result.Results["ocr"].Data["successful_count"])
		assert.Equal(t, 0, result.Results["ocr"].Data["failed_count"])
	})

	t.Run("PartialOCRFailureStillPropagates", func(t *testing.T) {
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				node("in", "document-input"),
				node("ocr", "ocr-processor"),
				node("ai", "ai-extractor"),
			},
			Edges: []models.EdgeSpec{
				{Source: "in", Target: "ocr"},
				{Source: "ocr", Target: "ai"},
			},
		}
		te := &fakeTextExtractor{failures: map[string]bool{"bad.pdf": true}}
		eng := newEngine(te, &fakeFieldExtractor{})
		result, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("good.pdf", "bad.pdf"))
		assert.NoError(t, err)

		assert.Equal(t, models.CompletedRunStatus, result.Status)
		assert.Equal(t, 1, result.Results["ocr"].Data["successful_count"])
		assert.Equal(t, 1, result.Results["ocr"].Data["failed_count"])

		// The extractor node still ran: the failed document is recorded as an
		// item-level error, the successful one extracted.
		assert.Equal(t, models.SuccessOutcome, result.Results["ai"].Status)
		assert.Equal(t, 1, result.Results["ai"].Data["successful_count"])
		assert.Equal(t, 1, result.Results["ai"].Data["failed_count"])

		extracted := result.Results["ai"].Data["extracted_data"].([]models.ExtractedRecord)
		assert.Len(t, extracted, 2)
	})

	t.Run("Idempotence", func(t *testing.T) {
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{node("in", "document-input"), node("ocr", "ocr-processor")},
			Edges: []models.EdgeSpec{{Source: "in", Target: "ocr"}},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})

		first, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("a.pdf"))
		assert.NoError(t, err)
		second, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("a.pdf"))
		assert.NoError(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.Summary, second.Summary)
		assert.NotEqual(t, first.ExecutionID, second.ExecutionID)
	})

	t.Run("FullPipeline", func(t *testing.T) {
		exportDir := t.TempDir()
		def := models.WorkflowDefinition{
			Nodes: []models.NodeSpec{
				node("in", "document-input"),
				node("ocr", "ocr-processor"),
				nodeWithConfig(t, "ai", "ai-extractor", map[string]any{
					"extraction_fields": []string{"total_amount"},
				}),
				nodeWithConfig(t, "check", "data-validator", map[string]any{
					"validation_rules": []map[string]any{
						{"field": "total_amount", "type": "min_value", "value": 0},
					},
				}),
				nodeWithConfig(t, "out", "export-data", map[string]any{
					"format":      "json",
					"export_path": exportDir,
				}),
			},
			Edges: []models.EdgeSpec{
				{Source: "in", Target: "ocr"},
				{Source: "ocr", Target: "ai"},
				{Source: "ai", Target: "check"},
				{Source: "check", Target: "out"},
			},
		}
		eng := newEngine(&fakeTextExtractor{}, &fakeFieldExtractor{})
		result, err := eng.ExecuteWorkflow(context.Background(), def, inputDocs("invoice.pdf"))
		assert.NoError(t, err)

		assert.Equal(t, models.CompletedRunStatus, result.Status)
		assert.Equal(t, 5, result.Summary.TotalNodes)
		assert.Equal(t, 1.0, result.Summary.SuccessRate)
		assert.Equal(t, 1, result.Results["check"].Data["valid_count"])

		summary := result.Results["out"].Data["export_summary"].(models.ExportSummary)
		assert.Equal(t, 1, summary.ExportedCount)
		assert.Equal(t, 0, summary.FailedCount)
	})
}
