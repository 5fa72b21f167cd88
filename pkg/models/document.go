package models

// Document is a raw uploaded document entering a run through the
// document-input node.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Content     []byte         `json:"content,omitempty"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Stage       string         `json:"processing_stage,omitempty"`
}

// OCRDocument is the per-document result of the ocr-processor node.
// Error is set when text extraction failed for this document; the node
// itself still succeeds.
type OCRDocument struct {
	DocumentID      string         `json:"document_id"`
	Filename        string         `json:"filename"`
	ExtractedText   string         `json:"extracted_text"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Error           string         `json:"error,omitempty"`
	Stage           string         `json:"processing_stage"`
}

// ExtractedRecord is the per-document result of the ai-extractor node.
type ExtractedRecord struct {
	DocumentID string             `json:"document_id"`
	Filename   string             `json:"filename"`
	Fields     map[string]any     `json:"extracted_data"`
	Confidence map[string]float64 `json:"confidence_scores,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	Error      string             `json:"error,omitempty"`
	Stage      string             `json:"processing_stage"`
}

type RuleType string

const (
	RequiredRule RuleType = "required"
	MinValueRule RuleType = "min_value"
	MaxValueRule RuleType = "max_value"
	RegexRule    RuleType = "regex"
)

// ValidationRule is one configurable check applied by the data-validator
// node. Required defaults to true when nil.
type ValidationRule struct {
	Field    string   `json:"field"`
	Type     RuleType `json:"type"`
	Value    any      `json:"value,omitempty"`
	Required *bool    `json:"required,omitempty"`
}

// RuleResult is the outcome of applying one rule to one record.
type RuleResult struct {
	Field   string   `json:"field"`
	Rule    RuleType `json:"rule"`
	IsValid bool     `json:"is_valid"`
	Message string   `json:"message"`
}

// ValidatedRecord carries an extracted record together with its rule
// evaluation results.
type ValidatedRecord struct {
	ExtractedRecord
	Results []RuleResult `json:"validation_results"`
	IsValid bool         `json:"is_valid"`
}

// ExportedFile describes one file written by the export-data node.
type ExportedFile struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Path       string `json:"export_path"`
	Format     string `json:"export_format"`
}

// ExportSummary counts the export-data node's per-item results.
type ExportSummary struct {
	TotalDocuments int    `json:"total_documents"`
	ExportedCount  int    `json:"exported_count"`
	FailedCount    int    `json:"failed_count"`
	Format         string `json:"export_format"`
}
