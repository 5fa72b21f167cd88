package engine

import (
	"fmt"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// Typed per-kind configurations, decoded and validated when the graph is
// built rather than lazily inside Execute.

type OCRConfig struct {
	Language            string  `json:"language"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

func (c *OCRConfig) applyDefaults() {
	if c.Language == "" {
		c.Language = "auto"
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.8
	}
}

type ExtractorConfig struct {
	Fields      []string `json:"extraction_fields"`
	Model       string   `json:"model"`
	Description string   `json:"description"`
}

func (c *ExtractorConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
}

type ValidatorConfig struct {
	Rules []models.ValidationRule `json:"validation_rules"`
}

func (c *ValidatorConfig) validate() error {
	for i, rule := range c.Rules {
		if rule.Field == "" {
			return fmt.Errorf("validation rule %d has no field", i)
		}
		switch rule.Type {
		case models.RequiredRule, models.MinValueRule, models.MaxValueRule, models.RegexRule:
		default:
			return fmt.Errorf("validation rule %d has unknown type '%s'", i, rule.Type)
		}
		if rule.Type != models.RequiredRule && rule.Value == nil {
			return fmt.Errorf("validation rule %d (%s) requires a value", i, rule.Type)
		}
	}
	return nil
}

type ExportConfig struct {
	Format          string `json:"format"`
	Path            string `json:"export_path"`
	IncludeMetadata bool   `json:"include_metadata"`
}

func (c *ExportConfig) applyDefaults() {
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Path == "" {
		c.Path = "exports"
	}
}

func (c *ExportConfig) validate() error {
	switch c.Format {
	case "json", "csv":
		return nil
	default:
		return fmt.Errorf("unsupported export format '%s'", c.Format)
	}
}
