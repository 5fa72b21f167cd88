package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// dataValidatorNode applies the configured rules to every non-error
// extracted record.
type dataValidatorNode struct {
	id     string
	cfg    ValidatorConfig
	logger Logger
}

func (n *dataValidatorNode) ID() string     { return n.id }
func (n *dataValidatorNode) Kind() NodeKind { return DataValidatorKind }

func (n *dataValidatorNode) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	records, err := coerceSlice[models.ExtractedRecord](inputs["extracted_data"])
	if err != nil {
		return nil, fmt.Errorf("decode extracted data: %w", err)
	}
	n.logger.Infof("Validating %d documents", len(records))

	validated := make([]models.ValidatedRecord, 0, len(records))
	valid, invalid := 0, 0

	for _, record := range records {
		if record.Error != "" {
			record.Stage = "validation_skipped"
			validated = append(validated, models.ValidatedRecord{
				ExtractedRecord: record,
				Results:         []models.RuleResult{},
				IsValid:         false,
			})
			invalid++
			continue
		}

		results := applyRules(record.Fields, n.cfg.Rules)
		isValid := true
		for _, r := range results {
			if !r.IsValid {
				isValid = false
				break
			}
		}

		record.Metadata = cloneMetadata(record.Metadata)
		record.Metadata["validation_completed_at"] = time.Now().UTC().Format(time.RFC3339)
		record.Stage = "validation_complete"
		validated = append(validated, models.ValidatedRecord{
			ExtractedRecord: record,
			Results:         results,
			IsValid:         isValid,
		})
		if isValid {
			valid++
		} else {
			invalid++
		}
	}

	return map[string]any{
		"validated_data": validated,
		"valid_count":    valid,
		"invalid_count":  invalid,
		"stage":          "validation_complete",
	}, nil
}

// applyRules evaluates every configured rule against the extracted fields.
// A missing field is valid only when its rule explicitly marks it not
// required.
func applyRules(data map[string]any, rules []models.ValidationRule) []models.RuleResult {
	results := make([]models.RuleResult, 0, len(rules))

	for _, rule := range rules {
		value, present := data[rule.Field]
		if !present {
			results = append(results, models.RuleResult{
				Field:   rule.Field,
				Rule:    rule.Type,
				IsValid: rule.Required != nil && !*rule.Required,
				Message: fmt.Sprintf("Field %s is missing", rule.Field),
			})
			continue
		}
		results = append(results, evaluateRule(rule, value))
	}
	return results
}

func evaluateRule(rule models.ValidationRule, value any) models.RuleResult {
	result := models.RuleResult{Field: rule.Field, Rule: rule.Type, IsValid: true, Message: "Valid"}

	switch rule.Type {
	case models.RequiredRule:
		if value == nil || strings.TrimSpace(stringify(value)) == "" {
			result.IsValid = false
			result.Message = "Field is required"
		}

	case models.MinValueRule:
		got, okV := toFloat(value)
		limit, okL := toFloat(rule.Value)
		if !okV || !okL {
			result.IsValid = false
			result.Message = "Value is not numeric"
		} else if got < limit {
			result.IsValid = false
			result.Message = fmt.Sprintf("Value must be >= %v", rule.Value)
		}

	case models.MaxValueRule:
		got, okV := toFloat(value)
		limit, okL := toFloat(rule.Value)
		if !okV || !okL {
			result.IsValid = false
			result.Message = "Value is not numeric"
		} else if got > limit {
			result.IsValid = false
			result.Message = fmt.Sprintf("Value must be <= %v", rule.Value)
		}

	case models.RegexRule:
		pattern := stringify(rule.Value)
		// Anchored at the start: a pattern matches the prefix of the value.
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			result.IsValid = false
			result.Message = "Invalid regex pattern"
		} else if !re.MatchString(stringify(value)) {
			result.IsValid = false
			result.Message = fmt.Sprintf("Value does not match pattern %s", pattern)
		}
	}
	return result
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
