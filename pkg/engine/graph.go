package engine

import (
	"fmt"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// BuildGraph turns a workflow definition into executable nodes and a
// dependency map (node id -> ids whose output it consumes, in edge-list
// order). Any node that cannot be constructed aborts the whole build.
func (e *Engine) BuildGraph(def models.WorkflowDefinition) (map[string]Node, map[string][]string, error) {
	if len(def.Nodes) == 0 {
		return nil, nil, ErrEmptyWorkflow
	}

	nodes := make(map[string]Node, len(def.Nodes))
	for _, spec := range def.Nodes {
		if spec.ID == "" {
			return nil, nil, &InvalidNodeError{NodeID: spec.ID, Reason: "missing node id"}
		}
		if _, exists := nodes[spec.ID]; exists {
			return nil, nil, &InvalidNodeError{NodeID: spec.ID, Reason: "duplicate node id"}
		}
		node, err := e.buildNode(spec)
		if err != nil {
			return nil, nil, err
		}
		nodes[spec.ID] = node
	}

	// Invert edges: dependencies[target] lists the sources whose output the
	// target consumes. Edge order is preserved; it decides merge precedence
	// when gathering inputs.
	deps := make(map[string][]string, len(def.Nodes))
	for _, spec := range def.Nodes {
		deps[spec.ID] = []string{}
	}
	for _, edge := range def.Edges {
		if _, ok := deps[edge.Target]; !ok {
			// Edge pointing at an undeclared node: nothing to execute, drop it.
			continue
		}
		deps[edge.Target] = append(deps[edge.Target], edge.Source)
	}

	return nodes, deps, nil
}

// buildNode constructs the typed node for one spec. The kind switch is
// exhaustive over the supported node types; configs are decoded and
// validated here so Execute never sees a malformed one.
func (e *Engine) buildNode(spec models.NodeSpec) (Node, error) {
	switch NodeKind(spec.Type) {
	case DocumentInputKind:
		return &documentInputNode{id: spec.ID, logger: e.logger}, nil

	case OCRProcessorKind:
		var cfg OCRConfig
		if err := decodeConfig(spec.Config, &cfg); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: fmt.Sprintf("bad ocr config: %v", err)}
		}
		cfg.applyDefaults()
		if e.textExtractor == nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: "no text extractor configured"}
		}
		return &ocrProcessorNode{id: spec.ID, cfg: cfg, extractor: e.textExtractor, logger: e.logger}, nil

	case AIExtractorKind:
		var cfg ExtractorConfig
		if err := decodeConfig(spec.Config, &cfg); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: fmt.Sprintf("bad extractor config: %v", err)}
		}
		cfg.applyDefaults()
		if e.fieldExtractor == nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: "no field extractor configured"}
		}
		return &aiExtractorNode{id: spec.ID, cfg: cfg, extractor: e.fieldExtractor, logger: e.logger}, nil

	case DataValidatorKind:
		var cfg ValidatorConfig
		if err := decodeConfig(spec.Config, &cfg); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: fmt.Sprintf("bad validator config: %v", err)}
		}
		if err := cfg.validate(); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: err.Error()}
		}
		return &dataValidatorNode{id: spec.ID, cfg: cfg, logger: e.logger}, nil

	case ExportDataKind:
		var cfg ExportConfig
		if err := decodeConfig(spec.Config, &cfg); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: fmt.Sprintf("bad export config: %v", err)}
		}
		cfg.applyDefaults()
		if err := cfg.validate(); err != nil {
			return nil, &InvalidNodeError{NodeID: spec.ID, Reason: err.Error()}
		}
		return &exportDataNode{id: spec.ID, cfg: cfg, logger: e.logger}, nil

	default:
		return nil, &InvalidNodeError{NodeID: spec.ID, Reason: fmt.Sprintf("unknown node type '%s'", spec.Type)}
	}
}
