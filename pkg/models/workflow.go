package models

import (
	"encoding/json"
	"time"
)

// NodeSpec declares one processing step in a workflow definition.
// Config carries the node-type-specific settings and is decoded into a
// typed configuration struct when the graph is built.
type NodeSpec struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// EdgeSpec is a directed dependency: the target node consumes the output
// of the source node.
type EdgeSpec struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// WorkflowDefinition is the declarative graph of nodes and edges supplied
// by the caller. It is read-only for the duration of a run.
type WorkflowDefinition struct {
	Nodes []NodeSpec `json:"nodes"`
	Edges []EdgeSpec `json:"edges"`
}

// Workflow represents a persisted workflow with its definition.
type Workflow struct {
	ID          string             `json:"id" db:"id"`                   // UUID
	Name        string             `json:"name" db:"name"`               // Descriptive name (e.g., "InvoicePipeline")
	Description string             `json:"description" db:"description"` // Optional free text
	Definition  WorkflowDefinition `json:"definition" db:"-"`            // Graph of nodes and edges
	IsActive    bool               `json:"is_active" db:"is_active"`     // Soft-delete flag
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`   // Creation timestamp
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`   // Last update timestamp
}
