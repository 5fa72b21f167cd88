package models

import "time"

type OutcomeStatus string

const (
	SuccessOutcome OutcomeStatus = "success"
	ErrorOutcome   OutcomeStatus = "error"
)

// InputKey is the reserved execution-context key holding the run's initial
// input data.
const InputKey = "__input__"

// NodeOutcome is the recorded result of running one node once. Entries are
// append-only: a node id is written exactly once, immediately after the node
// finishes, and never rewritten.
type NodeOutcome struct {
	Status     OutcomeStatus  `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	NodeType   string         `json:"node_type"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// ExecutionSummary aggregates the outcomes of one run. The reserved input
// entry is not counted.
type ExecutionSummary struct {
	TotalNodes      int     `json:"total_nodes"`
	SuccessfulNodes int     `json:"successful_nodes"`
	FailedNodes     int     `json:"failed_nodes"`
	SuccessRate     float64 `json:"success_rate"`
}

type RunStatus string

const (
	CompletedRunStatus RunStatus = "completed"
	FailedRunStatus    RunStatus = "failed"
)

// RunResult is returned by the engine for one workflow execution.
type RunResult struct {
	Status      RunStatus              `json:"status"`
	ExecutionID string                 `json:"execution_id"`
	Results     map[string]NodeOutcome `json:"results"`
	Summary     ExecutionSummary       `json:"summary"`
	CompletedAt time.Time              `json:"completed_at"`
}

type ExecutionStatus string

const (
	RunningExecutionStatus   ExecutionStatus = "running"
	CompletedExecutionStatus ExecutionStatus = "completed"
	FailedExecutionStatus    ExecutionStatus = "failed"
)

// Execution is the persisted record of one workflow run.
type Execution struct {
	ID             string          `json:"id" db:"id"`                             // UUID
	WorkflowID     string          `json:"workflow_id" db:"workflow_id"`           // Foreign key to Workflow
	Status         ExecutionStatus `json:"status" db:"status"`                     // "running", "completed", "failed"
	InputFileCount int             `json:"input_file_count" db:"input_file_count"` // Number of uploaded documents
	Output         *RunResult      `json:"output,omitempty" db:"-"`                // Full engine result (jsonb)
	ErrorMsg       string          `json:"error,omitempty" db:"error_msg"`         // Run-level error message (optional)
	StartedAt      time.Time       `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" db:"completed_at"` // Nullable end time
}
