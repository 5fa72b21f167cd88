package storage

import (
	"github.com/pkg/errors"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// ErrNotFound is returned when a workflow or execution does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations for doc-processor. The engine
// itself never touches a Store; only the service layer does.
type Store interface {
	// Transaction control
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Workflow operations
	SaveWorkflow(w models.Workflow) error
	GetWorkflow(id string) (models.Workflow, error)
	ListWorkflows(activeOnly bool) ([]models.Workflow, error)
	UpdateWorkflow(w models.Workflow) error
	DeactivateWorkflow(id string) error

	// Execution operations
	SaveExecution(e models.Execution) error
	GetExecution(id string) (models.Execution, error)
	UpdateExecution(e models.Execution) error
	ListExecutions(workflowID string) ([]models.Execution, error)
	CountExecutions() (int, error)
}
