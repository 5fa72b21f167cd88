package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Deuspheara/doc-processor/pkg/engine"
	"github.com/Deuspheara/doc-processor/pkg/models"
	"github.com/Deuspheara/doc-processor/pkg/storage"
)

// Logger defines the logging interface for WorkflowService
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Runner executes workflow definitions; the engine implements it.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, def models.WorkflowDefinition, inputData map[string]any) (*models.RunResult, error)
}

// ErrDocumentsRequired is returned when a workflow with a document-input
// node is executed without any uploaded documents.
var ErrDocumentsRequired = errors.New("this workflow requires document files to be uploaded")

// WorkflowService manages persisted workflows and drives their executions
// through the engine. The engine stays stateless; all persistence lives
// here.
type WorkflowService struct {
	store  storage.Store
	runner Runner
	logger Logger
}

func NewWorkflowService(store storage.Store, runner Runner, logger Logger) *WorkflowService {
	return &WorkflowService{
		store:  store,
		runner: runner,
		logger: logger,
	}
}

func (s *WorkflowService) CreateWorkflow(name, description string, def models.WorkflowDefinition) (id string, err error) {
	if name == "" {
		return "", errors.New("workflow name cannot be empty")
	}
	if len(name) > 100 {
		return "", errors.New("workflow name too long (max 100 characters)")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	wf := models.Workflow{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Definition:  def,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err = txStore.SaveWorkflow(wf); err != nil {
		return "", err
	}
	s.logger.Infof("Created workflow '%s' with ID %s", name, wf.ID)
	return wf.ID, nil
}

func (s *WorkflowService) GetWorkflow(id string) (models.Workflow, error) {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return models.Workflow{}, err
	}
	return wf, nil
}

func (s *WorkflowService) ListWorkflows() ([]models.Workflow, error) {
	return s.store.ListWorkflows(true)
}

func (s *WorkflowService) UpdateWorkflow(id, name, description string, def *models.WorkflowDefinition) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	wf, err := txStore.GetWorkflow(id)
	if err != nil {
		return err
	}
	if name != "" {
		wf.Name = name
	}
	if description != "" {
		wf.Description = description
	}
	if def != nil {
		wf.Definition = *def
	}
	if err = txStore.UpdateWorkflow(wf); err != nil {
		return err
	}
	s.logger.Infof("Updated workflow %s", id)
	return nil
}

// DeleteWorkflow soft-deletes a workflow; its execution history stays
// readable.
func (s *WorkflowService) DeleteWorkflow(id string) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	if err = txStore.DeactivateWorkflow(id); err != nil {
		return err
	}
	s.logger.Infof("Deleted workflow %s", id)
	return nil
}

// ValidateDefinition checks a definition without executing it. Errors block
// execution; isolated nodes and edges referencing undeclared nodes are only
// warnings.
func (s *WorkflowService) ValidateDefinition(def models.WorkflowDefinition) models.ValidationReport {
	report := models.ValidationReport{
		Errors:    []string{},
		Warnings:  []string{},
		NodeCount: len(def.Nodes),
		EdgeCount: len(def.Edges),
	}

	if len(def.Nodes) == 0 {
		report.Errors = append(report.Errors, "workflow must have at least one node")
	}

	declared := make(map[string]bool, len(def.Nodes))
	var unknownTypes []string
	for _, node := range def.Nodes {
		if declared[node.ID] {
			report.Errors = append(report.Errors, fmt.Sprintf("duplicate node id: %s", node.ID))
		}
		declared[node.ID] = true
		if !engine.KnownKind(node.Type) {
			unknownTypes = append(unknownTypes, node.Type)
		}
	}
	if len(unknownTypes) > 0 {
		report.Errors = append(report.Errors, "unknown node types: "+strings.Join(dedupe(unknownTypes), ", "))
	}

	connected := make(map[string]bool, len(def.Nodes))
	var danglingEdges []string
	for _, edge := range def.Edges {
		connected[edge.Source] = true
		connected[edge.Target] = true
		if !declared[edge.Source] || !declared[edge.Target] {
			danglingEdges = append(danglingEdges, fmt.Sprintf("%s->%s", edge.Source, edge.Target))
		}
	}
	if len(danglingEdges) > 0 {
		report.Warnings = append(report.Warnings, "edges reference undeclared nodes: "+strings.Join(danglingEdges, ", "))
	}

	if len(def.Nodes) > 1 {
		var isolated []string
		for _, node := range def.Nodes {
			if !connected[node.ID] {
				isolated = append(isolated, node.ID)
			}
		}
		if len(isolated) > 0 {
			report.Warnings = append(report.Warnings, "isolated nodes found: "+strings.Join(isolated, ", "))
		}
	}

	if hasCycle(def) {
		report.Errors = append(report.Errors, "workflow contains a dependency cycle")
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// ExecuteWorkflow runs a persisted workflow against the uploaded documents,
// recording an execution row before and after the run.
func (s *WorkflowService) ExecuteWorkflow(ctx context.Context, workflowID string, docs []models.Document) (models.Execution, error) {
	wf, err := s.store.GetWorkflow(workflowID)
	if err != nil {
		return models.Execution{}, err
	}

	if requiresDocuments(wf.Definition) && len(docs) == 0 {
		return models.Execution{}, ErrDocumentsRequired
	}

	execution := models.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     workflowID,
		Status:         models.RunningExecutionStatus,
		InputFileCount: len(docs),
		StartedAt:      time.Now(),
	}
	if err := s.saveExecution(execution); err != nil {
		return models.Execution{}, err
	}

	inputData := map[string]any{
		"documents": docs,
	}

	s.logger.Infof("Starting execution %s of workflow %s with %d documents",
		execution.ID, workflowID, len(docs))
	result, runErr := s.runner.ExecuteWorkflow(ctx, wf.Definition, inputData)

	completedAt := time.Now()
	execution.CompletedAt = &completedAt
	if runErr != nil {
		// Graph build failure: the run never started.
		execution.Status = models.FailedExecutionStatus
		execution.ErrorMsg = runErr.Error()
	} else {
		execution.Output = result
		if result.Status == models.CompletedRunStatus {
			execution.Status = models.CompletedExecutionStatus
		} else {
			execution.Status = models.FailedExecutionStatus
			execution.ErrorMsg = fmt.Sprintf("Workflow execution failed. %d nodes failed.", result.Summary.FailedNodes)
		}
	}

	if err := s.updateExecution(execution); err != nil {
		return models.Execution{}, err
	}
	s.logger.Infof("Workflow execution %s completed with status: %s", execution.ID, execution.Status)

	if runErr != nil {
		return execution, runErr
	}
	return execution, nil
}

func (s *WorkflowService) ListExecutions(workflowID string) ([]models.Execution, error) {
	return s.store.ListExecutions(workflowID)
}

// GetExecution fetches one execution and verifies it belongs to the given
// workflow.
func (s *WorkflowService) GetExecution(workflowID, executionID string) (models.Execution, error) {
	execution, err := s.store.GetExecution(executionID)
	if err != nil {
		return models.Execution{}, err
	}
	if execution.WorkflowID != workflowID {
		return models.Execution{}, storage.ErrNotFound
	}
	return execution, nil
}

// Health reports basic liveness counters for the health endpoint.
func (s *WorkflowService) Health() (workflows, executions int, err error) {
	active, err := s.store.ListWorkflows(true)
	if err != nil {
		return 0, 0, err
	}
	count, err := s.store.CountExecutions()
	if err != nil {
		return 0, 0, err
	}
	return len(active), count, nil
}

func (s *WorkflowService) saveExecution(e models.Execution) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()
	return txStore.SaveExecution(e)
}

func (s *WorkflowService) updateExecution(e models.Execution) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()
	return txStore.UpdateExecution(e)
}

func requiresDocuments(def models.WorkflowDefinition) bool {
	for _, node := range def.Nodes {
		if engine.NodeKind(node.Type) == engine.DocumentInputKind {
			return true
		}
	}
	return false
}

// hasCycle runs in-degree elimination over the definition; nodes left over
// after the queue drains sit on a cycle.
func hasCycle(def models.WorkflowDefinition) bool {
	declared := make(map[string]bool, len(def.Nodes))
	for _, node := range def.Nodes {
		declared[node.ID] = true
	}

	inDegree := make(map[string]int, len(def.Nodes))
	dependents := make(map[string][]string)
	for _, node := range def.Nodes {
		inDegree[node.ID] = 0
	}
	for _, edge := range def.Edges {
		if !declared[edge.Source] || !declared[edge.Target] {
			continue
		}
		inDegree[edge.Target]++
		dependents[edge.Source] = append(dependents[edge.Source], edge.Target)
	}

	var queue []string
	for _, node := range def.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range dependents[curr] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return processed != len(def.Nodes)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
