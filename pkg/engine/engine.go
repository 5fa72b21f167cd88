package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// runState tracks one run through its lifecycle.
type runState string

const (
	buildingState  runState = "building"
	readyState     runState = "ready"
	runningState   runState = "running"
	completedState runState = "completed"
	failedState    runState = "failed"
)

// Engine executes workflow definitions. It holds no per-run state: every
// call to ExecuteWorkflow owns its dependency map and execution context, so
// independent runs may proceed concurrently without locking.
type Engine struct {
	textExtractor  TextExtractor
	fieldExtractor FieldExtractor
	logger         Logger
}

func NewEngine(textExtractor TextExtractor, fieldExtractor FieldExtractor, logger Logger) *Engine {
	return &Engine{
		textExtractor:  textExtractor,
		fieldExtractor: fieldExtractor,
		logger:         logger,
	}
}

// ExecuteWorkflow runs a definition to completion. Nodes execute strictly
// sequentially in topological order; the first node-level error halts all
// remaining nodes, which are left absent from the results. Build failures
// (empty graph, invalid node, cycle) are returned before any node runs.
func (e *Engine) ExecuteWorkflow(ctx context.Context, def models.WorkflowDefinition, inputData map[string]any) (*models.RunResult, error) {
	state := buildingState
	e.logger.Infof("Building workflow graph: %d nodes, %d edges", len(def.Nodes), len(def.Edges))

	nodes, deps, err := e.BuildGraph(def)
	if err != nil {
		return nil, err
	}

	order, err := executionOrder(def, deps)
	if err != nil {
		return nil, err
	}
	state = readyState
	e.logger.Infof("Execution order computed: %v", order)

	results := make(map[string]models.NodeOutcome, len(order)+1)
	if inputData != nil {
		results[models.InputKey] = models.NodeOutcome{
			Status:     models.SuccessOutcome,
			Data:       inputData,
			NodeType:   "input",
			ExecutedAt: time.Now().UTC(),
		}
	}

	state = runningState
	for _, nodeID := range order {
		node := nodes[nodeID]
		inputs := gatherInputs(nodeID, deps, results)

		e.logger.Infof("Executing node %s of type %s", nodeID, node.Kind())
		data, execErr := node.Execute(ctx, inputs)
		if execErr != nil {
			e.logger.Errorf("Node %s execution failed: %v", nodeID, execErr)
			results[nodeID] = models.NodeOutcome{
				Status:     models.ErrorOutcome,
				Error:      execErr.Error(),
				NodeType:   string(node.Kind()),
				ExecutedAt: time.Now().UTC(),
			}
			// Halt on first error: downstream nodes stay absent.
			break
		}
		results[nodeID] = models.NodeOutcome{
			Status:     models.SuccessOutcome,
			Data:       data,
			NodeType:   string(node.Kind()),
			ExecutedAt: time.Now().UTC(),
		}
	}

	summary := summarize(results)
	status := models.CompletedRunStatus
	state = completedState
	if summary.FailedNodes > 0 {
		status = models.FailedRunStatus
		state = failedState
	}
	e.logger.Infof("Workflow run finished in state %s: %d/%d nodes succeeded",
		state, summary.SuccessfulNodes, summary.TotalNodes)

	return &models.RunResult{
		Status:      status,
		ExecutionID: uuid.NewString(),
		Results:     results,
		Summary:     summary,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// executionOrder computes a topological order over the dependency map using
// in-degree tracking. Dependencies on undeclared nodes count as already
// satisfied. A cycle is a hard error; no best-effort order is produced.
func executionOrder(def models.WorkflowDefinition, deps map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(def.Nodes))
	dependents := make(map[string][]string, len(def.Nodes))

	for _, spec := range def.Nodes {
		count := 0
		for _, dep := range deps[spec.ID] {
			if _, declared := deps[dep]; declared {
				count++
				dependents[dep] = append(dependents[dep], spec.ID)
			}
		}
		inDegree[spec.ID] = count
	}

	// Seed and drain the ready queue in declaration order so the computed
	// order is deterministic for a given definition.
	var queue []string
	for _, spec := range def.Nodes {
		if inDegree[spec.ID] == 0 {
			queue = append(queue, spec.ID)
		}
	}

	order := make([]string, 0, len(def.Nodes))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)

		for _, next := range dependents[curr] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(def.Nodes) {
		return nil, ErrCyclicWorkflow
	}
	return order, nil
}

// gatherInputs builds a node's input mapping: the reserved input entry's
// data first, then each successful direct dependency merged on top in edge
// order (later dependency wins on key collision). Errored or absent
// dependencies contribute nothing.
func gatherInputs(nodeID string, deps map[string][]string, results map[string]models.NodeOutcome) map[string]any {
	inputs := make(map[string]any)

	if in, ok := results[models.InputKey]; ok && in.Status == models.SuccessOutcome {
		for k, v := range in.Data {
			inputs[k] = v
		}
	}

	for _, dep := range deps[nodeID] {
		outcome, ok := results[dep]
		if !ok || outcome.Status != models.SuccessOutcome {
			continue
		}
		for k, v := range outcome.Data {
			inputs[k] = v
		}
	}
	return inputs
}

// summarize derives the run summary from the final execution context. The
// reserved input entry is excluded from all counts.
func summarize(results map[string]models.NodeOutcome) models.ExecutionSummary {
	var summary models.ExecutionSummary
	for id, outcome := range results {
		if id == models.InputKey {
			continue
		}
		summary.TotalNodes++
		switch outcome.Status {
		case models.SuccessOutcome:
			summary.SuccessfulNodes++
		case models.ErrorOutcome:
			summary.FailedNodes++
		}
	}
	if summary.TotalNodes > 0 {
		summary.SuccessRate = float64(summary.SuccessfulNodes) / float64(summary.TotalNodes)
	}
	return summary
}
