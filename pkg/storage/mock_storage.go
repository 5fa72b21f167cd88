package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Deuspheara/doc-processor/pkg/models"
)

// mockStore implements Store with in-memory storage for tests and local
// development.
type mockStore struct {
	mu         sync.Mutex
	workflows  map[string]models.Workflow
	executions map[string]models.Execution
}

func NewMockStore() Store {
	return &mockStore{
		workflows:  make(map[string]models.Workflow),
		executions: make(map[string]models.Execution),
	}
}

func (m *mockStore) Begin() (Store, error) {
	return m, nil
}

func (m *mockStore) Commit() error {
	return nil
}

func (m *mockStore) Rollback() error {
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func (m *mockStore) SaveWorkflow(w models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workflows[w.ID]; exists {
		return errors.New("workflow already exists")
	}
	m.workflows[w.ID] = w
	return nil
}

func (m *mockStore) GetWorkflow(id string) (models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return models.Workflow{}, ErrNotFound
	}
	return wf, nil
}

func (m *mockStore) ListWorkflows(activeOnly bool) ([]models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Workflow
	for _, wf := range m.workflows {
		if activeOnly && !wf.IsActive {
			continue
		}
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) UpdateWorkflow(w models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[w.ID]; !ok {
		return ErrNotFound
	}
	w.UpdatedAt = time.Now()
	m.workflows[w.ID] = w
	return nil
}

func (m *mockStore) DeactivateWorkflow(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	wf.IsActive = false
	wf.UpdatedAt = time.Now()
	m.workflows[id] = wf
	return nil
}

func (m *mockStore) SaveExecution(e models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.executions[e.ID]; exists {
		return errors.New("execution already exists")
	}
	m.executions[e.ID] = e
	return nil
}

func (m *mockStore) GetExecution(id string) (models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return models.Execution{}, ErrNotFound
	}
	return e, nil
}

func (m *mockStore) UpdateExecution(e models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.executions[e.ID]; !ok {
		return ErrNotFound
	}
	m.executions[e.ID] = e
	return nil
}

func (m *mockStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Execution
	for _, e := range m.executions {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *mockStore) CountExecutions() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.executions), nil
}
