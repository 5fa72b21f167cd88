package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Deuspheara/doc-processor/pkg/models"
	"github.com/Deuspheara/doc-processor/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// workflowRow is the database shape of a workflow; the definition is stored
// as jsonb.
type workflowRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Definition  []byte    `db:"definition"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r workflowRow) toModel() (models.Workflow, error) {
	wf := models.Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Definition) > 0 {
		if err := json.Unmarshal(r.Definition, &wf.Definition); err != nil {
			return models.Workflow{}, fmt.Errorf("decode workflow %s definition: %w", r.ID, err)
		}
	}
	return wf, nil
}

// SaveWorkflow creates a new workflow with its definition
func (s *PostgresStore) SaveWorkflow(w models.Workflow) error {
	def, err := json.Marshal(w.Definition)
	if err != nil {
		return fmt.Errorf("encode workflow definition: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO workflows (id, name, description, definition, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		w.ID, w.Name, w.Description, def, w.IsActive, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID, including its definition
func (s *PostgresStore) GetWorkflow(id string) (models.Workflow, error) {
	var row workflowRow
	err := s.db.Get(&row, "SELECT * FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}
	return row.toModel()
}

func (s *PostgresStore) ListWorkflows(activeOnly bool) ([]models.Workflow, error) {
	rows := []workflowRow{}
	query := "SELECT * FROM workflows ORDER BY created_at DESC"
	if activeOnly {
		query = "SELECT * FROM workflows WHERE is_active = TRUE ORDER BY created_at DESC"
	}
	if err := s.db.Select(&rows, query); err != nil {
		return nil, err
	}
	workflows := make([]models.Workflow, 0, len(rows))
	for _, row := range rows {
		wf, err := row.toModel()
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// UpdateWorkflow replaces a workflow's name, description and definition
func (s *PostgresStore) UpdateWorkflow(w models.Workflow) error {
	def, err := json.Marshal(w.Definition)
	if err != nil {
		return fmt.Errorf("encode workflow definition: %w", err)
	}
	res, err := s.db.Exec(
		"UPDATE workflows SET name = $1, description = $2, definition = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4",
		w.Name, w.Description, def, w.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeactivateWorkflow soft-deletes a workflow
func (s *PostgresStore) DeactivateWorkflow(id string) error {
	res, err := s.db.Exec(
		"UPDATE workflows SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type executionRow struct {
	ID             string     `db:"id"`
	WorkflowID     string     `db:"workflow_id"`
	Status         string     `db:"status"`
	InputFileCount int        `db:"input_file_count"`
	Output         []byte     `db:"output"`
	ErrorMsg       string     `db:"error_msg"`
	StartedAt      time.Time  `db:"started_at"`
	CompletedAt    *time.Time `db:"completed_at"`
}

func (r executionRow) toModel() (models.Execution, error) {
	e := models.Execution{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		Status:         models.ExecutionStatus(r.Status),
		InputFileCount: r.InputFileCount,
		ErrorMsg:       r.ErrorMsg,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
	if len(r.Output) > 0 {
		if err := json.Unmarshal(r.Output, &e.Output); err != nil {
			return models.Execution{}, fmt.Errorf("decode execution %s output: %w", r.ID, err)
		}
	}
	return e, nil
}

// SaveExecution records the start of a workflow run
func (s *PostgresStore) SaveExecution(e models.Execution) error {
	output, err := marshalOutput(e)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO executions (id, workflow_id, status, input_file_count, output, error_msg, started_at, completed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		e.ID, e.WorkflowID, e.Status, e.InputFileCount, output, e.ErrorMsg, e.StartedAt, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetExecution(id string) (models.Execution, error) {
	var row executionRow
	err := s.db.Get(&row, "SELECT * FROM executions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Execution{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Execution{}, err
	}
	return row.toModel()
}

// UpdateExecution stores the final status and output of a run
func (s *PostgresStore) UpdateExecution(e models.Execution) error {
	output, err := marshalOutput(e)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE executions SET status = $1, output = $2, error_msg = $3, completed_at = $4 WHERE id = $5",
		e.Status, output, e.ErrorMsg, e.CompletedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	rows := []executionRow{}
	err := s.db.Select(&rows,
		"SELECT * FROM executions WHERE workflow_id = $1 ORDER BY started_at DESC", workflowID)
	if err != nil {
		return nil, err
	}
	executions := make([]models.Execution, 0, len(rows))
	for _, row := range rows {
		e, err := row.toModel()
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	return executions, nil
}

func (s *PostgresStore) CountExecutions() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM executions"); err != nil {
		return 0, err
	}
	return count, nil
}

func marshalOutput(e models.Execution) ([]byte, error) {
	if e.Output == nil {
		return nil, nil
	}
	output, err := json.Marshal(e.Output)
	if err != nil {
		return nil, fmt.Errorf("encode execution output: %w", err)
	}
	return output, nil
}
