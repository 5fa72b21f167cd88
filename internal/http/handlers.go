package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Deuspheara/doc-processor/internal/log"
	"github.com/Deuspheara/doc-processor/pkg/models"
	"github.com/Deuspheara/doc-processor/pkg/ocr"
	"github.com/Deuspheara/doc-processor/pkg/service"
	"github.com/Deuspheara/doc-processor/pkg/storage"
)

const maxUploadBytes = 64 * 1024 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflows, executions, err := svc.Health()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "error",
				"service": "doc-processor",
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          "doc-processor",
			"workflows_count":  workflows,
			"executions_count": executions,
		})
	}
}

type workflowRequest struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Definition  *models.WorkflowDefinition `json:"definition"`
}

func createWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req workflowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Definition == nil {
			writeError(w, http.StatusBadRequest, "missing 'definition'")
			return
		}
		id, err := svc.CreateWorkflow(req.Name, req.Description, *req.Definition)
		if err != nil {
			log.GetLogger().Errorf("Failed to create workflow: %v", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"id":      id,
			"message": "Workflow created successfully",
		})
	}
}

func listWorkflowsHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflows, err := svc.ListWorkflows()
		if err != nil {
			log.GetLogger().Errorf("Failed to list workflows: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list workflows")
			return
		}
		if workflows == nil {
			workflows = []models.Workflow{}
		}
		writeJSON(w, http.StatusOK, workflows)
	}
}

func getWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, err := svc.GetWorkflow(r.PathValue("id"))
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to get workflow: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to get workflow")
			return
		}
		writeJSON(w, http.StatusOK, wf)
	}
}

func updateWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req workflowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id := r.PathValue("id")
		err := svc.UpdateWorkflow(id, req.Name, req.Description, req.Definition)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to update workflow %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to update workflow")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":      id,
			"message": "Workflow updated successfully",
		})
	}
}

func deleteWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		err := svc.DeleteWorkflow(id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to delete workflow %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to delete workflow")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":      id,
			"message": "Workflow deleted successfully",
		})
	}
}

func validateWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var def models.WorkflowDefinition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, svc.ValidateDefinition(def))
	}
}

func executeWorkflowHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		docs, err := readUploadedDocuments(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		execution, err := svc.ExecuteWorkflow(r.Context(), id, docs)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		case errors.Is(err, service.ErrDocumentsRequired):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			log.GetLogger().Errorf("Workflow execution failed for %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Workflow execution failed: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"execution_id": execution.ID,
			"status":       execution.Status,
			"result":       execution.Output,
			"summary":      executionSummary(execution),
			"completed_at": execution.CompletedAt,
		})
	}
}

func listExecutionsHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := svc.GetWorkflow(id); errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		executions, err := svc.ListExecutions(id)
		if err != nil {
			log.GetLogger().Errorf("Failed to list executions for %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to list executions")
			return
		}
		if executions == nil {
			executions = []models.Execution{}
		}
		writeJSON(w, http.StatusOK, executions)
	}
}

func getExecutionHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		execution, err := svc.GetExecution(r.PathValue("id"), r.PathValue("execID"))
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "execution not found")
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to get execution: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to get execution")
			return
		}
		writeJSON(w, http.StatusOK, execution)
	}
}

func executionSummary(e models.Execution) any {
	if e.Output == nil {
		return nil
	}
	return e.Output.Summary
}

// readUploadedDocuments turns the multipart "files" parts into input
// documents for the run.
func readUploadedDocuments(r *http.Request) ([]models.Document, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, errors.Wrap(err, "parse multipart form")
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	var docs []models.Document
	for i, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open uploaded file %s", header.Filename)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read uploaded file %s", header.Filename)
		}
		if _, err := ocr.ValidateFileSize(content); err != nil {
			return nil, err
		}

		filename := header.Filename
		if filename == "" {
			filename = fmt.Sprintf("document_%d", i)
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		docs = append(docs, models.Document{
			ID:          fmt.Sprintf("%s_%d", filename, i),
			Filename:    filename,
			Content:     content,
			ContentType: contentType,
			Metadata: map[string]any{
				"filename":    filename,
				"size":        len(content),
				"uploaded_at": time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	return docs, nil
}
