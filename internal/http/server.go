package http

import (
	"net/http"

	"github.com/Deuspheara/doc-processor/internal/log"
	"github.com/Deuspheara/doc-processor/pkg/service"
)

// NewHandler builds the API routing table around a workflow service.
func NewHandler(svc *service.WorkflowService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler(svc))

	mux.HandleFunc("POST /workflows", createWorkflowHandler(svc))
	mux.HandleFunc("GET /workflows", listWorkflowsHandler(svc))
	mux.HandleFunc("POST /workflows/validate", validateWorkflowHandler(svc))
	mux.HandleFunc("GET /workflows/{id}", getWorkflowHandler(svc))
	mux.HandleFunc("PUT /workflows/{id}", updateWorkflowHandler(svc))
	mux.HandleFunc("DELETE /workflows/{id}", deleteWorkflowHandler(svc))

	mux.HandleFunc("POST /workflows/{id}/execute", executeWorkflowHandler(svc))
	mux.HandleFunc("GET /workflows/{id}/executions", listExecutionsHandler(svc))
	mux.HandleFunc("GET /workflows/{id}/executions/{execID}", getExecutionHandler(svc))

	return mux
}

func StartServer(port string, svc *service.WorkflowService) error {
	log.GetLogger().Infof("Starting doc-processor server on :%s", port)
	return http.ListenAndServe(":"+port, NewHandler(svc))
}
