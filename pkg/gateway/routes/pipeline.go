package routes

import (
	"net/http"

	"github.com/AUW160150/Sigmatch/pkg/pipeline"
	"github.com/gorilla/mux"
)

type PipelineHandler struct {
	service *pipeline.Service
}

func NewPipelineHandler(service *pipeline.Service) *PipelineHandler {
	return &PipelineHandler{service: service}
}

func (h *PipelineHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/pipeline/run", h.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/api/pipeline/status", h.handleStatus).Methods(http.MethodGet)
}

// handleRun stages the orchestrator command; nothing is executed.
func (h *PipelineHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	req := pipeline.DefaultRunRequest()
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid pipeline request", http.StatusBadRequest)
		return
	}
	resp, err := h.service.Stage(r.Context(), req)
	if err != nil {
		writeError(w, err, "error generating pipeline command")
		return
	}
	writeJSON(w, resp)
}

func (h *PipelineHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		writeError(w, err, "error reading pipeline status")
		return
	}
	writeJSON(w, status)
}
