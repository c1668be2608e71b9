package routes

import (
	"io"
	"net/http"

	"github.com/AUW160150/Sigmatch/pkg/trials"
	"github.com/gorilla/mux"
)

const uploadField = "file"

type TrialHandler struct {
	service *trials.Service
}

func NewTrialHandler(service *trials.Service) *TrialHandler {
	return &TrialHandler{service: service}
}

func (h *TrialHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/trials", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/trials", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/trials/upload", h.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/trials/{filename}", h.handleGet).Methods(http.MethodGet)
}

func (h *TrialHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		writeError(w, err, "error listing trials")
		return
	}
	writeJSON(w, map[string]interface{}{"trials": list})
}

func (h *TrialHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	trial, err := h.service.Get(filename)
	if err != nil {
		writeError(w, err, "error reading trial")
		return
	}
	writeJSON(w, map[string]interface{}{"filename": filename, "trial": trial})
}

func (h *TrialHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req trials.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid trial", http.StatusBadRequest)
		return
	}
	created, err := h.service.Create(req)
	if err != nil {
		writeError(w, err, "error creating trial")
		return
	}
	writeJSON(w, created)
}

func (h *TrialHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		http.Error(w, "multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	uploaded, err := h.service.Upload(header.Filename, content)
	if err != nil {
		writeError(w, err, "error uploading trial")
		return
	}
	writeJSON(w, uploaded)
}
