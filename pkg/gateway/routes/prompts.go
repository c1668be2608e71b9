package routes

import (
	"net/http"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/prompts"
	"github.com/gorilla/mux"
)

type PromptHandler struct {
	store *prompts.Store
}

func NewPromptHandler(store *prompts.Store) *PromptHandler {
	return &PromptHandler{store: store}
}

func (h *PromptHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/prompts", h.handleAll).Methods(http.MethodGet)
	r.HandleFunc("/api/prompts/save", h.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/api/prompts/{agent}", h.handleAgent).Methods(http.MethodGet)
	r.HandleFunc("/api/prompts/{agent}", h.handleUpdate).Methods(http.MethodPut)
}

func (h *PromptHandler) handleAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.All()
	if err != nil {
		writeError(w, err, "error reading prompts")
		return
	}
	writeJSON(w, map[string]interface{}{
		"prompts":       settings,
		"last_modified": h.store.ModifiedTime().Format(time.RFC3339),
	})
}

func (h *PromptHandler) handleAgent(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["agent"]
	prompt, err := h.store.Agent(name)
	if err != nil {
		writeError(w, err, "error reading prompt")
		return
	}
	writeJSON(w, map[string]interface{}{
		"agent_name":    name,
		"system_prompt": prompt.SystemPrompt,
		"main_prompt":   prompt.MainPrompt,
		"skip":          prompt.Skip,
	})
}

func (h *PromptHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["agent"]
	var update prompts.AgentUpdate
	if err := decodeBody(r, &update); err != nil {
		http.Error(w, "invalid prompt update", http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateAgent(name, update); err != nil {
		writeError(w, err, "error updating prompt")
		return
	}
	writeJSON(w, map[string]string{"status": "updated", "agent_name": name})
}

func (h *PromptHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	versionFile, err := h.store.SaveVersioned()
	if err != nil {
		writeError(w, err, "error saving prompts")
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "version_file": versionFile})
}
