package routes

import (
	"net/http"
	"strings"

	"github.com/AUW160150/Sigmatch/pkg/chatlog"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/gorilla/mux"
)

// AssistantPlaceholder answers user messages until an assistant is wired in.
const AssistantPlaceholder = "Thank you for your input. I've noted your message about evaluation criteria. " +
	"In a future version, I'll provide AI-powered suggestions based on your requirements. " +
	"For now, please continue describing your evaluation needs."

type ChatHandler struct {
	log *chatlog.Log
}

func NewChatHandler(log *chatlog.Log) *ChatHandler {
	return &ChatHandler{log: log}
}

func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/chat/history", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/message", h.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/save-criteria", h.handleSaveCriteria).Methods(http.MethodPost)
}

func (h *ChatHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.log.History()
	if err != nil {
		writeError(w, err, "error reading chat history")
		return
	}
	writeJSON(w, map[string]interface{}{
		"messages":       history.Messages,
		"final_criteria": history.FinalCriteria,
	})
}

func (h *ChatHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid chat message", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}

	message, err := h.log.Append(req.Role, req.Content)
	if err != nil {
		writeError(w, err, "error adding message")
		return
	}
	if strings.EqualFold(req.Role, "user") {
		if _, err := h.log.Append("assistant", AssistantPlaceholder); err != nil {
			logger.Log.WithError(err).Warn("failed to append assistant reply")
		}
	}
	writeJSON(w, map[string]interface{}{"status": "added", "message": message})
}

func (h *ChatHandler) handleSaveCriteria(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FinalCriteria string `json:"final_criteria"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid criteria", http.StatusBadRequest)
		return
	}
	if err := h.log.SetFinalCriteria(req.FinalCriteria); err != nil {
		writeError(w, err, "error saving criteria")
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "file": "evaluation_criteria.json"})
}
