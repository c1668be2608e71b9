package routes

import (
	"net/http"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/results"
	"github.com/gorilla/mux"
)

type ResultsHandler struct {
	reader *results.Reader
}

func NewResultsHandler(reader *results.Reader) *ResultsHandler {
	return &ResultsHandler{reader: reader}
}

func (h *ResultsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/results/summary", h.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/results/detailed", h.handleDetailed).Methods(http.MethodGet)
	r.HandleFunc("/api/results/download", h.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/api/results/evaluation", h.handleEvaluation).Methods(http.MethodGet)
}

func (h *ResultsHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reader.Summary()
	if err != nil {
		writeError(w, err, "error reading results")
		return
	}
	writeJSON(w, summary)
}

func (h *ResultsHandler) handleDetailed(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reader.Detailed()
	if err != nil {
		writeError(w, err, "error reading results")
		return
	}
	writeJSON(w, map[string]interface{}{"results": rows})
}

func (h *ResultsHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.reader.Download()
	if err != nil {
		writeError(w, err, "error downloading results")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(data); err != nil {
		logger.Log.WithError(err).Error("failed to write results download")
	}
}

func (h *ResultsHandler) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.reader.Evaluation(r.URL.Query().Get("sheet"))
	if err != nil {
		writeError(w, err, "error reading evaluation workbook")
		return
	}
	writeJSON(w, sheet)
}
