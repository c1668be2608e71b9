package routes

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// PatientIDsKey is the config field that receives an applied assembly.
const PatientIDsKey = "patient_ids_list"

type CohortHandler struct {
	corpus  *cohort.FileCorpus
	service *cohort.Service
	config  *configstore.Store

	mu  sync.Mutex
	rng *rand.Rand
}

func NewCohortHandler(corpus *cohort.FileCorpus, service *cohort.Service, config *configstore.Store) *CohortHandler {
	return &CohortHandler{
		corpus:  corpus,
		service: service,
		config:  config,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (h *CohortHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/cohorts", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/cohorts/assemblies", h.handleAssemblies).Methods(http.MethodGet)
	r.HandleFunc("/api/cohorts/generate", h.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/api/cohorts/assemble", h.handleAssemble).Methods(http.MethodPost)
	r.HandleFunc("/api/cohorts/export", h.handleExport).Methods(http.MethodPost)
	r.HandleFunc("/api/cohorts/{filename}", h.handleGet).Methods(http.MethodGet)
}

func (h *CohortHandler) handleList(w http.ResponseWriter, r *http.Request) {
	cohorts, err := h.corpus.List()
	if err != nil {
		writeError(w, err, "error listing cohorts")
		return
	}
	writeJSON(w, map[string]interface{}{"cohorts": cohorts})
}

func (h *CohortHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.corpus.Get(mux.Vars(r)["filename"])
	if err != nil {
		writeError(w, err, "error reading cohort")
		return
	}
	writeJSON(w, detail)
}

func (h *CohortHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Name         string `json:"name"`
		PatientCount int    `json:"patient_count"`
	}{PatientCount: cohort.DefaultSyntheticPatients}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid generate request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.PatientCount <= 0 {
		req.PatientCount = cohort.DefaultSyntheticPatients
	}

	h.mu.Lock()
	patients := cohort.GenerateSynthetic(req.PatientCount, h.rng)
	h.mu.Unlock()

	filename := req.Name + ".json"
	if err := h.corpus.Save(filename, patients); err != nil {
		writeError(w, err, "error generating cohort")
		return
	}
	writeJSON(w, map[string]interface{}{
		"status":        "generated",
		"filename":      filename,
		"patient_count": len(patients),
	})
}

type assembleResponse struct {
	models.CohortAssembleResult
	AppliedToConfig *configstore.SaveResult `json:"applied_to_config,omitempty"`
}

func (h *CohortHandler) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req models.CohortAssembleRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid assemble request", http.StatusBadRequest)
		return
	}

	result, err := h.service.Assemble(r.Context(), req)
	if err != nil {
		writeError(w, err, "error assembling cohort")
		return
	}
	resp := assembleResponse{CohortAssembleResult: result}

	if req.ApplyToConfig {
		ids := strings.Join(result.PatientIDsList, ",")
		saved, err := h.config.Save(configstore.Update{PatientIDsKey: &ids})
		if err != nil {
			writeError(w, err, "error applying cohort to config")
			return
		}
		logger.WithFields(logrus.Fields{
			"corpus":       result.CohortSource,
			"matched":      result.MatchedCount,
			"version_file": saved.VersionFile,
		}).Info("assembled cohort applied to config")
		resp.AppliedToConfig = &saved
	}
	writeJSON(w, resp)
}

func (h *CohortHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	var req models.CohortAssembleRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid assemble request", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="assembled_cohort.csv"`)
	if err := h.service.Export(r.Context(), req, w); err != nil {
		logger.Log.WithError(err).Error("error exporting cohort")
	}
}

func (h *CohortHandler) handleAssemblies(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Assemblies(r.Context(), r.URL.Query().Get("source"), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err, "error listing assemblies")
		return
	}
	writeJSON(w, map[string]interface{}{"assemblies": runs})
}
