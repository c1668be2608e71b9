package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/paths"
	"github.com/AUW160150/Sigmatch/pkg/prompts"
	"github.com/AUW160150/Sigmatch/pkg/results"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/AUW160150/Sigmatch/pkg/trials"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}

// writeError maps store sentinels to client errors; anything else is logged
// and reported as a 500 with msg.
func writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, cohort.ErrCorpusNotFound),
		errors.Is(err, trials.ErrTrialNotFound),
		errors.Is(err, prompts.ErrAgentNotFound),
		errors.Is(err, configstore.ErrVersionNotFound),
		errors.Is(err, results.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, cohort.ErrInvalidCorpusName),
		errors.Is(err, cohort.ErrMalformedCorpus),
		errors.Is(err, trials.ErrInvalidTrial),
		errors.Is(err, paths.ErrInvalidCohortName),
		errors.Is(err, storage.ErrOutsideRoot),
		errors.Is(err, storage.ErrInvalidSnapshotName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return fallback
}

// RegisterHealth serves the liveness probe.
func RegisterHealth(r *mux.Router) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "service": "sigmatch"})
	}).Methods(http.MethodGet)
}
