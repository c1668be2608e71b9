package routes

import (
	"net/http"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/gorilla/mux"
)

type ConfigHandler struct {
	store *configstore.Store
	files *storage.FileStore
	now   func() time.Time
}

func NewConfigHandler(store *configstore.Store, files *storage.FileStore) *ConfigHandler {
	return &ConfigHandler{store: store, files: files, now: time.Now}
}

func (h *ConfigHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/config", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/config", h.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/api/config/snapshot", h.handleSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/api/config/versions", h.handleVersions).Methods(http.MethodGet)
	r.HandleFunc("/api/config/versions/{name}", h.handleVersion).Methods(http.MethodGet)
}

func (h *ConfigHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Active()
	if err != nil {
		writeError(w, err, "error reading config")
		return
	}
	writeJSON(w, map[string]interface{}{
		"config":        cfg.Fields(),
		"last_modified": h.store.ModifiedTime().Format(time.RFC3339),
	})
}

func (h *ConfigHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var update configstore.Update
	if err := decodeBody(r, &update); err != nil {
		http.Error(w, "config must be an object of string values", http.StatusBadRequest)
		return
	}
	saved, err := h.store.Save(update)
	if err != nil {
		writeError(w, err, "error saving config")
		return
	}
	writeJSON(w, map[string]string{
		"status":       "saved",
		"version_file": saved.VersionFile,
		"active_file":  saved.ActiveFile,
	})
}

func (h *ConfigHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	dir, saved, err := h.files.Snapshot("", h.now())
	if err != nil {
		writeError(w, err, "error creating snapshot")
		return
	}
	writeJSON(w, map[string]interface{}{
		"status":       "saved",
		"snapshot_dir": dir,
		"files_saved":  saved,
	})
}

func (h *ConfigHandler) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.store.Versions()
	if err != nil {
		writeError(w, err, "error listing config versions")
		return
	}
	writeJSON(w, map[string]interface{}{"versions": versions})
}

func (h *ConfigHandler) handleVersion(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Version(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err, "error reading config version")
		return
	}
	writeJSON(w, map[string]interface{}{"config": cfg.Fields()})
}
