package configstore

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/observability/metrics"
	"github.com/AUW160150/Sigmatch/pkg/paths"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/sirupsen/logrus"
)

const (
	SettingsDir      = "config_files/overall_config_settings"
	ActiveConfigFile = "active_data_config.json"
	ActiveConfigPath = SettingsDir + "/" + ActiveConfigFile
	VersionBaseName  = "data_config"
)

var ErrVersionNotFound = errors.New("config version not found")

type SaveResult struct {
	VersionFile string `json:"version_file"`
	ActiveFile  string `json:"active_file"`
}

// Store owns the active data configuration and its version history. Writes are
// serialized through a single mutex; the active file is replaced atomically.
type Store struct {
	files *storage.FileStore
	now   func() time.Time
	mu    sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(files *storage.FileStore, opts ...Option) *Store {
	s := &Store{files: files, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Active returns the active configuration, creating and persisting the
// default one when nothing has been saved yet.
func (s *Store) Active() (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrInit()
}

func (s *Store) ModifiedTime() time.Time {
	if modified, ok := s.files.ModifiedTime(ActiveConfigPath); ok {
		return modified
	}
	return s.now()
}

// Save merges updates into the active configuration, re-derives every path
// from the resolved cohort name, and persists a new version plus the active
// record. Caller-supplied path values never survive the re-derivation.
func (s *Store) Save(updates Update) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadOrInit()
	if err != nil {
		return SaveResult{}, err
	}
	resolved, err := resolve(current.Merge(updates))
	if err != nil {
		return SaveResult{}, err
	}
	result, err := s.publish(resolved)
	if err != nil {
		return SaveResult{}, err
	}
	metrics.ObserveConfigSave("save")
	return result, nil
}

// Repair restores the path invariant of the active configuration when its
// cohort name is blank or its paths disagree with the name. It reports whether
// a new version was written.
func (s *Store) Repair() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadOrInit()
	if err != nil {
		return false, err
	}
	name := strings.TrimSpace(cfg.CohortName)
	valid := paths.ValidateCohortName(name) == nil
	if valid && name == cfg.CohortName && cfg.Paths == paths.Derive(name) {
		return false, nil
	}

	logger.WithFields(logrus.Fields{
		"cohort_name":         cfg.CohortName,
		"matching_result_dir": cfg.Paths.MatchingResultDir,
	}).Warn("active config out of sync with cohort name, regenerating paths")

	if name != "" && !valid {
		cfg.CohortName = fallbackName(cfg.PatientsFilePath)
		logger.WithFields(logrus.Fields{
			"invalid_cohort_name": name,
			"cohort_name":         cfg.CohortName,
		}).Warn("persisted cohort name is not usable, falling back")
	}
	resolved, err := resolve(cfg)
	if err != nil {
		return false, err
	}
	if _, err := s.publish(resolved); err != nil {
		return false, err
	}
	metrics.ObserveConfigSave("repair")
	logger.WithField("cohort_name", resolved.CohortName).Info("active config repaired")
	return true, nil
}

// Version reads back an immutable snapshot by file name.
func (s *Store) Version(name string) (Configuration, error) {
	if !isVersionFile(name) {
		return Configuration{}, fmt.Errorf("%w: %s", ErrVersionNotFound, name)
	}
	rel := path.Join(SettingsDir, name)
	if !s.files.Exists(rel) {
		return Configuration{}, fmt.Errorf("%w: %s", ErrVersionNotFound, name)
	}
	var cfg Configuration
	if err := s.files.ReadJSON(rel, &cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func (s *Store) Versions() ([]string, error) {
	files, err := s.files.ListFiles(SettingsDir, ".json")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(files))
	for _, file := range files {
		if isVersionFile(file) {
			versions = append(versions, file)
		}
	}
	return versions, nil
}

func (s *Store) loadOrInit() (Configuration, error) {
	if !s.files.Exists(ActiveConfigPath) {
		cfg := Default()
		if _, err := s.publish(cfg); err != nil {
			return Configuration{}, err
		}
		logger.WithField("cohort_name", cfg.CohortName).Info("created default active config")
		return cfg, nil
	}
	var cfg Configuration
	if err := s.files.ReadJSON(ActiveConfigPath, &cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func (s *Store) publish(cfg Configuration) (SaveResult, error) {
	if err := s.files.EnsureDirectories(paths.Directories(cfg.CohortName)...); err != nil {
		return SaveResult{}, err
	}
	versionFile := s.nextVersionName(cfg.CohortName)
	if err := s.files.WriteJSON(path.Join(SettingsDir, versionFile), cfg); err != nil {
		return SaveResult{}, err
	}
	if err := s.files.WriteJSON(ActiveConfigPath, cfg); err != nil {
		return SaveResult{}, err
	}
	logger.WithFields(logrus.Fields{
		"cohort_name":  cfg.CohortName,
		"version_file": versionFile,
	}).Info("config saved")
	return SaveResult{VersionFile: versionFile, ActiveFile: ActiveConfigFile}, nil
}

// nextVersionName advances the timestamp past any version already on disk so
// two saves inside the same second never share a name.
func (s *Store) nextVersionName(cohortName string) string {
	ts := s.now()
	for {
		name := paths.VersionedFilename(VersionBaseName, cohortName, ts)
		if !s.files.Exists(path.Join(SettingsDir, name)) {
			return name
		}
		ts = ts.Add(time.Second)
	}
}

// resolve picks the cohort name (explicit, then patients file stem, then the
// default) and overwrites every derived path.
func resolve(cfg Configuration) (Configuration, error) {
	name := strings.TrimSpace(cfg.CohortName)
	if name == "" {
		name = paths.CohortFromPatientsFile(cfg.PatientsFilePath)
		if name != "" {
			logger.WithFields(logrus.Fields{
				"cohort_name":        name,
				"patients_file_path": cfg.PatientsFilePath,
			}).Info("extracted cohort name from patients file path")
		}
	}
	if name == "" {
		name = paths.DefaultCohortName
		logger.WithField("cohort_name", name).Warn("no cohort name found, using default")
	}
	if err := paths.ValidateCohortName(name); err != nil {
		return Configuration{}, err
	}
	cfg.CohortName = name
	cfg.Paths = paths.Derive(name)
	return cfg, nil
}

// fallbackName picks the patients file stem when it is a usable cohort name,
// otherwise the default.
func fallbackName(patientsFilePath string) string {
	if stem := paths.CohortFromPatientsFile(patientsFilePath); paths.ValidateCohortName(stem) == nil {
		return stem
	}
	return paths.DefaultCohortName
}

func isVersionFile(name string) bool {
	return !strings.ContainsAny(name, "/\\") &&
		strings.HasPrefix(name, VersionBaseName+"_") &&
		strings.HasSuffix(name, ".json")
}
