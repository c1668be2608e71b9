package trials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	Dir              = "config_files/trial_files"
	DefaultTrialFile = "default_trial.json"
	UntitledTrial    = "Untitled Trial"

	timestampLayout = "20060102_150405"
	maxTitleInName  = 30
)

var (
	ErrTrialNotFound = errors.New("trial file not found")
	ErrInvalidTrial  = errors.New("invalid trial")
)

type CreateRequest struct {
	ID       string `json:"_id,omitempty"`
	Title    string `json:"title"`
	FullText string `json:"full_text"`
}

type CreateResult struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type UploadResult struct {
	Status   string                 `json:"status"`
	Filename string                 `json:"filename"`
	Trial    map[string]interface{} `json:"trial"`
}

// Service manages trial descriptions stored as JSON documents.
type Service struct {
	files *storage.FileStore
	now   func() time.Time
	mu    sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(files *storage.FileStore, opts ...Option) *Service {
	svc := &Service{files: files, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// List summarizes every readable trial file; unreadable files are skipped.
func (s *Service) List() ([]models.TrialSummary, error) {
	names, err := s.files.ListFiles(Dir, ".json")
	if err != nil {
		return nil, err
	}
	summaries := make([]models.TrialSummary, 0, len(names))
	for _, name := range names {
		var doc map[string]interface{}
		if err := s.files.ReadJSON(path.Join(Dir, name), &doc); err != nil {
			logger.WithField("trial", name).WithError(err).Debug("skipping unreadable trial")
			continue
		}
		trial := fromDocument(name, doc)
		summaries = append(summaries, models.TrialSummary{Filename: name, Title: trial.Title, ID: trial.ID})
	}
	return summaries, nil
}

func (s *Service) Get(filename string) (models.Trial, error) {
	rel, err := trialPath(filename)
	if err != nil {
		return models.Trial{}, fmt.Errorf("%w: %s", ErrTrialNotFound, filename)
	}
	var doc map[string]interface{}
	if err := s.files.ReadJSON(rel, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Trial{}, fmt.Errorf("%w: %s", ErrTrialNotFound, filename)
		}
		return models.Trial{}, err
	}
	return fromDocument(filename, doc), nil
}

// Create stores a new trial under a filename built from its title.
func (s *Service) Create(req CreateRequest) (CreateResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return CreateResult{}, fmt.Errorf("%w: title is required", ErrInvalidTrial)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	id := req.ID
	if id == "" {
		id = "trial_" + ts.Format(timestampLayout)
	}
	filename := s.uniqueName(safeTitle(req.Title), ts)
	rel := path.Join(Dir, filename)
	trial := models.Trial{ID: id, Title: req.Title, FullText: req.FullText}
	if err := s.files.WriteJSON(rel, trial); err != nil {
		return CreateResult{}, err
	}
	logger.WithFields(logrus.Fields{"trial": filename, "trial_id": id}).Info("trial created")
	return CreateResult{Status: "created", Filename: filename, Path: rel}, nil
}

// Upload accepts a JSON or YAML trial document that carries full_text. The
// document is stored as JSON with _id and title filled in when absent.
func (s *Service) Upload(filename string, content []byte) (UploadResult, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))

	var doc map[string]interface{}
	switch ext {
	case ".json":
		if err := json.Unmarshal(content, &doc); err != nil {
			return UploadResult{}, fmt.Errorf("%w: invalid JSON file", ErrInvalidTrial)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return UploadResult{}, fmt.Errorf("%w: invalid YAML file", ErrInvalidTrial)
		}
	default:
		return UploadResult{}, fmt.Errorf("%w: file must be JSON or YAML", ErrInvalidTrial)
	}
	if doc == nil {
		return UploadResult{}, fmt.Errorf("%w: trial must be an object", ErrInvalidTrial)
	}
	if _, ok := doc["full_text"]; !ok {
		return UploadResult{}, fmt.Errorf("%w: trial must have 'full_text' field", ErrInvalidTrial)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = "uploaded_" + ts.Format(timestampLayout)
	}
	if _, ok := doc["title"]; !ok {
		doc["title"] = stem
	}
	stored := s.uniqueName(safeName(stem), ts)
	if err := s.files.WriteJSON(path.Join(Dir, stored), doc); err != nil {
		return UploadResult{}, err
	}
	logger.WithFields(logrus.Fields{"trial": stored, "source": base}).Info("trial uploaded")
	return UploadResult{Status: "uploaded", Filename: stored, Trial: doc}, nil
}

// EnsureDefault writes the synthetic trial when no trial file exists.
func (s *Service) EnsureDefault() (bool, error) {
	names, err := s.files.ListFiles(Dir, ".json")
	if err != nil {
		return false, err
	}
	if len(names) > 0 {
		return false, nil
	}
	if err := s.files.WriteJSON(path.Join(Dir, DefaultTrialFile), Synthetic(s.now())); err != nil {
		return false, err
	}
	logger.WithField("trial", DefaultTrialFile).Info("generated default trial")
	return true, nil
}

func (s *Service) uniqueName(base string, ts time.Time) string {
	for {
		name := base + "_" + ts.Format(timestampLayout) + ".json"
		if !s.files.Exists(path.Join(Dir, name)) {
			return name
		}
		ts = ts.Add(time.Second)
	}
}

func fromDocument(filename string, doc map[string]interface{}) models.Trial {
	trial := models.Trial{
		ID:    strings.TrimSuffix(filename, ".json"),
		Title: UntitledTrial,
	}
	if v, ok := doc["_id"]; ok && v != nil {
		trial.ID = fmt.Sprint(v)
	}
	if v, ok := doc["title"].(string); ok {
		trial.Title = v
	}
	if v, ok := doc["full_text"].(string); ok {
		trial.FullText = v
	}
	return trial
}

func trialPath(filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") || !strings.HasSuffix(filename, ".json") {
		return "", fmt.Errorf("%w: bad filename %q", ErrInvalidTrial, filename)
	}
	return path.Join(Dir, filename), nil
}

// safeTitle keeps the first 30 characters of a title and replaces anything
// that is not a letter or digit with an underscore.
func safeTitle(title string) string {
	runes := []rune(title)
	if len(runes) > maxTitleInName {
		runes = runes[:maxTitleInName]
	}
	return safeName(string(runes))
}

func safeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "trial"
	}
	return b.String()
}
