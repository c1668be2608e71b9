package cohort

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/observability/metrics"
	"github.com/AUW160150/Sigmatch/pkg/paths"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/patrickmn/go-cache"
)

const CorpusDir = "config_files/pipeline_json_files"

var (
	ErrCorpusNotFound     = errors.New("cohort file not found")
	ErrMalformedCorpus    = errors.New("cohort file is not a list of patient records")
	ErrInvalidCorpusName  = errors.New("invalid cohort file name")
	defaultCorpusCacheTTL = 5 * time.Minute
)

type cachedCorpus struct {
	modified time.Time
	patients []models.PatientRecord
}

// FileCorpus reads patient corpora from the pipeline JSON directory. Parsed
// corpora are cached until the file's modification time changes or the entry
// is invalidated.
type FileCorpus struct {
	files *storage.FileStore
	cache *cache.Cache
}

func NewFileCorpus(files *storage.FileStore, ttl time.Duration) *FileCorpus {
	if ttl <= 0 {
		ttl = defaultCorpusCacheTTL
	}
	return &FileCorpus{
		files: files,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Dir is the absolute corpus directory.
func (c *FileCorpus) Dir() (string, error) {
	return c.files.Abs(CorpusDir)
}

// List returns every corpus with its patient count. Files that do not parse
// are skipped.
func (c *FileCorpus) List() ([]models.CohortSummary, error) {
	names, err := c.files.ListFiles(CorpusDir, ".json")
	if err != nil {
		return nil, err
	}
	summaries := make([]models.CohortSummary, 0, len(names))
	for _, name := range names {
		patients, err := c.Load(context.Background(), name)
		if err != nil {
			logger.WithField("corpus", name).WithError(err).Debug("skipping unreadable corpus")
			continue
		}
		summaries = append(summaries, models.CohortSummary{Filename: name, PatientCount: len(patients)})
	}
	return summaries, nil
}

func (c *FileCorpus) Get(filename string) (models.CohortDetail, error) {
	patients, err := c.Load(context.Background(), filename)
	if err != nil {
		return models.CohortDetail{}, err
	}
	return models.CohortDetail{
		Filename:     filename,
		Patients:     patients,
		PatientCount: len(patients),
	}, nil
}

// Save writes a corpus under filename, replacing any existing file.
func (c *FileCorpus) Save(filename string, patients []models.PatientRecord) error {
	rel, err := corpusPath(filename)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []models.PatientRecord{}
	}
	if err := c.files.WriteJSON(rel, patients); err != nil {
		return err
	}
	c.Invalidate(filename)
	logger.WithField("corpus", filename).WithField("patients", len(patients)).Info("corpus saved")
	return nil
}

func (c *FileCorpus) Exists(filename string) bool {
	rel, err := corpusPath(filename)
	return err == nil && c.files.Exists(rel)
}

// Load returns the records of a corpus in stored order. Missing files yield
// ErrCorpusNotFound and content that is not a JSON array ErrMalformedCorpus.
func (c *FileCorpus) Load(ctx context.Context, filename string) ([]models.PatientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := corpusPath(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, filename)
	}
	modified, ok := c.files.ModifiedTime(rel)
	if !ok {
		c.cache.Delete(filename)
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, filename)
	}
	if cached, found := c.cache.Get(filename); found {
		entry := cached.(cachedCorpus)
		if entry.modified.Equal(modified) {
			metrics.ObserveCorpusCache("hit")
			return entry.patients, nil
		}
	}
	metrics.ObserveCorpusCache("miss")

	data, err := c.files.ReadFile(rel)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	patients, err := decodeCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCorpus, filename, err)
	}
	c.cache.Set(filename, cachedCorpus{modified: modified, patients: patients}, cache.DefaultExpiration)
	return patients, nil
}

func (c *FileCorpus) Invalidate(filename string) {
	c.cache.Delete(filename)
	metrics.ObserveCorpusCache("invalidate")
}

func corpusPath(filename string) (string, error) {
	stem := strings.TrimSuffix(filename, ".json")
	if !strings.HasSuffix(filename, ".json") || paths.ValidateCohortName(stem) != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCorpusName, filename)
	}
	return path.Join(CorpusDir, filename), nil
}

// decodeCorpus accepts a JSON array of objects. Records missing patient_id get
// a positional placeholder and records missing full_text get an empty string.
func decodeCorpus(data []byte) ([]models.PatientRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	patients := make([]models.PatientRecord, 0, len(raw))
	for i, item := range raw {
		var fields map[string]interface{}
		_ = json.Unmarshal(item, &fields)
		patients = append(patients, models.PatientRecord{
			PatientID: stringField(fields, "patient_id", fmt.Sprintf("P%03d", i+1)),
			FullText:  stringField(fields, "full_text", ""),
		})
	}
	return patients, nil
}

func stringField(fields map[string]interface{}, key, fallback string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case nil:
		return fallback
	default:
		return fmt.Sprintf("%v", v)
	}
}
