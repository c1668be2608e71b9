package cohort

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/observability/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxPatients = 100
	DefaultSource      = "dummy_cohort1.json"

	StatusSuccess         = "success"
	StatusCorpusNotFound  = "corpus_not_found"
	StatusCorpusMalformed = "corpus_malformed"
)

// Loader resolves a corpus reference to its patient records.
type Loader interface {
	Load(ctx context.Context, filename string) ([]models.PatientRecord, error)
}

// AuditTrail stores completed assemblies.
type AuditTrail interface {
	Record(ctx context.Context, run models.AssemblyRun) error
	List(ctx context.Context, cohortSource string, limit int) ([]models.AssemblyRun, error)
}

type Service struct {
	corpus Loader
	audit  AuditTrail
	now    func() time.Time
}

type Option func(*Service)

func WithAuditTrail(audit AuditTrail) Option {
	return func(s *Service) {
		s.audit = audit
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(corpus Loader, opts ...Option) *Service {
	svc := &Service{corpus: corpus, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Assemble filters the first MaxPatients records of a corpus with keyword
// criteria: any keyword satisfies a criterion and every criterion must hold.
// An omitted MaxPatients searches DefaultMaxPatients records; zero or less
// searches none. A missing or malformed corpus gives an empty result rather
// than an error.
func (s *Service) Assemble(ctx context.Context, req models.CohortAssembleRequest) (models.CohortAssembleResult, error) {
	started := time.Now()
	source := strings.TrimSpace(req.CohortSource)
	if source == "" {
		source = DefaultSource
	}
	maxPatients := DefaultMaxPatients
	if req.MaxPatients != nil {
		maxPatients = max(*req.MaxPatients, 0)
	}
	criteriaUsed := req.Criteria
	if criteriaUsed == nil {
		criteriaUsed = []string{}
	}
	result := models.CohortAssembleResult{
		Status:          StatusSuccess,
		CohortSource:    source,
		CriteriaUsed:    criteriaUsed,
		MatchedPatients: []models.MatchedPatient{},
		PatientIDsList:  []string{},
	}

	patients, err := s.corpus.Load(ctx, source)
	switch {
	case errors.Is(err, ErrCorpusNotFound):
		logger.WithField("corpus", source).Warn("cohort source not found, returning empty result")
		result.Status = StatusCorpusNotFound
		metrics.ObserveAssembly("missing_corpus", 0, time.Since(started))
		return result, nil
	case errors.Is(err, ErrMalformedCorpus):
		logger.WithField("corpus", source).WithError(err).Warn("cohort source malformed, returning empty result")
		result.Status = StatusCorpusMalformed
		metrics.ObserveAssembly("missing_corpus", 0, time.Since(started))
		return result, nil
	case err != nil:
		return models.CohortAssembleResult{}, err
	}

	if len(patients) > maxPatients {
		patients = patients[:maxPatients]
	}
	criteria := compileCriteria(req.Criteria)
	for _, patient := range patients {
		reasons, ok := matchPatient(patient.FullText, criteria)
		if !ok {
			continue
		}
		result.MatchedPatients = append(result.MatchedPatients, models.MatchedPatient{
			PatientID:    patient.PatientID,
			MatchReasons: reasons,
		})
		result.PatientIDsList = append(result.PatientIDsList, patient.PatientID)
	}
	result.TotalSearched = len(patients)
	result.MatchedCount = len(result.MatchedPatients)

	outcome := "matched"
	if result.MatchedCount == 0 {
		outcome = "empty"
	}
	metrics.ObserveAssembly(outcome, result.MatchedCount, time.Since(started))
	logger.WithFields(logrus.Fields{
		"corpus":         source,
		"criteria":       len(req.Criteria),
		"effective":      len(criteria),
		"total_searched": result.TotalSearched,
		"matched":        result.MatchedCount,
	}).Info("cohort assembled")

	s.record(ctx, maxPatients, result)
	return result, nil
}

// Assemblies lists recorded runs; without an audit trail the list is empty.
func (s *Service) Assemblies(ctx context.Context, cohortSource string, limit int) ([]models.AssemblyRun, error) {
	if s.audit == nil {
		return []models.AssemblyRun{}, nil
	}
	return s.audit.List(ctx, cohortSource, limit)
}

// Export writes the matched patients of an assembly as CSV.
func (s *Service) Export(ctx context.Context, req models.CohortAssembleRequest, w io.Writer) error {
	result, err := s.Assemble(ctx, req)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"patient_id", "match_reasons"}); err != nil {
		return err
	}
	for _, patient := range result.MatchedPatients {
		if err := writer.Write([]string{patient.PatientID, strings.Join(patient.MatchReasons, "; ")}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *Service) record(ctx context.Context, maxPatients int, result models.CohortAssembleResult) {
	if s.audit == nil {
		return
	}
	run := models.AssemblyRun{
		ID:            uuid.New(),
		CohortSource:  result.CohortSource,
		Criteria:      result.CriteriaUsed,
		MaxPatients:   maxPatients,
		TotalSearched: result.TotalSearched,
		MatchedCount:  result.MatchedCount,
		PatientIDs:    result.PatientIDsList,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.audit.Record(ctx, run); err != nil {
		logger.Log.WithError(err).Warn("failed to record cohort assembly")
	}
}
