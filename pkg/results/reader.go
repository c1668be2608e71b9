package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path"
	"strconv"
	"strings"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	ResultsFile      = "matching_results.csv"
	DummyResultsFile = "dummy_matching_results.csv"
	NoCohort         = "no_cohort"
	MatchDecision    = "MATCH"
	dummyPatients    = 10
)

var (
	Columns = []string{"patient_id", "final_decision", "overall_score", "primary_reasons", "concerns", "decision_reasoning"}

	ErrSheetNotFound = errors.New("sheet not found")
)

type ConfigSource interface {
	Active() (configstore.Configuration, error)
}

// Reader reports on the files the external pipeline writes for the active
// cohort. Missing or unreadable outputs are reported as "no results".
type Reader struct {
	files  *storage.FileStore
	config ConfigSource
	rng    *rand.Rand
}

type Option func(*Reader)

// WithRand fixes the source used for synthetic downloads.
func WithRand(rng *rand.Rand) Option {
	return func(r *Reader) {
		r.rng = rng
	}
}

func NewReader(files *storage.FileStore, config ConfigSource, opts ...Option) *Reader {
	r := &Reader{files: files, config: config}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Reader) resultsPath() (string, configstore.Configuration, error) {
	cfg, err := r.config.Active()
	if err != nil {
		return "", configstore.Configuration{}, err
	}
	return path.Join(cfg.Paths.MatchingResultDir, ResultsFile), cfg, nil
}

func (r *Reader) rows() ([]map[string]string, configstore.Configuration, error) {
	rel, cfg, err := r.resultsPath()
	if err != nil {
		return nil, cfg, err
	}
	if !r.files.Exists(rel) {
		logger.WithField("path", rel).Debug("matching results not found")
		return nil, cfg, nil
	}
	rows, err := r.files.ReadCSV(rel)
	if err != nil {
		logger.WithField("path", rel).WithError(err).Warn("unreadable matching results")
		return nil, cfg, nil
	}
	return rows, cfg, nil
}

func (r *Reader) Summary() (models.ResultsSummary, error) {
	rows, cfg, err := r.rows()
	if err != nil {
		return models.ResultsSummary{}, err
	}
	return Summarize(cfg.CohortName, rows), nil
}

// Summarize counts MATCH decisions case-insensitively and buckets integer
// scores 1 to 5. No rows yields the empty "no_cohort" summary.
func Summarize(cohortName string, rows []map[string]string) models.ResultsSummary {
	summary := models.ResultsSummary{
		CohortName:        NoCohort,
		ScoreDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}
	if len(rows) == 0 {
		return summary
	}
	summary.HasResults = true
	summary.CohortName = cohortName
	summary.TotalPatients = len(rows)
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row["final_decision"]), MatchDecision) {
			summary.MatchedCount++
		}
		score, err := strconv.Atoi(strings.TrimSpace(row["overall_score"]))
		if err != nil {
			continue
		}
		key := strconv.Itoa(score)
		if _, ok := summary.ScoreDistribution[key]; ok {
			summary.ScoreDistribution[key]++
		}
	}
	summary.NotMatchedCount = summary.TotalPatients - summary.MatchedCount
	summary.MatchPercentage = math.Round(float64(summary.MatchedCount)/float64(summary.TotalPatients)*1000) / 10
	return summary
}

// Detailed returns the parsed rows; rows with a non-integer score are skipped.
func (r *Reader) Detailed() ([]models.MatchingResult, error) {
	rows, _, err := r.rows()
	if err != nil {
		return nil, err
	}
	results := make([]models.MatchingResult, 0, len(rows))
	for _, row := range rows {
		score := 0
		if raw, ok := row["overall_score"]; ok {
			parsed, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				continue
			}
			score = parsed
		}
		results = append(results, models.MatchingResult{
			PatientID:         row["patient_id"],
			FinalDecision:     row["final_decision"],
			OverallScore:      score,
			PrimaryReasons:    row["primary_reasons"],
			Concerns:          row["concerns"],
			DecisionReasoning: row["decision_reasoning"],
		})
	}
	return results, nil
}

// Download returns the results file, or a synthetic one for P001..P010 when
// the pipeline has not produced results yet.
func (r *Reader) Download() (string, []byte, error) {
	rel, _, err := r.resultsPath()
	if err != nil {
		return "", nil, err
	}
	if r.files.Exists(rel) {
		data, err := r.files.ReadFile(rel)
		if err != nil {
			return "", nil, err
		}
		return ResultsFile, data, nil
	}

	ids := make([]string, 0, dummyPatients)
	for i := 1; i <= dummyPatients; i++ {
		ids = append(ids, fmt.Sprintf("P%03d", i))
	}
	data, err := EncodeCSV(DummyResults(ids, r.rng))
	if err != nil {
		return "", nil, err
	}
	return DummyResultsFile, data, nil
}

// Evaluation reads the evaluation workbook of the active cohort. An empty
// sheet name selects the active sheet.
func (r *Reader) Evaluation(sheet string) (models.EvaluationSheet, error) {
	cfg, err := r.config.Active()
	if err != nil {
		return models.EvaluationSheet{}, err
	}
	empty := models.EvaluationSheet{Headers: []string{}, Rows: [][]string{}}
	rel := cfg.Paths.EvaluationResultsPath
	if rel == "" || !r.files.Exists(rel) {
		return empty, nil
	}
	full, err := r.files.Abs(rel)
	if err != nil {
		return models.EvaluationSheet{}, err
	}

	f, err := excelize.OpenFile(full)
	if err != nil {
		logger.WithField("path", rel).WithError(err).Warn("unreadable evaluation workbook")
		return empty, nil
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return empty, nil
	}
	target := sheet
	if target == "" {
		target = f.GetSheetName(f.GetActiveSheetIndex())
		if target == "" {
			target = sheets[0]
		}
	}
	found := false
	for _, name := range sheets {
		if name == target {
			found = true
			break
		}
	}
	if !found {
		return models.EvaluationSheet{}, fmt.Errorf("%w: %q (available: %v)", ErrSheetNotFound, target, sheets)
	}

	rows, err := f.GetRows(target)
	if err != nil {
		return models.EvaluationSheet{}, fmt.Errorf("reading sheet %q: %w", target, err)
	}
	if len(rows) == 0 {
		empty.SheetName = target
		return empty, nil
	}

	headers := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		for len(row) < len(headers) {
			row = append(row, "")
		}
		body = append(body, row)
	}
	logger.WithFields(logrus.Fields{"sheet": target, "rows": len(body)}).Debug("evaluation workbook read")
	return models.EvaluationSheet{HasResults: true, SheetName: target, Headers: headers, Rows: body}, nil
}

// EncodeCSV writes results with the standard column order.
func EncodeCSV(results []models.MatchingResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(Columns); err != nil {
		return nil, err
	}
	for _, res := range results {
		record := []string{
			res.PatientID,
			res.FinalDecision,
			strconv.Itoa(res.OverallScore),
			res.PrimaryReasons,
			res.Concerns,
			res.DecisionReasoning,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
