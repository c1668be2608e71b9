package paths

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultCohortName = "dummy_cohort1"

var ErrInvalidCohortName = errors.New("invalid cohort name")

// Set is every path derived from a cohort name. Field tags are the keys the
// external pipeline reads from the data config file.
type Set struct {
	PDFDataDir                string `json:"pdf_data_dir"`
	OCRDataDir                string `json:"ocr_data_dir"`
	LLMSummarizationResultDir string `json:"llm_summarization_result_dir"`
	MatchingResultDir         string `json:"matching_result_dir"`
	ExtractedFeaturesPath     string `json:"extracted_features_path"`
	EvaluationResultsPath     string `json:"evaluation_results_path"`
}

// Derive is pure and total: the same name always yields the same set.
func Derive(cohortName string) Set {
	return Set{
		PDFDataDir:                "documents/pdfs/" + cohortName,
		OCRDataDir:                "documents/ocr/" + cohortName,
		LLMSummarizationResultDir: "results_dir/llm_summarization/" + cohortName,
		MatchingResultDir:         "results_dir/matching/" + cohortName,
		ExtractedFeaturesPath:     fmt.Sprintf("results_dir/llm_summarization/%s/patient_feature_summaries_%s.csv", cohortName, cohortName),
		EvaluationResultsPath:     fmt.Sprintf("results_dir/evaluation/matching_results_summary_%s.xlsx", cohortName),
	}
}

// Fields returns the set keyed by its persisted field names.
func (s Set) Fields() map[string]string {
	return map[string]string{
		"pdf_data_dir":                 s.PDFDataDir,
		"ocr_data_dir":                 s.OCRDataDir,
		"llm_summarization_result_dir": s.LLMSummarizationResultDir,
		"matching_result_dir":          s.MatchingResultDir,
		"extracted_features_path":      s.ExtractedFeaturesPath,
		"evaluation_results_path":      s.EvaluationResultsPath,
	}
}

// IsDerivedField reports whether key is overwritten on every save.
func IsDerivedField(key string) bool {
	_, ok := Set{}.Fields()[key]
	return ok
}

// Directories lists the on-disk directories a cohort needs before a run.
func Directories(cohortName string) []string {
	return []string{
		"results_dir/llm_summarization/" + cohortName,
		"results_dir/matching/" + cohortName,
		"results_dir/llm_extracted_features/" + cohortName,
		"results_dir/evaluation",
		"documents/ocr/" + cohortName,
		"documents/pdfs/" + cohortName,
		"snapshots",
	}
}

// ValidateCohortName rejects names that are not a single safe path segment.
func ValidateCohortName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidCohortName)
	case name == "." || strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains a parent reference", ErrInvalidCohortName, name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidCohortName, name)
	case strings.ContainsAny(name, "\x00:*?\"<>|"):
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidCohortName, name)
	}
	return nil
}

// CohortFromPatientsFile takes the last segment of a corpus path and strips
// its .json suffix: "config_files/pipeline_json_files/legacy.json" -> "legacy".
func CohortFromPatientsFile(patientsFilePath string) string {
	trimmed := strings.TrimSpace(patientsFilePath)
	if trimmed == "" {
		return ""
	}
	segments := strings.Split(trimmed, "/")
	return strings.TrimSuffix(segments[len(segments)-1], ".json")
}

// VersionedFilename renders {base}_{identifier}__{YYYYMMDD_HHMMSS}.json.
func VersionedFilename(base, identifier string, ts time.Time) string {
	return fmt.Sprintf("%s_%s__%s.json", base, identifier, ts.Format("20060102_150405"))
}
