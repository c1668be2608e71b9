package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient corpus
type PatientRecord struct {
	PatientID string `json:"patient_id"`
	FullText  string `json:"full_text"`
}

type CohortSummary struct {
	Filename     string `json:"filename"`
	PatientCount int    `json:"patient_count"`
}

type CohortDetail struct {
	Filename     string          `json:"filename"`
	Patients     []PatientRecord `json:"patients"`
	PatientCount int             `json:"patient_count"`
}

// Cohort assembly
type CohortAssembleRequest struct {
	Criteria      []string `json:"criteria"`
	MaxPatients   *int     `json:"max_patients,omitempty"`
	CohortSource  string   `json:"cohort_source,omitempty"`
	ApplyToConfig bool     `json:"apply_to_config,omitempty"`
}

type MatchedPatient struct {
	PatientID    string   `json:"patient_id"`
	MatchReasons []string `json:"match_reasons"`
}

type CohortAssembleResult struct {
	Status          string           `json:"status"`
	CohortSource    string           `json:"cohort_source"`
	CriteriaUsed    []string         `json:"criteria_used"`
	TotalSearched   int              `json:"total_searched"`
	MatchedCount    int              `json:"matched_count"`
	MatchedPatients []MatchedPatient `json:"matched_patients"`
	PatientIDsList  []string         `json:"patient_ids_list"`
}

type AssemblyRun struct {
	ID            uuid.UUID `json:"id"`
	CohortSource  string    `json:"cohort_source"`
	Criteria      []string  `json:"criteria"`
	MaxPatients   int       `json:"max_patients"`
	TotalSearched int       `json:"total_searched"`
	MatchedCount  int       `json:"matched_count"`
	PatientIDs    []string  `json:"patient_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

// Trials
type Trial struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	FullText string `json:"full_text"`
}

type TrialSummary struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	ID       string `json:"_id"`
}

// Evaluation chat
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Pipeline staging
type PipelineStatus struct {
	Status      string     `json:"status"`
	LastRun     *time.Time `json:"last_run"`
	LastStaged  *time.Time `json:"last_staged,omitempty"`
	LastCommand string     `json:"last_command,omitempty"`
}

type PipelineRunResponse struct {
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	ConfigUsed map[string]string `json:"config_used"`
}

// Results
type ResultsSummary struct {
	HasResults        bool           `json:"has_results"`
	CohortName        string         `json:"cohort_name"`
	TotalPatients     int            `json:"total_patients"`
	MatchedCount      int            `json:"matched_count"`
	NotMatchedCount   int            `json:"not_matched_count"`
	MatchPercentage   float64        `json:"match_percentage"`
	ScoreDistribution map[string]int `json:"score_distribution"`
}

type MatchingResult struct {
	PatientID         string `json:"patient_id"`
	FinalDecision     string `json:"final_decision"`
	OverallScore      int    `json:"overall_score"`
	PrimaryReasons    string `json:"primary_reasons"`
	Concerns          string `json:"concerns"`
	DecisionReasoning string `json:"decision_reasoning"`
}

type EvaluationSheet struct {
	HasResults bool       `json:"has_results"`
	SheetName  string     `json:"sheet_name,omitempty"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
}

// Event bus envelope
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
