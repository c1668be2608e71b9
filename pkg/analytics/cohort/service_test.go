package cohort

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/storage"
)

type memoryAudit struct {
	runs []models.AssemblyRun
}

func (m *memoryAudit) Record(_ context.Context, run models.AssemblyRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryAudit) List(_ context.Context, source string, limit int) ([]models.AssemblyRun, error) {
	var out []models.AssemblyRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if source == "" || m.runs[i].CohortSource == source {
			out = append(out, m.runs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func intPtr(n int) *int { return &n }

func newTestService(t *testing.T, opts ...Option) (*Service, *FileCorpus, *storage.FileStore) {
	t.Helper()
	files := storage.NewFileStore(t.TempDir())
	corpus := NewFileCorpus(files, time.Minute)
	return NewService(corpus, opts...), corpus, files
}

func uniformCorpus(n int, text string) []models.PatientRecord {
	patients := make([]models.PatientRecord, 0, n)
	for i := 1; i <= n; i++ {
		patients = append(patients, models.PatientRecord{PatientID: fmt.Sprintf("P%03d", i), FullText: text})
	}
	return patients
}

func TestAssembleAndAcrossCriteriaOrWithin(t *testing.T) {
	svc, corpus, _ := newTestService(t)
	patients := []models.PatientRecord{
		{PatientID: "P001", FullText: "Treated with gemcitabine for bladder cancer."},
		{PatientID: "P002", FullText: "Gemcitabine given. Stage III urothelial carcinoma."},
		{PatientID: "P003", FullText: "Stage III disease, on observation."},
	}
	if err := corpus.Save("trial.json", patients); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "trial.json",
		Criteria:     []string{"gemcitabine", "stage III"},
		MaxPatients:  intPtr(50),
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("unexpected status %q", result.Status)
	}
	if result.TotalSearched != 3 || result.MatchedCount != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.PatientIDsList[0] != "P002" {
		t.Fatalf("expected P002, got %v", result.PatientIDsList)
	}
	reasons := result.MatchedPatients[0].MatchReasons
	if len(reasons) != 2 || reasons[0] != "Matches 'gemcitabine' (found: gemcitabine)" {
		t.Fatalf("unexpected evidence %v", reasons)
	}
}

func TestAssembleStopWordCriterionMatchesNothing(t *testing.T) {
	svc, corpus, _ := newTestService(t)
	if err := corpus.Save("ten.json", uniformCorpus(10, "the a of everything")); err != nil {
		t.Fatalf("save: %v", err)
	}
	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "ten.json",
		Criteria:     []string{"the a of"},
		MaxPatients:  intPtr(50),
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if result.MatchedCount != 0 || result.TotalSearched != 10 {
		t.Fatalf("expected 0 of 10 matched, got %d of %d", result.MatchedCount, result.TotalSearched)
	}
	if len(result.CriteriaUsed) != 1 {
		t.Fatalf("criteria used should echo the request, got %v", result.CriteriaUsed)
	}
}

func TestAssembleStopWordCriterionIsNoOpBesideOthers(t *testing.T) {
	svc, corpus, _ := newTestService(t)
	if err := corpus.Save("c.json", uniformCorpus(4, "metastatic colon cancer")); err != nil {
		t.Fatalf("save: %v", err)
	}
	result, _ := svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "c.json",
		Criteria:     []string{"the a of", "colon"},
	})
	if result.MatchedCount != 4 {
		t.Fatalf("stop-word criterion should not constrain, got %d", result.MatchedCount)
	}
}

func TestAssembleTruncatesCorpus(t *testing.T) {
	svc, corpus, _ := newTestService(t)
	if err := corpus.Save("hundred.json", uniformCorpus(100, "colon adenocarcinoma")); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "hundred.json",
		Criteria:     []string{},
		MaxPatients:  intPtr(10),
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if result.TotalSearched != 10 || result.MatchedCount != 0 {
		t.Fatalf("unexpected counts %d/%d", result.MatchedCount, result.TotalSearched)
	}

	result, _ = svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "hundred.json",
		Criteria:     []string{"colon"},
		MaxPatients:  intPtr(10),
	})
	if result.MatchedCount != 10 || result.PatientIDsList[9] != "P010" {
		t.Fatalf("expected first ten records in order, got %v", result.PatientIDsList)
	}

	result, _ = svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "hundred.json",
		Criteria:     []string{"colon"},
	})
	if result.TotalSearched != DefaultMaxPatients {
		t.Fatalf("expected default cap %d, got %d", DefaultMaxPatients, result.TotalSearched)
	}

	for _, limit := range []int{0, -5} {
		result, err = svc.Assemble(context.Background(), models.CohortAssembleRequest{
			CohortSource: "hundred.json",
			Criteria:     []string{"colon"},
			MaxPatients:  intPtr(limit),
		})
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		if result.TotalSearched != 0 || result.MatchedCount != 0 {
			t.Fatalf("max %d: expected nothing searched, got %d/%d", limit, result.MatchedCount, result.TotalSearched)
		}
	}
}

func TestAssembleMissingCorpusIsSoft(t *testing.T) {
	svc, _, _ := newTestService(t)
	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{
		CohortSource: "nonexistent.json",
		Criteria:     []string{"x"},
		MaxPatients:  intPtr(50),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.MatchedCount != 0 || len(result.PatientIDsList) != 0 || result.PatientIDsList == nil {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if result.Status != StatusCorpusNotFound {
		t.Fatalf("unexpected status %q", result.Status)
	}

	result, err = svc.Assemble(context.Background(), models.CohortAssembleRequest{CohortSource: "../../etc/passwd", Criteria: []string{"root"}})
	if err != nil || result.MatchedCount != 0 {
		t.Fatalf("traversal should be treated as missing, got %+v %v", result, err)
	}
}

func TestAssembleMalformedCorpusIsSoft(t *testing.T) {
	svc, _, files := newTestService(t)
	if err := files.WriteFile(CorpusDir+"/bad.json", []byte(`{"patients": []}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{CohortSource: "bad.json", Criteria: []string{"colon"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Status != StatusCorpusMalformed || result.MatchedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAssembleDegradesBadRecords(t *testing.T) {
	svc, _, files := newTestService(t)
	raw := `[{"full_text": "colon cancer"}, {"patient_id": "A7"}, 42, {"patient_id": "B9", "full_text": "COLON"}]`
	if err := files.WriteFile(CorpusDir+"/mixed.json", []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{CohortSource: "mixed.json", Criteria: []string{"colon"}})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if result.TotalSearched != 4 {
		t.Fatalf("expected 4 searched, got %d", result.TotalSearched)
	}
	if len(result.PatientIDsList) != 2 || result.PatientIDsList[0] != "P001" || result.PatientIDsList[1] != "B9" {
		t.Fatalf("unexpected ids %v", result.PatientIDsList)
	}
}

func TestAssembleRecordsAudit(t *testing.T) {
	audit := &memoryAudit{}
	clock := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)
	svc, corpus, _ := newTestService(t, WithAuditTrail(audit), WithClock(func() time.Time { return clock }))
	if err := corpus.Save("a.json", uniformCorpus(3, "rectal adenocarcinoma")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Assemble(context.Background(), models.CohortAssembleRequest{CohortSource: "a.json", Criteria: []string{"rectal"}, MaxPatients: intPtr(2)}); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	runs, err := svc.Assemblies(context.Background(), "a.json", 10)
	if err != nil {
		t.Fatalf("assemblies: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.MatchedCount != 2 || run.MaxPatients != 2 || !run.CreatedAt.Equal(clock) {
		t.Fatalf("unexpected run %+v", run)
	}

	plain, _, _ := newTestService(t)
	if runs, err := plain.Assemblies(context.Background(), "", 10); err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list without audit, got %v %v", runs, err)
	}
}

func TestExport(t *testing.T) {
	svc, corpus, _ := newTestService(t)
	patients := []models.PatientRecord{
		{PatientID: "P001", FullText: "FOLFOX adjuvant"},
		{PatientID: "P002", FullText: "surveillance"},
	}
	if err := corpus.Save("e.json", patients); err != nil {
		t.Fatalf("save: %v", err)
	}
	var buf bytes.Buffer
	if err := svc.Export(context.Background(), models.CohortAssembleRequest{CohortSource: "e.json", Criteria: []string{"folfox"}}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "patient_id" || rows[1][0] != "P001" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
