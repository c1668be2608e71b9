package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/xuri/excelize/v2"
)

func newTestReader(t *testing.T) (*Reader, *storage.FileStore, configstore.Configuration) {
	t.Helper()
	files := storage.NewFileStore(t.TempDir())
	store := configstore.NewStore(files)
	name := "trial42"
	if _, err := store.Save(configstore.Update{configstore.KeyCohortName: &name}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	cfg, err := store.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	return NewReader(files, store, WithRand(rand.New(rand.NewSource(1)))), files, cfg
}

func writeResults(t *testing.T, files *storage.FileStore, cfg configstore.Configuration, rows [][]string) {
	t.Helper()
	if err := files.WriteCSV(cfg.Paths.MatchingResultDir+"/"+ResultsFile, Columns, rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

func TestSummaryWithoutResults(t *testing.T) {
	reader, _, _ := newTestReader(t)
	summary, err := reader.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.HasResults || summary.CohortName != NoCohort || summary.TotalPatients != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.ScoreDistribution) != 5 {
		t.Fatalf("expected five score buckets, got %v", summary.ScoreDistribution)
	}
}

func TestSummaryCounts(t *testing.T) {
	reader, files, cfg := newTestReader(t)
	writeResults(t, files, cfg, [][]string{
		{"P001", "MATCH", "5", "", "", ""},
		{"P002", "match", "4", "", "", ""},
		{"P003", "NO-MATCH", "2", "", "", ""},
		{"P004", "NO-MATCH", "n/a", "", "", ""},
		{"P005", "MATCHED", "9", "", "", ""},
		{"P006", "NO-MATCH", "1", "", "", ""},
	})

	summary, err := reader.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.HasResults || summary.CohortName != "trial42" {
		t.Fatalf("unexpected summary header %+v", summary)
	}
	if summary.TotalPatients != 6 || summary.MatchedCount != 2 || summary.NotMatchedCount != 4 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.MatchPercentage != 33.3 {
		t.Fatalf("expected 33.3%%, got %v", summary.MatchPercentage)
	}
	want := map[string]int{"1": 1, "2": 1, "3": 0, "4": 1, "5": 1}
	for k, v := range want {
		if summary.ScoreDistribution[k] != v {
			t.Fatalf("bucket %s = %d, want %d", k, summary.ScoreDistribution[k], v)
		}
	}
}

func TestDetailedSkipsMalformedScores(t *testing.T) {
	reader, files, cfg := newTestReader(t)
	writeResults(t, files, cfg, [][]string{
		{"P001", "MATCH", "5", "Stage III", "None", "ok"},
		{"P002", "NO-MATCH", "x", "", "", ""},
	})
	results, err := reader.Detailed()
	if err != nil {
		t.Fatalf("detailed: %v", err)
	}
	if len(results) != 1 || results[0].PatientID != "P001" || results[0].OverallScore != 5 || results[0].PrimaryReasons != "Stage III" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestDownloadFallsBackToDummy(t *testing.T) {
	reader, files, cfg := newTestReader(t)

	name, data, err := reader.Download()
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if name != DummyResultsFile {
		t.Fatalf("expected dummy file, got %q", name)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 11 || rows[1][0] != "P001" || rows[10][0] != "P010" {
		t.Fatalf("unexpected dummy rows %v", rows)
	}

	writeResults(t, files, cfg, [][]string{{"P009", "MATCH", "4", "", "", ""}})
	name, data, err = reader.Download()
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if name != ResultsFile || !bytes.Contains(data, []byte("P009")) {
		t.Fatalf("expected real results, got %q", name)
	}
}

func TestDummyResultsScoreBias(t *testing.T) {
	results := DummyResults([]string{"A", "B", "C", "D", "E", "F", "G", "H"}, rand.New(rand.NewSource(3)))
	for _, r := range results {
		if r.FinalDecision == MatchDecision && r.OverallScore < 3 {
			t.Fatalf("MATCH with low score: %+v", r)
		}
		if r.FinalDecision != MatchDecision && r.OverallScore > 3 {
			t.Fatalf("NO-MATCH with high score: %+v", r)
		}
	}
}

func TestEvaluationWorkbook(t *testing.T) {
	reader, files, cfg := newTestReader(t)

	sheet, err := reader.Evaluation("")
	if err != nil {
		t.Fatalf("evaluation: %v", err)
	}
	if sheet.HasResults {
		t.Fatal("expected no evaluation without a workbook")
	}

	full, err := files.Abs(cfg.Paths.EvaluationResultsPath)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]interface{}{"patient_id", "predicted", "actual"}); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]interface{}{"P001", "MATCH"}); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A3", &[]interface{}{"P002", "NO-MATCH", "NO-MATCH"}); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := f.SaveAs(full); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	sheet, err = reader.Evaluation("")
	if err != nil {
		t.Fatalf("evaluation: %v", err)
	}
	if !sheet.HasResults || sheet.SheetName != "Sheet1" || len(sheet.Headers) != 3 {
		t.Fatalf("unexpected sheet %+v", sheet)
	}
	if len(sheet.Rows) != 2 || len(sheet.Rows[0]) != 3 || sheet.Rows[0][2] != "" || sheet.Rows[1][2] != "NO-MATCH" {
		t.Fatalf("unexpected rows %v", sheet.Rows)
	}

	if _, err := reader.Evaluation("Missing"); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("expected sheet not found, got %v", err)
	}
}
