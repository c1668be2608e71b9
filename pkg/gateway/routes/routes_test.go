package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/chatlog"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/pipeline"
	"github.com/AUW160150/Sigmatch/pkg/prompts"
	"github.com/AUW160150/Sigmatch/pkg/results"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/AUW160150/Sigmatch/pkg/trials"
	"github.com/gorilla/mux"
)

type testServer struct {
	router *mux.Router
	config *configstore.Store
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	files := storage.NewFileStore(t.TempDir())
	config := configstore.NewStore(files)
	corpus := cohort.NewFileCorpus(files, time.Minute)

	r := mux.NewRouter()
	RegisterHealth(r)
	NewConfigHandler(config, files).Register(r)
	NewCohortHandler(corpus, cohort.NewService(corpus), config).Register(r)
	NewTrialHandler(trials.NewService(files)).Register(r)
	NewPromptHandler(prompts.NewStore(files)).Register(r)
	NewPipelineHandler(pipeline.NewService(config)).Register(r)
	NewResultsHandler(results.NewReader(files, config)).Register(r)
	NewChatHandler(chatlog.New(files)).Register(r)
	return testServer{router: r, config: config}
}

func (s testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/config", map[string]string{"cohortName": "trial42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	var saved map[string]string
	decode(t, rec, &saved)
	if saved["status"] != "saved" || !strings.Contains(saved["version_file"], "trial42") {
		t.Fatalf("unexpected save response %v", saved)
	}

	rec = s.do(t, http.MethodGet, "/api/config", nil)
	var got struct {
		Config map[string]string `json:"config"`
	}
	decode(t, rec, &got)
	if got.Config["matching_result_dir"] != "results_dir/matching/trial42" {
		t.Fatalf("paths not derived: %v", got.Config)
	}

	rec = s.do(t, http.MethodGet, "/api/config/versions/missing.json", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown version, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/config", map[string]int{"cohortName": 3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-string values, got %d", rec.Code)
	}
}

func TestCohortGenerateAssembleApply(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/cohorts/generate", map[string]interface{}{"name": "pilot", "patient_count": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/cohorts/pilot.json", nil)
	var detail struct {
		PatientCount int `json:"patient_count"`
	}
	decode(t, rec, &detail)
	if detail.PatientCount != 5 {
		t.Fatalf("expected 5 patients, got %d", detail.PatientCount)
	}

	rec = s.do(t, http.MethodPost, "/api/cohorts/assemble", map[string]interface{}{
		"criteria":        []string{"patients with colonoscopy"},
		"cohort_source":   "pilot.json",
		"max_patients":    3,
		"apply_to_config": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assemble: %d %s", rec.Code, rec.Body.String())
	}
	var assembled struct {
		MatchedCount    int                     `json:"matched_count"`
		PatientIDsList  []string                `json:"patient_ids_list"`
		AppliedToConfig *configstore.SaveResult `json:"applied_to_config"`
	}
	decode(t, rec, &assembled)
	if assembled.MatchedCount != 3 || assembled.AppliedToConfig == nil {
		t.Fatalf("unexpected assembly %+v", assembled)
	}
	cfg, err := s.config.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if cfg.Fields()[PatientIDsKey] != "P001,P002,P003" {
		t.Fatalf("patient ids not applied: %v", cfg.Fields()[PatientIDsKey])
	}
}

func TestCohortMissingSource(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/cohorts/assemble", map[string]interface{}{
		"criteria":      []string{"gemcitabine"},
		"cohort_source": "nonexistent.json",
	})
	var result struct {
		Status       string   `json:"status"`
		MatchedCount int      `json:"matched_count"`
		IDs          []string `json:"patient_ids_list"`
	}
	decode(t, rec, &result)
	if rec.Code != http.StatusOK || result.Status != cohort.StatusCorpusNotFound || result.MatchedCount != 0 || len(result.IDs) != 0 {
		t.Fatalf("expected soft empty result, got %d %+v", rec.Code, result)
	}

	if rec := s.do(t, http.MethodGet, "/api/cohorts/nonexistent.json", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTrialUpload(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(uploadField, "protocol.yaml")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("title: Protocol A\nfull_text: Adults with stage III disease\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/trials/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/trials", nil)
	var list struct {
		Trials []struct {
			Title string `json:"title"`
		} `json:"trials"`
	}
	decode(t, rec, &list)
	if len(list.Trials) != 1 || list.Trials[0].Title != "Protocol A" {
		t.Fatalf("unexpected trials %+v", list)
	}

	if rec := s.do(t, http.MethodPost, "/api/trials", map[string]string{"full_text": "x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without title, got %d", rec.Code)
	}
}

func TestPromptUpdate(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPut, "/api/prompts/unknown_agent", map[string]bool{"skip": true}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	agent := prompts.RequiredAgents()[0]
	if rec := s.do(t, http.MethodPut, "/api/prompts/"+agent, map[string]bool{"skip": true}); rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodGet, "/api/prompts/"+agent, nil)
	var got struct {
		Skip bool `json:"skip"`
	}
	decode(t, rec, &got)
	if !got.Skip {
		t.Fatal("skip not persisted")
	}
}

func TestPipelineRunAndStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/pipeline/run", map[string]bool{"run_ocr": true})
	var run struct {
		Command string `json:"command"`
	}
	decode(t, rec, &run)
	if !strings.Contains(run.Command, "--run_ocr True --do_llm_summarization True") {
		t.Fatalf("unexpected command %q", run.Command)
	}

	rec = s.do(t, http.MethodGet, "/api/pipeline/status", nil)
	var status struct {
		Status      string `json:"status"`
		LastCommand string `json:"last_command"`
	}
	decode(t, rec, &status)
	if status.Status != pipeline.StatusStaged || status.LastCommand != run.Command {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestChatMessageAddsPlaceholderReply(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPost, "/api/chat/message", map[string]string{"role": "user", "content": "Focus on stage III"}); rec.Code != http.StatusOK {
		t.Fatalf("message: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/chat/save-criteria", map[string]string{"final_criteria": "stage III only"}); rec.Code != http.StatusOK {
		t.Fatalf("save criteria: %d", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/chat/history", nil)
	var history struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		FinalCriteria *string `json:"final_criteria"`
	}
	decode(t, rec, &history)
	if len(history.Messages) != 2 || history.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected messages %+v", history.Messages)
	}
	if history.FinalCriteria == nil || *history.FinalCriteria != "stage III only" {
		t.Fatalf("unexpected final criteria %v", history.FinalCriteria)
	}
}

func TestResultsSummaryWithoutResults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/results/summary", nil)
	var summary struct {
		HasResults bool   `json:"has_results"`
		CohortName string `json:"cohort_name"`
	}
	decode(t, rec, &summary)
	if summary.HasResults || summary.CohortName != results.NoCohort {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec = s.do(t, http.MethodGet, "/api/results/download", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), results.DummyResultsFile) {
		t.Fatalf("expected dummy download, got %d %v", rec.Code, rec.Header())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}
