package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/configstore"
)

type staticConfig struct {
	cfg configstore.Configuration
	err error
}

func (s staticConfig) Active() (configstore.Configuration, error) {
	return s.cfg, s.err
}

type recordingPublisher struct {
	events []string
	data   []map[string]interface{}
	err    error
}

func (r *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
	return r.err
}

func TestDefaultCommand(t *testing.T) {
	got := DefaultRunRequest().Command("", "")
	want := "python orchestrate_pipeline.py --data_config_json config_files/overall_config_settings/active_data_config.json" +
		" --run_ocr False --do_llm_summarization True --do_patient_matching True --do_evaluation False"
	if got != want {
		t.Fatalf("unexpected command\n got: %s\nwant: %s", got, want)
	}
}

func TestArgsUseCustomInterpreter(t *testing.T) {
	req := RunRequest{ConfigPath: "cfg.json", RunOCR: true, DoEvaluation: true}
	got := req.Args("/opt/venv/bin/python3", "run.py")
	want := []string{
		"/opt/venv/bin/python3", "run.py",
		"--data_config_json", "cfg.json",
		"--run_ocr", "True",
		"--do_llm_summarization", "False",
		"--do_patient_matching", "False",
		"--do_evaluation", "True",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestStageRecordsStatusAndPublishes(t *testing.T) {
	clock := time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)
	publisher := &recordingPublisher{}
	cfg := configstore.Default()
	svc := NewService(staticConfig{cfg: cfg},
		WithPublisher(publisher),
		WithClock(func() time.Time { return clock }),
	)

	status, err := svc.Status(context.Background())
	if err != nil || status.Status != StatusIdle || status.LastCommand != "" {
		t.Fatalf("expected idle status, got %+v %v", status, err)
	}

	resp, err := svc.Stage(context.Background(), DefaultRunRequest())
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if resp.ConfigUsed[configstore.KeyCohortName] != cfg.CohortName {
		t.Fatalf("config not captured: %v", resp.ConfigUsed)
	}
	if resp.ConfigUsed["matching_result_dir"] != cfg.Paths.MatchingResultDir {
		t.Fatalf("derived paths missing from config: %v", resp.ConfigUsed)
	}
	if len(resp.Args) != 12 || resp.Args[0] != DefaultInterpreter {
		t.Fatalf("unexpected args %v", resp.Args)
	}

	status, _ = svc.Status(context.Background())
	if status.Status != StatusStaged || status.LastCommand != resp.Command {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LastStaged == nil || !status.LastStaged.Equal(clock) || status.LastRun != nil {
		t.Fatalf("unexpected timestamps %+v", status)
	}
	if len(publisher.events) != 1 || publisher.events[0] != EventStaged {
		t.Fatalf("expected one staged event, got %v", publisher.events)
	}
	if publisher.data[0]["command"] != resp.Command {
		t.Fatalf("event should carry the command, got %v", publisher.data[0])
	}
}

func TestStageToleratesUnreadableConfigAndPublishFailure(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(staticConfig{err: errors.New("bad json")}, WithPublisher(publisher))
	resp, err := svc.Stage(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if resp.ConfigUsed["error"] == "" {
		t.Fatalf("expected config error marker, got %v", resp.ConfigUsed)
	}
	if resp.Args[3] != configstore.ActiveConfigPath {
		t.Fatalf("empty config path should default, got %q", resp.Args[3])
	}
}

func TestMemoryStatusStore(t *testing.T) {
	store := NewMemoryStatusStore()
	status, _ := store.Get(context.Background())
	if status.Status != StatusIdle {
		t.Fatalf("expected idle, got %q", status.Status)
	}
	status.Status = StatusStaged
	status.LastCommand = "python x.py"
	if err := store.Put(context.Background(), status); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ := store.Get(context.Background())
	if got.LastCommand != "python x.py" {
		t.Fatalf("unexpected status %+v", got)
	}
}
