package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Service: "sigmatch-service", Output: &buf})

	WithField("cohort_name", "trial42").Debug("config saved")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "sigmatch-service" || entry["cohort_name"] != "trial42" || entry["msg"] != "config saved" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "loud", Format: "text", Output: &buf})

	Log.Debug("hidden")
	Log.Info("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text format, got %q", out)
	}
}
