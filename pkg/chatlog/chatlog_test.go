package chatlog

import (
	"testing"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/storage"
)

func newTestLog(t *testing.T) (*Log, *storage.FileStore) {
	t.Helper()
	files := storage.NewFileStore(t.TempDir())
	clock := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	return New(files, WithClock(func() time.Time { return clock })), files
}

func TestEmptyHistory(t *testing.T) {
	log, files := newTestLog(t)
	history, err := log.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Messages) != 0 || history.FinalCriteria != nil {
		t.Fatalf("expected empty history, got %+v", history)
	}
	if files.Exists(LogPath) {
		t.Fatal("reading should not create the log")
	}
}

func TestAppendPersistsInOrder(t *testing.T) {
	log, _ := newTestLog(t)

	first, err := log.Append("user", "patients with stage III colon cancer")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.ID == "" || first.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	if _, err := log.Append("reviewer-bot", "noted"); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := log.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history.Messages))
	}
	if history.Messages[1].Role != "reviewer-bot" {
		t.Fatalf("role should be stored verbatim, got %q", history.Messages[1].Role)
	}
	if history.Messages[0].Content != "patients with stage III colon cancer" {
		t.Fatalf("unexpected first message %q", history.Messages[0].Content)
	}
	if history.CreatedAt == nil || history.UpdatedAt == nil {
		t.Fatal("expected created and updated timestamps")
	}
}

func TestSetFinalCriteriaKeepsMessages(t *testing.T) {
	log, _ := newTestLog(t)
	if _, err := log.Append("user", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.SetFinalCriteria("ECOG 0-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := log.SetFinalCriteria("ECOG 0-2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	history, _ := log.History()
	if history.FinalCriteria == nil || *history.FinalCriteria != "ECOG 0-2" {
		t.Fatalf("unexpected criteria %v", history.FinalCriteria)
	}
	if len(history.Messages) != 1 {
		t.Fatalf("messages changed: %d", len(history.Messages))
	}
}

func TestMalformedLogIsError(t *testing.T) {
	log, files := newTestLog(t)
	if err := files.WriteFile(LogPath, []byte("[1,2")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := log.History(); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := log.Append("user", "x"); err == nil {
		t.Fatal("expected append to surface decode error")
	}
}
