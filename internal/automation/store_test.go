package automation

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore_missing_file_is_empty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "logs", "upload-history.json"))

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", entries)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "upload-history.json")
	store := NewFileStore(path)
	ts := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

	in := []HistoryEntry{
		{SessionResult: SessionResult{SessionID: "session-1", Success: true, VideoID: "abc", URL: "https://youtube.com/watch?v=abc"}, Timestamp: ts},
		{SessionResult: SessionResult{SessionID: "session-2", Error: "speech: quota", FailedStep: StepSpeech}, Timestamp: ts.Add(time.Hour)},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].VideoID != "abc" || got[1].FailedStep != StepSpeech || !got[1].Timestamp.Equal(ts.Add(time.Hour)) {
		t.Errorf("unexpected entries: %+v", got)
	}

	// No temp files left next to the history.
	files, _ := os.ReadDir(filepath.Dir(path))
	if len(files) != 1 {
		t.Errorf("expected only the history file, found %d entries", len(files))
	}
}

func TestFileStore_corrupt_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload-history.json")
	if err := os.WriteFile(path, []byte("{not an array"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestMemoryStore_returns_copies(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save([]HistoryEntry{{SessionResult: SessionResult{SessionID: "a"}}})

	got, _ := store.Load()
	got[0].SessionID = "mutated"

	again, _ := store.Load()
	if again[0].SessionID != "a" {
		t.Errorf("store should not expose internal slice, got %q", again[0].SessionID)
	}
}

func TestFileStore_entries_without_success_field(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload-history.json")
	legacy := `[
  {"sessionId": "session-1", "videoId": "abc", "title": "البئر", "youtubeUrl": "https://youtube.com/watch?v=abc", "duration": 1200, "timestamp": "2026-01-01T08:00:00.000Z"},
  {"sessionId": "session-2", "error": "quota", "duration": 90, "timestamp": "2026-01-01T14:00:00.000Z", "success": false}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Success || entries[0].VideoID != "abc" || entries[0].DurationMs != 1200 {
		t.Errorf("entry without a success field should count as an upload: %+v", entries[0])
	}
	if entries[1].Success {
		t.Errorf("explicit failure should stay failed: %+v", entries[1])
	}
	if st := ComputeStats(entries); st.Successful != 1 || st.Failed != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}
