package automation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func entryAt(ts time.Time, ok bool) HistoryEntry {
	return HistoryEntry{SessionResult: SessionResult{SessionID: "s" + ts.Format("150405"), Success: ok}, Timestamp: ts}
}

func TestBuildSystemStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	t.Run("empty history is healthy", func(t *testing.T) {
		st := BuildSystemStatus(nil, 6, now)
		if !st.Healthy || st.LastUploadTime != nil || st.HoursSinceLastUpload != nil || st.TodayUploads != 0 {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("recent upload", func(t *testing.T) {
		entries := []HistoryEntry{
			entryAt(now.Add(-20*time.Hour), true), // yesterday
			entryAt(now.Add(-5*time.Hour), true),
			entryAt(now.Add(-time.Hour), false),
			entryAt(now.Add(-2*time.Hour), true),
		}
		st := BuildSystemStatus(entries, 6, now)
		if st.TodayUploads != 2 {
			t.Errorf("expected 2 uploads today, got %d", st.TodayUploads)
		}
		if !st.Healthy || *st.HoursSinceLastUpload != 2 {
			t.Errorf("unexpected health: %+v hours=%v", st, *st.HoursSinceLastUpload)
		}
	})

	t.Run("stale upload", func(t *testing.T) {
		st := BuildSystemStatus([]HistoryEntry{entryAt(now.Add(-7*time.Hour), true)}, 6, now)
		if st.Healthy {
			t.Error("seven hours without an upload should be unhealthy")
		}
	})
}

func TestRecentLogErrors(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "automation.log")
	lines := []string{
		`{"time":"2026-03-02T10:00:00Z","level":"INFO","msg":"session started"}`,
		`not json`,
		`{"time":"2026-03-02T10:01:00Z","level":"ERROR","msg":"session failed"}`,
	}
	if err := os.WriteFile(log, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := RecentLogErrors(log, filepath.Join(dir, "missing.log"))
	if len(errs) != 1 || errs[0].Message != "session failed" || errs[0].File != "automation.log" {
		t.Errorf("unexpected errors %+v", errs)
	}
}

func TestWriteDailyReport(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	st := BuildSystemStatus([]HistoryEntry{entryAt(now.Add(-time.Hour), true)}, 6, now)
	errs := make([]LogError, 7)
	report := NewDailyReport(st, errs)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteDailyReport(dir, report)
	if err != nil {
		t.Fatalf("WriteDailyReport: %v", err)
	}
	if filepath.Base(path) != "daily-report-2026-03-02.json" {
		t.Errorf("unexpected report path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got DailyReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.TodayUploads != 1 || !got.Healthy || got.Errors != 7 || len(got.RecentErrors) != 5 {
		t.Errorf("unexpected report %+v", got)
	}
}
