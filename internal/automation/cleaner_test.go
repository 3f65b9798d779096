package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"story-automation/internal/platform/logger"
)

func writeAged(t *testing.T, path string, age time.Duration, now time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := now.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestCleaner_Cleanup(t *testing.T) {
	now := time.Now()
	ws := Workspace{Root: t.TempDir()}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(ws.Dir(KindAudio), "session-1.mp3")
	recent := filepath.Join(ws.Dir(KindAudio), "session-2.mp3")
	oldStory := filepath.Join(ws.Dir(KindStories), "session-1.txt")
	writeAged(t, old, 8*24*time.Hour, now)
	writeAged(t, recent, 6*24*time.Hour, now)
	writeAged(t, oldStory, 30*24*time.Hour, now)
	if err := os.Mkdir(filepath.Join(ws.Dir(KindVideo), "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := NewCleaner(ws.Dirs(), logger.Discard(), nil, WithCleanerClock(func() time.Time { return now }))
	report := c.Cleanup(context.Background())

	if fileExists(old) || fileExists(oldStory) {
		t.Error("files older than seven days should be deleted")
	}
	if !fileExists(recent) {
		t.Error("six day old file should be kept")
	}
	if !fileExists(filepath.Join(ws.Dir(KindVideo), "nested")) {
		t.Error("directories should be left alone")
	}
	if report != (CleanupReport{Scanned: 3, Deleted: 2}) {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestCleaner_missing_directories(t *testing.T) {
	root := t.TempDir()
	c := NewCleaner([]string{filepath.Join(root, "absent"), filepath.Join(root, "gone")}, logger.Discard(), nil)

	report := c.Cleanup(context.Background())
	if report != (CleanupReport{}) {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestCleaner_custom_retention(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.srt")
	writeAged(t, path, 2*time.Hour, now)

	c := NewCleaner([]string{dir}, logger.Discard(), nil, WithRetention(time.Hour))
	if r := c.Cleanup(context.Background()); r.Deleted != 1 {
		t.Errorf("expected one deletion, got %+v", r)
	}
}

func TestCleaner_delete_failure_does_not_abort_sweep(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()
	stuck := filepath.Join(dir, "a-stuck.mp4")
	loose := filepath.Join(dir, "b-loose.mp4")
	writeAged(t, stuck, 10*24*time.Hour, now)
	writeAged(t, loose, 10*24*time.Hour, now)

	c := NewCleaner([]string{dir}, logger.Discard(), nil, WithCleanerClock(func() time.Time { return now }))
	c.remove = func(path string) error {
		if path == stuck {
			return &os.PathError{Op: "remove", Path: path, Err: errors.New("operation not permitted")}
		}
		return os.Remove(path)
	}

	report := c.Cleanup(context.Background())
	if report != (CleanupReport{Scanned: 2, Deleted: 1, Failed: 1}) {
		t.Errorf("unexpected report %+v", report)
	}
	if fileExists(loose) {
		t.Error("files after a failed deletion should still be swept")
	}
	if !fileExists(stuck) {
		t.Error("the file that could not be removed should remain")
	}
}
