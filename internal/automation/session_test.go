package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"story-automation/internal/platform/logger"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestOrchestrator_RunSession_success(t *testing.T) {
	steps := &fakeSteps{}
	history := NewHistory(NewMemoryStore(), 0, logger.Discard())
	o, ws := newTestOrchestrator(t, steps, history)

	res := o.RunSession(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}

	wantOrder := []string{StepStory, StepSpeech, StepThumbnail, StepSubtitles, StepVideo, StepUpload}
	if got := steps.Calls(); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("step order: got %v, want %v", got, wantOrder)
	}

	if res.VideoID != "vid123" || res.URL != "https://youtube.com/watch?v=vid123" {
		t.Errorf("unexpected video fields: %+v", res)
	}
	if res.Title != "حكاية الجدة" || res.OriginalTitle != `"حكاية الجدة"` {
		t.Errorf("expected sanitized title, got %q (original %q)", res.Title, res.OriginalTitle)
	}
	if !strings.HasPrefix(res.SessionID, "session-") {
		t.Errorf("unexpected session id %q", res.SessionID)
	}

	if len(steps.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(steps.uploads))
	}
	up := steps.uploads[0]
	if up.Title != res.Title || !strings.Contains(up.Description, res.Title) || len(up.Tags) == 0 {
		t.Errorf("unexpected upload request: %+v", up)
	}

	paths := ws.SessionPaths(res.SessionID)
	for _, p := range paths.Temporary() {
		if fileExists(p) {
			t.Errorf("temporary file should be removed after success: %s", p)
		}
	}
	if !fileExists(paths.Story) {
		t.Errorf("story text should be kept: %s", paths.Story)
	}

	entries := history.Entries()
	if len(entries) != 1 || entries[0].SessionID != res.SessionID || !entries[0].Success {
		t.Errorf("expected one successful history entry, got %+v", entries)
	}
}

func TestOrchestrator_RunSession_failure_aborts_remaining_steps(t *testing.T) {
	steps := &fakeSteps{failStep: StepThumbnail}
	history := NewHistory(NewMemoryStore(), 0, logger.Discard())
	o, ws := newTestOrchestrator(t, steps, history)

	res := o.RunSession(context.Background())
	if res.Success {
		t.Fatal("expected failure")
	}
	if got := steps.Calls(); !reflect.DeepEqual(got, []string{StepStory, StepSpeech, StepThumbnail}) {
		t.Errorf("steps after the failure should not run, got %v", got)
	}
	if res.FailedStep != StepThumbnail || !strings.Contains(res.Error, "thumbnail service unavailable") {
		t.Errorf("unexpected failure fields: step=%q error=%q", res.FailedStep, res.Error)
	}
	if !strings.Contains(res.Diagnostic, "*automation.StepError") {
		t.Errorf("diagnostic should describe the error chain: %q", res.Diagnostic)
	}
	var se *StepError
	if !errors.As(res.Cause, &se) || se.Step != StepThumbnail {
		t.Errorf("cause should be a StepError, got %v", res.Cause)
	}

	// Artifacts of a failed session stay for inspection; the retention cleaner ages them out.
	if !fileExists(ws.SessionPaths(res.SessionID).Audio) {
		t.Error("audio of a failed session should be left in place")
	}

	entries := history.Entries()
	if len(entries) != 1 || entries[0].Success || entries[0].Error == "" {
		t.Errorf("expected one failed history entry, got %+v", entries)
	}
}

// blockedVideo writes the video artifact as a non-empty directory, which
// os.Remove refuses to delete.
type blockedVideo struct{ *fakeSteps }

func (b *blockedVideo) Encode(ctx context.Context, audioPath, subtitlePath, outPath string) error {
	if err := b.called(StepVideo); err != nil {
		return err
	}
	if err := os.MkdirAll(outPath, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outPath, "part"), []byte("mp4"), 0o644)
}

func TestOrchestrator_temp_delete_failure_keeps_success(t *testing.T) {
	steps := &blockedVideo{fakeSteps: &fakeSteps{}}
	p := steps.fakeSteps.pipeline()
	p.Video = steps
	ws := Workspace{Root: t.TempDir()}
	history := NewHistory(NewMemoryStore(), 0, logger.Discard())
	o, err := NewOrchestrator(p, ws, history, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}

	res := o.RunSession(context.Background())
	if !res.Success {
		t.Fatalf("a failed temp file deletion must not fail the session: %s", res.Error)
	}
	paths := ws.SessionPaths(res.SessionID)
	if !fileExists(paths.Video) {
		t.Fatal("the undeletable video artifact should still be there")
	}
	for _, tmp := range []string{paths.Audio, paths.Thumbnail, paths.Subtitles} {
		if fileExists(tmp) {
			t.Errorf("other temporary files should still be removed: %s", tmp)
		}
	}
	if entries := history.Entries(); len(entries) != 1 || !entries[0].Success {
		t.Errorf("expected one successful entry, got %+v", entries)
	}
}

func TestOrchestrator_Execute_does_not_record(t *testing.T) {
	history := NewHistory(NewMemoryStore(), 0, logger.Discard())
	o, _ := newTestOrchestrator(t, &fakeSteps{}, history)

	if res := o.Execute(context.Background()); !res.Success {
		t.Fatalf("expected success: %s", res.Error)
	}
	if n := history.Len(); n != 0 {
		t.Errorf("Execute should not write history, got %d entries", n)
	}
}

func TestOrchestrator_cancelled_context(t *testing.T) {
	steps := &fakeSteps{}
	o, _ := newTestOrchestrator(t, steps, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := o.Execute(ctx)
	if res.Success || !errors.Is(res.Cause, context.Canceled) {
		t.Errorf("expected cancellation failure, got %+v", res)
	}
	if len(steps.Calls()) != 0 {
		t.Errorf("no step should run on a cancelled context, got %v", steps.Calls())
	}
}

func TestOrchestrator_empty_video_id_is_failure(t *testing.T) {
	steps := &emptyIDUploader{fakeSteps: &fakeSteps{}}
	p := steps.fakeSteps.pipeline()
	p.Upload = steps
	o, err := NewOrchestrator(p, Workspace{Root: t.TempDir()}, nil, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}

	res := o.Execute(context.Background())
	if res.Success || res.FailedStep != StepUpload {
		t.Errorf("expected upload failure, got %+v", res)
	}
}

type emptyIDUploader struct{ *fakeSteps }

func (e *emptyIDUploader) Upload(ctx context.Context, req UploadRequest) (string, error) {
	return "", nil
}

func TestNewOrchestrator_missing_steps(t *testing.T) {
	_, err := NewOrchestrator(Pipeline{Story: &fakeSteps{}}, Workspace{Root: t.TempDir()}, nil, logger.Discard())
	if err == nil || !strings.Contains(err.Error(), StepUpload) {
		t.Errorf("expected missing steps error, got %v", err)
	}
}

func TestSessionIDs_monotonic(t *testing.T) {
	var ids sessionIDs
	now := time.UnixMilli(1700000000000)

	first := ids.next(now)
	second := ids.next(now)
	third := ids.next(now.Add(-time.Second))

	if first != "session-1700000000000" || second != "session-1700000000001" || third != "session-1700000000002" {
		t.Errorf("ids not strictly increasing: %s %s %s", first, second, third)
	}
}
