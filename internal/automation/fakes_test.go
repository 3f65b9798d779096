package automation

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"story-automation/internal/platform/logger"
)

// fakeSteps implements every pipeline step, writes placeholder files, and
// records the order in which steps ran.
type fakeSteps struct {
	mu       sync.Mutex
	calls    []string
	failStep string
	story    Story
	uploads  []UploadRequest
	videoID  string
}

func (f *fakeSteps) called(step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, step)
	if step == f.failStep {
		return errors.New(step + " service unavailable")
	}
	return nil
}

func (f *fakeSteps) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeSteps) WriteStory(ctx context.Context) (Story, error) {
	if err := f.called(StepStory); err != nil {
		return Story{}, err
	}
	if f.story.Title == "" {
		return Story{Title: `"حكاية الجدة"`, Body: "كان يا مكان في قديم الزمان. قصة طويلة عن الحكمة والصبر."}, nil
	}
	return f.story, nil
}

func (f *fakeSteps) Narrate(ctx context.Context, text, outPath string) error {
	if err := f.called(StepSpeech); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("mp3"), 0o644)
}

func (f *fakeSteps) RenderThumbnail(ctx context.Context, title, outPath string) error {
	if err := f.called(StepThumbnail); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("png"), 0o644)
}

func (f *fakeSteps) WriteSubtitles(ctx context.Context, text string, d time.Duration, outPath string) error {
	if err := f.called(StepSubtitles); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nx\n"), 0o644)
}

func (f *fakeSteps) Encode(ctx context.Context, audioPath, subtitlePath, outPath string) error {
	if err := f.called(StepVideo); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func (f *fakeSteps) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if err := f.called(StepUpload); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	if f.videoID == "" {
		return "vid123", nil
	}
	return f.videoID, nil
}

func (f *fakeSteps) pipeline() Pipeline {
	return Pipeline{Story: f, Speech: f, Thumbnail: f, Subtitles: f, Video: f, Upload: f}
}

func newTestOrchestrator(t *testing.T, steps *fakeSteps, history Recorder) (*Orchestrator, Workspace) {
	t.Helper()
	ws := Workspace{Root: t.TempDir()}
	o, err := NewOrchestrator(steps.pipeline(), ws, history, logger.Discard())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o, ws
}

// scriptedSessions returns canned results from Execute, in order, and
// repeats the last one once the script runs out.
type scriptedSessions struct {
	mu      sync.Mutex
	results []SessionResult
	calls   int
}

func (s *scriptedSessions) Execute(ctx context.Context) SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i]
}

func (s *scriptedSessions) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func failed(id, msg string) SessionResult {
	err := &StepError{Step: StepUpload, Err: errors.New(msg)}
	return SessionResult{SessionID: id, Error: err.Error(), FailedStep: StepUpload, Cause: err}
}

func succeeded(id string) SessionResult {
	return SessionResult{SessionID: id, Success: true, VideoID: "vid-" + id, URL: VideoURLPrefix + "vid-" + id}
}

// recordingSleeper captures requested waits without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.waits))
	copy(out, r.waits)
	return out
}
