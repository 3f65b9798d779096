package app

import (
	"context"
	"os"
	"sync"
	"time"

	"story-automation/internal/automation"
)

// stubSteps implements every pipeline step with placeholder files.
type stubSteps struct{}

func (stubSteps) WriteStory(ctx context.Context) (automation.Story, error) {
	return automation.Story{Title: "البئر", Body: "كان يا مكان في قديم الزمان بئر عميقة في قرية صغيرة."}, nil
}

func (stubSteps) Narrate(ctx context.Context, text, outPath string) error {
	return os.WriteFile(outPath, []byte("mp3"), 0o644)
}

func (stubSteps) RenderThumbnail(ctx context.Context, title, outPath string) error {
	return os.WriteFile(outPath, []byte("png"), 0o644)
}

func (stubSteps) WriteSubtitles(ctx context.Context, text string, d time.Duration, outPath string) error {
	return os.WriteFile(outPath, []byte("srt"), 0o644)
}

func (stubSteps) Encode(ctx context.Context, audioPath, subtitlePath, outPath string) error {
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func (stubSteps) Upload(ctx context.Context, req automation.UploadRequest) (string, error) {
	return "vid", nil
}

// countingRunner counts retry-wrapped sessions without running any.
type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRunner) RunWithRetry(ctx context.Context, trigger string, maxAttempts int) (automation.SessionResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return automation.SessionResult{Trigger: trigger, Success: true}, nil
}

func (c *countingRunner) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
