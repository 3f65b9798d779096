package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultVideoDuration is the target length of a produced video.
const DefaultVideoDuration = 7 * time.Minute

// VideoURLPrefix turns a remote video id into its public URL.
const VideoURLPrefix = "https://youtube.com/watch?v="

// Recorder persists finished sessions.
type Recorder interface {
	Append(entry HistoryEntry) error
}

// Orchestrator runs one pipeline execution end to end. It holds no state
// between sessions apart from the id sequence.
type Orchestrator struct {
	pipeline      Pipeline
	workspace     Workspace
	history       Recorder
	log           *slog.Logger
	now           func() time.Time
	ids           *sessionIDs
	videoDuration time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the orchestrator's time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithVideoDuration sets the subtitle/video target length.
func WithVideoDuration(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.videoDuration = d
		}
	}
}

// NewOrchestrator returns an Orchestrator that calls the steps of p, writes
// artifacts under ws and records finished sessions in history.
func NewOrchestrator(p Pipeline, ws Workspace, history Recorder, log *slog.Logger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		pipeline:      p,
		workspace:     ws,
		history:       history,
		log:           log,
		now:           time.Now,
		ids:           &sessionIDs{},
		videoDuration: DefaultVideoDuration,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunSession executes the pipeline once and writes exactly one history entry
// for it, whatever the outcome.
func (o *Orchestrator) RunSession(ctx context.Context) SessionResult {
	res := o.Execute(ctx)
	o.Record(res)
	return res
}

// Execute runs the pipeline steps in order and stops at the first failure.
// It does not touch the history; see RunSession and RetryController.
func (o *Orchestrator) Execute(ctx context.Context) SessionResult {
	start := o.now()
	id := o.ids.next(start)
	paths := o.workspace.SessionPaths(id)
	log := o.log.With(slog.String("session_id", id))

	res := SessionResult{SessionID: id, StartedAt: start, Attempts: 1}
	log.Info("session started")

	story, videoID, title, err := o.runSteps(ctx, log, paths)
	res.FinishedAt = o.now()
	res.DurationMs = res.FinishedAt.Sub(start).Milliseconds()

	if err != nil {
		res.Cause = err
		res.Error = err.Error()
		res.Diagnostic = diagnostic(err)
		var se *StepError
		if errors.As(err, &se) {
			res.FailedStep = se.Step
		}
		log.Error("session failed",
			slog.String("step", res.FailedStep),
			slog.String("error", res.Error),
			slog.Int64("duration_ms", res.DurationMs))
		return res
	}

	res.Success = true
	res.VideoID = videoID
	res.Title = title
	res.OriginalTitle = story.Title
	res.URL = VideoURLPrefix + videoID

	o.removeTemporary(log, paths)

	log.Info("session completed",
		slog.String("video_id", videoID),
		slog.String("title", title),
		slog.String("url", res.URL),
		slog.Int64("duration_ms", res.DurationMs))
	return res
}

// Record writes res to the history. Failures are logged, not returned.
func (o *Orchestrator) Record(res SessionResult) {
	if o.history == nil {
		return
	}
	err := o.history.Append(HistoryEntry{SessionResult: res, Timestamp: o.now().UTC()})
	if err != nil {
		o.log.Error("record session failed",
			slog.String("session_id", res.SessionID),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) runSteps(ctx context.Context, log *slog.Logger, paths SessionPaths) (story Story, videoID, title string, err error) {
	step := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: name, Err: err}
		}
		started := time.Now()
		log.Debug("step started", slog.String("step", name))
		if err := fn(); err != nil {
			return &StepError{Step: name, Err: err}
		}
		log.Info("step completed",
			slog.String("step", name),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()))
		return nil
	}

	if err = step(StepWorkspace, o.workspace.Ensure); err != nil {
		return
	}
	if err = step(StepStory, func() error {
		s, err := o.pipeline.Story.WriteStory(ctx)
		if err != nil {
			return err
		}
		story = s
		raw := s.Raw
		if raw == "" {
			raw = s.Title + "\n\n" + s.Body
		}
		if err := os.WriteFile(paths.Story, []byte(raw), 0o644); err != nil {
			return fmt.Errorf("save story: %w", err)
		}
		return nil
	}); err != nil {
		return
	}
	if err = step(StepSpeech, func() error {
		return o.pipeline.Speech.Narrate(ctx, story.Body, paths.Audio)
	}); err != nil {
		return
	}
	if err = step(StepThumbnail, func() error {
		return o.pipeline.Thumbnail.RenderThumbnail(ctx, story.Title, paths.Thumbnail)
	}); err != nil {
		return
	}
	if err = step(StepSubtitles, func() error {
		return o.pipeline.Subtitles.WriteSubtitles(ctx, story.Body, o.videoDuration, paths.Subtitles)
	}); err != nil {
		return
	}
	if err = step(StepVideo, func() error {
		return o.pipeline.Video.Encode(ctx, paths.Audio, paths.Subtitles, paths.Video)
	}); err != nil {
		return
	}

	var req UploadRequest
	if err = step(StepMetadata, func() error {
		title = SanitizeTitle(story.Title)
		req = UploadRequest{
			VideoPath:     paths.Video,
			ThumbnailPath: paths.Thumbnail,
			Title:         title,
			Description:   BuildDescription(title, story.Body),
			Tags:          UploadTags,
		}
		return nil
	}); err != nil {
		return
	}
	err = step(StepUpload, func() error {
		id, err := o.pipeline.Upload.Upload(ctx, req)
		if err != nil {
			return err
		}
		if id == "" {
			return errors.New("upload returned an empty video id")
		}
		videoID = id
		return nil
	})
	return
}

// removeTemporary deletes the session's intermediate files. Errors are logged
// and never change the session outcome.
func (o *Orchestrator) removeTemporary(log *slog.Logger, paths SessionPaths) {
	for _, p := range paths.Temporary() {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			log.Warn("delete temporary file failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		log.Debug("deleted temporary file", slog.String("path", p))
	}
}

// sessionIDs hands out "session-<unix millis>" ids that are strictly
// increasing within the process, even for sessions started in the same
// millisecond.
type sessionIDs struct {
	mu   sync.Mutex
	last int64
}

func (g *sessionIDs) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := t.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("session-%d", ms)
}
