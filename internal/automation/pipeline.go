package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Pipeline step names, in execution order.
const (
	StepWorkspace = "workspace"
	StepStory     = "story"
	StepSpeech    = "speech"
	StepThumbnail = "thumbnail"
	StepSubtitles = "subtitles"
	StepVideo     = "video"
	StepMetadata  = "metadata"
	StepUpload    = "upload"
)

// StoryWriter generates the story text and its title.
type StoryWriter interface {
	WriteStory(ctx context.Context) (Story, error)
}

// Narrator synthesizes text to an audio file at outPath.
type Narrator interface {
	Narrate(ctx context.Context, text, outPath string) error
}

// ThumbnailRenderer renders a title card image at outPath.
type ThumbnailRenderer interface {
	RenderThumbnail(ctx context.Context, title, outPath string) error
}

// SubtitleWriter computes subtitle timing for text spread over duration and
// writes it to outPath.
type SubtitleWriter interface {
	WriteSubtitles(ctx context.Context, text string, duration time.Duration, outPath string) error
}

// VideoEncoder muxes the narration (and subtitles) into a video at outPath.
type VideoEncoder interface {
	Encode(ctx context.Context, audioPath, subtitlePath, outPath string) error
}

// Uploader publishes a finished video and returns its remote id.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// Pipeline bundles the external collaborators a session calls, one per step.
type Pipeline struct {
	Story     StoryWriter
	Speech    Narrator
	Thumbnail ThumbnailRenderer
	Subtitles SubtitleWriter
	Video     VideoEncoder
	Upload    Uploader
}

func (p Pipeline) validate() error {
	var missing []string
	if p.Story == nil {
		missing = append(missing, StepStory)
	}
	if p.Speech == nil {
		missing = append(missing, StepSpeech)
	}
	if p.Thumbnail == nil {
		missing = append(missing, StepThumbnail)
	}
	if p.Subtitles == nil {
		missing = append(missing, StepSubtitles)
	}
	if p.Video == nil {
		missing = append(missing, StepVideo)
	}
	if p.Upload == nil {
		missing = append(missing, StepUpload)
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline is missing steps: %s", strings.Join(missing, ", "))
	}
	return nil
}

// StepError reports which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// diagnostic renders the error chain one cause per line, outermost first.
func diagnostic(err error) string {
	var b strings.Builder
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		if depth > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s%T: %s", strings.Repeat("  ", depth), e, e.Error())
		depth++
	}
	return b.String()
}
