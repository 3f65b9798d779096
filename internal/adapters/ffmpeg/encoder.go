// Package ffmpeg encodes the final video by looping a stock snippet under the
// narration, using the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultDuration is the fixed length of produced videos.
const DefaultDuration = 7 * time.Minute

const maxOutputInError = 2048

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config locates the binaries and the snippet.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	SnippetPath string
	Duration    time.Duration
}

// Encoder implements automation.VideoEncoder.
type Encoder struct {
	cfg Config
	run Runner
	log *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithRunner replaces command execution; tests use it to avoid real binaries.
func WithRunner(r Runner) Option {
	return func(e *Encoder) { e.run = r }
}

// New returns an Encoder. Empty binary paths are resolved from PATH.
func New(cfg Config, log *slog.Logger, opts ...Option) (*Encoder, error) {
	if cfg.SnippetPath == "" {
		return nil, errors.New("video snippet path is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	e := &Encoder{cfg: cfg, run: execRunner, log: log}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.FFmpegPath == "" {
		e.cfg.FFmpegPath = lookPath("ffmpeg")
	}
	if e.cfg.FFprobePath == "" {
		e.cfg.FFprobePath = lookPath("ffprobe")
	}
	return e, nil
}

func lookPath(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

// Encode implements automation.VideoEncoder.
func (e *Encoder) Encode(ctx context.Context, audioPath, subtitlePath, outPath string) error {
	if _, err := os.Stat(e.cfg.SnippetPath); err != nil {
		return fmt.Errorf("video snippet: %w", err)
	}
	audio, err := e.Duration(ctx, audioPath)
	if err != nil {
		return err
	}
	speed := audio.Seconds() / e.cfg.Duration.Seconds()

	started := time.Now()
	args := BuildArgs(e.cfg.SnippetPath, audioPath, subtitlePath, outPath, speed, e.cfg.Duration)
	if out, err := e.run(ctx, e.cfg.FFmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, tail(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}

	e.log.Info("video encoded",
		slog.Float64("audio_seconds", audio.Seconds()),
		slog.Float64("speed_factor", speed),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

// Duration returns the duration of a media file.
func (e *Encoder) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := e.run(ctx, e.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, tail(out))
	}
	return ParseMediaDuration(out)
}

// ParseMediaDuration reads format.duration from ffprobe's JSON output.
func ParseMediaDuration(out []byte) (time.Duration, error) {
	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid media duration %q", info.Format.Duration)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// BuildArgs returns the ffmpeg arguments that loop the snippet, retime it by
// speed, fit it to 1920x1080, burn in subtitles (when given) and cut the
// result to exactly d with the narration as the audio track.
func BuildArgs(snippet, audio, subtitles, out string, speed float64, d time.Duration) []string {
	filter := fmt.Sprintf("[0:v]setpts=%.4f*PTS,scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2", speed)
	if subtitles != "" {
		filter += ",subtitles=" + escapeFilterPath(subtitles)
	}
	filter += "[vout]"

	return []string{
		"-y",
		"-stream_loop", "-1",
		"-i", snippet,
		"-i", audio,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", strconv.Itoa(int(d.Seconds())),
		out,
	}
}

// escapeFilterPath quotes a path for use inside a filtergraph option.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `'`, `'\\\''`, `:`, `\\:`)
	return "'" + r.Replace(p) + "'"
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxOutputInError {
		s = s[len(s)-maxOutputInError:]
	}
	return s
}
