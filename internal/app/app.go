// Package app assembles the automation components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"story-automation/internal/adapters/azuretts"
	"story-automation/internal/adapters/ffmpeg"
	"story-automation/internal/adapters/gemini"
	"story-automation/internal/adapters/subtitles"
	"story-automation/internal/adapters/thumbnail"
	"story-automation/internal/adapters/youtube"
	"story-automation/internal/automation"
	"story-automation/internal/platform/logger"
	"story-automation/internal/platform/metrics"
)

// App holds the components shared by the server and the CLI. The pipeline
// adapters are built on demand since read-only commands need no credentials.
type App struct {
	Config    Config
	Log       *slog.Logger
	Metrics   *metrics.Metrics
	Location  *time.Location
	Slots     []automation.Slot
	Workspace automation.Workspace
	History   *automation.History
	Gate      *automation.Gate
	Cleaner   *automation.Cleaner
}

// OpenLogger returns a logger writing to stdout and to the log file under
// cfg.LogsDir. The returned closer closes the file.
func OpenLogger(cfg Config, service string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.NewWithWriter(io.MultiWriter(os.Stdout, f), service, cfg.LogLevel, cfg.LogFormat), f, nil
}

// New builds the core components. Metrics may be nil.
func New(cfg Config, log *slog.Logger, m *metrics.Metrics) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	slots, err := resolveSlots(cfg, log)
	if err != nil {
		return nil, err
	}

	ws := automation.Workspace{Root: cfg.OutputDir}
	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   m,
		Location:  loc,
		Slots:     slots,
		Workspace: ws,
		History:   automation.NewHistory(automation.NewFileStore(cfg.HistoryFile), automation.DefaultHistoryLimit, log.With(slog.String("component", "history"))),
		Gate:      automation.NewGate(cfg.Production, automation.WithActivityWindow(cfg.ActivityWindow)),
		Cleaner:   automation.NewCleaner(ws.Dirs(), log.With(slog.String("component", "cleaner")), m, automation.WithRetention(cfg.Retention)),
	}, nil
}

// resolveSlots returns the explicit SCHEDULE_SLOTS times when set, otherwise
// the named profile. An unknown profile falls back to the default.
func resolveSlots(cfg Config, log *slog.Logger) ([]automation.Slot, error) {
	if cfg.ScheduleSlots != "" {
		slots, err := automation.ParseSlots(cfg.ScheduleSlots)
		if err != nil {
			return nil, fmt.Errorf("schedule slots: %w", err)
		}
		return slots, nil
	}
	slots, err := automation.ProfileSlots(cfg.ScheduleProfile)
	if err != nil {
		log.Warn("unknown schedule profile, using default",
			slog.String("profile", cfg.ScheduleProfile),
			slog.String("default", automation.DefaultProfile))
		slots, _ = automation.ProfileSlots(automation.DefaultProfile)
	}
	return slots, nil
}

// Mode returns the schedule mode for a process serving HTTP, where inbound
// requests feed the activity gate.
func (a *App) Mode() automation.Mode {
	if a.Config.Production {
		return automation.GatedSchedule{}
	}
	return a.StandaloneMode()
}

// StandaloneMode returns the mode for a process without an HTTP surface.
// Nothing records activity there, so slots always fire directly.
func (a *App) StandaloneMode() automation.Mode {
	return automation.DirectSchedule{Slots: a.Slots}
}

// Pipeline builds the external step adapters.
func (a *App) Pipeline(ctx context.Context) (automation.Pipeline, error) {
	cfg := a.Config
	log := a.Log.With(slog.String("component", "pipeline"))

	story, err := gemini.NewWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, a.Workspace.Dir(automation.KindStories), log)
	if err != nil {
		return automation.Pipeline{}, fmt.Errorf("story step: %w", err)
	}
	speech, err := azuretts.New(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, cfg.AzureSpeechVoice, log)
	if err != nil {
		return automation.Pipeline{}, fmt.Errorf("speech step: %w", err)
	}
	thumbs, err := thumbnail.New(cfg.ThumbnailBackgroundsDir, cfg.ThumbnailFont, log)
	if err != nil {
		return automation.Pipeline{}, fmt.Errorf("thumbnail step: %w", err)
	}
	video, err := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		SnippetPath: cfg.VideoSnippetPath,
		Duration:    cfg.VideoDuration,
	}, log)
	if err != nil {
		return automation.Pipeline{}, fmt.Errorf("video step: %w", err)
	}
	upload, err := youtube.New(ctx, youtube.Credentials{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		RefreshToken: cfg.YouTubeRefreshToken,
	}, cfg.YouTubePrivacy, log)
	if err != nil {
		return automation.Pipeline{}, fmt.Errorf("upload step: %w", err)
	}

	return automation.Pipeline{
		Story:     story,
		Speech:    speech,
		Thumbnail: thumbs,
		Subtitles: subtitles.New(),
		Video:     video,
		Upload:    upload,
	}, nil
}

// Runner wires p into an orchestrator wrapped by a retry controller.
func (a *App) Runner(p automation.Pipeline, opts ...automation.RetryOption) (*automation.RetryController, error) {
	orch, err := automation.NewOrchestrator(p, a.Workspace, a.History,
		a.Log.With(slog.String("component", "session")),
		automation.WithVideoDuration(a.Config.VideoDuration))
	if err != nil {
		return nil, err
	}
	return automation.NewRetryController(orch, a.History, a.Log.With(slog.String("component", "retry")), a.Metrics, opts...), nil
}

// Scheduler builds the trigger scheduler for mode around runner. runner may be
// nil when the scheduler is only described, never started.
func (a *App) Scheduler(runner automation.SessionRunner, mode automation.Mode) (*automation.Scheduler, error) {
	if runner == nil {
		runner = unavailableRunner{}
	}
	return automation.NewScheduler(automation.SchedulerConfig{
		Mode:        mode,
		Location:    a.Location,
		MaxAttempts: a.Config.MaxAttempts,
	}, runner, a.Cleaner, a.Gate, a.Log.With(slog.String("component", "scheduler")), a.Metrics)
}

// Status builds the system health report at now.
func (a *App) Status(now time.Time) automation.SystemStatus {
	return automation.BuildSystemStatus(a.History.Entries(), len(a.Slots), now)
}

// WriteReport writes the daily report and returns it with its path.
func (a *App) WriteReport(now time.Time) (automation.DailyReport, string, error) {
	report := automation.NewDailyReport(a.Status(now), automation.RecentLogErrors(a.Config.LogFile()))
	path, err := automation.WriteDailyReport(a.Config.ReportsDir(), report)
	return report, path, err
}

// errNoPipeline is returned by a scheduler built without a pipeline.
var errNoPipeline = errors.New("pipeline not configured")

type unavailableRunner struct{}

func (unavailableRunner) RunWithRetry(ctx context.Context, trigger string, maxAttempts int) (automation.SessionResult, error) {
	return automation.SessionResult{Trigger: trigger, Error: errNoPipeline.Error(), Cause: errNoPipeline}, errNoPipeline
}
