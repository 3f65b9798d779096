package app

import (
	"fmt"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"story-automation/internal/automation"
	"story-automation/internal/platform/config"
)

// Config is the typed process configuration, read from the environment.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	ScheduleProfile string
	ScheduleSlots   string
	Timezone        string
	Production      bool
	MaxAttempts     int
	ActivityWindow  time.Duration
	Retention       time.Duration

	OutputDir     string
	LogsDir       string
	HistoryFile   string
	VideoDuration time.Duration

	GeminiAPIKey string
	GeminiModel  string

	AzureSpeechKey    string
	AzureSpeechRegion string
	AzureSpeechVoice  string

	ThumbnailBackgroundsDir string
	ThumbnailFont           string

	FFmpegPath       string
	FFprobePath      string
	VideoSnippetPath string

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
	YouTubePrivacy      string
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() Config {
	_ = config.Load()

	logsDir := config.GetEnv("LOGS_DIR", "./logs")
	return Config{
		Port:      config.GetEnv("PORT", "8080"),
		LogLevel:  config.GetEnv("LOG_LEVEL", "info"),
		LogFormat: config.GetEnv("LOG_FORMAT", "json"),

		ScheduleProfile: config.GetEnv("CRON_SCHEDULE_TYPE", automation.DefaultProfile),
		ScheduleSlots:   config.GetEnv("SCHEDULE_SLOTS", ""),
		Timezone:        config.GetEnv("TZ", ""),
		Production:      config.GetEnvBool("PRODUCTION", false),
		MaxAttempts:     config.GetEnvInt("MAX_ATTEMPTS", automation.DefaultMaxAttempts),
		ActivityWindow:  config.GetEnvDuration("ACTIVITY_WINDOW", automation.DefaultActivityWindow),
		Retention:       config.GetEnvDuration("CLEANUP_RETENTION", automation.DefaultRetention),

		OutputDir:     config.GetEnv("OUTPUT_DIR", "./output"),
		LogsDir:       logsDir,
		HistoryFile:   config.GetEnv("HISTORY_FILE", filepath.Join(logsDir, "upload-history.json")),
		VideoDuration: time.Duration(config.GetEnvInt("VIDEO_DURATION_SECONDS", 420)) * time.Second,

		GeminiAPIKey: config.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:  config.GetEnv("GEMINI_MODEL", ""),

		AzureSpeechKey:    config.GetEnv("AZURE_SPEECH_KEY", ""),
		AzureSpeechRegion: config.GetEnv("AZURE_SPEECH_REGION", ""),
		AzureSpeechVoice:  config.GetEnv("AZURE_SPEECH_VOICE", ""),

		ThumbnailBackgroundsDir: config.GetEnv("THUMBNAIL_BACKGROUNDS_DIR", ""),
		ThumbnailFont:           config.GetEnv("THUMBNAIL_FONT", ""),

		FFmpegPath:       config.GetEnv("FFMPEG_PATH", ""),
		FFprobePath:      config.GetEnv("FFPROBE_PATH", ""),
		VideoSnippetPath: config.GetEnv("VIDEO_SNIPPET_PATH", "./assets/video.mp4"),

		YouTubeClientID:     config.GetEnv("YOUTUBE_CLIENT_ID", ""),
		YouTubeClientSecret: config.GetEnv("YOUTUBE_CLIENT_SECRET", ""),
		YouTubeRefreshToken: config.GetEnv("YOUTUBE_REFRESH_TOKEN", ""),
		YouTubePrivacy:      config.GetEnv("YOUTUBE_PRIVACY", "public"),
	}
}

// Location resolves Timezone; empty means host-local time.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReportsDir is where daily reports are written.
func (c Config) ReportsDir() string {
	return filepath.Join(c.LogsDir, "reports")
}

// LogFile is the JSON log file scanned for recent errors.
func (c Config) LogFile() string {
	return filepath.Join(c.LogsDir, "automation.log")
}
