package automation

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"story-automation/internal/platform/metrics"
)

// DefaultRetention is how long working artifacts are kept.
const DefaultRetention = 7 * 24 * time.Hour

// CleanupReport summarises one retention sweep.
type CleanupReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Cleaner deletes aged files from the working directories.
type Cleaner struct {
	dirs      []string
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
	metrics   *metrics.Metrics
	remove    func(path string) error
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithCleanerClock overrides the cleaner's time source.
func WithCleanerClock(now func() time.Time) CleanerOption {
	return func(c *Cleaner) { c.now = now }
}

// NewCleaner returns a Cleaner sweeping dirs. Metrics may be nil.
func NewCleaner(dirs []string, log *slog.Logger, m *metrics.Metrics, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		dirs:      dirs,
		retention: DefaultRetention,
		now:       time.Now,
		log:       log,
		metrics:   m,
		remove:    os.Remove,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cleanup removes regular files older than the retention period from each
// directory (non-recursive). Missing directories are skipped and per-file
// failures are logged; the sweep always completes.
func (c *Cleaner) Cleanup(ctx context.Context) CleanupReport {
	var report CleanupReport
	cutoff := c.now().Add(-c.retention)

	for _, dir := range c.dirs {
		if ctx.Err() != nil {
			c.log.Warn("cleanup interrupted", slog.String("error", ctx.Err().Error()))
			break
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				c.log.Warn("read directory failed", slog.String("dir", dir), slog.String("error", err.Error()))
			}
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			report.Scanned++
			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				report.Failed++
				c.log.Warn("stat file failed", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := c.remove(path); err != nil {
				report.Failed++
				c.log.Warn("delete old file failed", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			report.Deleted++
			c.log.Debug("deleted old file", slog.String("path", path))
		}
	}

	if c.metrics != nil {
		c.metrics.AddCleanupDeleted(report.Deleted)
	}
	c.log.Info("cleanup completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("deleted", report.Deleted),
		slog.Int("failed", report.Failed))
	return report
}
