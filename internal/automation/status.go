package automation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UnhealthyAfter is how long without a successful upload before the system
// is reported as needing attention.
const UnhealthyAfter = 6 * time.Hour

const (
	errorTailLines   = 10
	reportErrorLimit = 5
)

// SystemStatus is a point-in-time health summary built from the history.
type SystemStatus struct {
	Stats                Stats      `json:"stats"`
	TodayUploads         int        `json:"todayUploads"`
	ExpectedPerDay       int        `json:"expectedPerDay"`
	LastUploadTime       *time.Time `json:"lastUploadTime"`
	HoursSinceLastUpload *float64   `json:"hoursSinceLastUpload"`
	Healthy              bool       `json:"isHealthy"`
	CurrentTime          time.Time  `json:"currentTime"`
}

// BuildSystemStatus summarises entries at now. The system is healthy when the
// last successful upload is less than UnhealthyAfter old, or when nothing has
// been uploaded yet.
func BuildSystemStatus(entries []HistoryEntry, expectedPerDay int, now time.Time) SystemStatus {
	st := SystemStatus{
		Stats:          ComputeStats(entries),
		ExpectedPerDay: expectedPerDay,
		Healthy:        true,
		CurrentTime:    now,
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, e := range entries {
		if e.Success && !e.Timestamp.Before(midnight) {
			st.TodayUploads++
		}
	}

	if last := st.Stats.LastUpload; last != nil {
		ts := last.Timestamp
		hours := now.Sub(ts).Hours()
		st.LastUploadTime = &ts
		st.HoursSinceLastUpload = &hours
		st.Healthy = now.Sub(ts) < UnhealthyAfter
	}
	return st
}

// LogError is one error record found in a JSON log file.
type LogError struct {
	File      string `json:"file"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// RecentLogErrors scans the last lines of each JSON log file for error
// records. Missing files and non-JSON lines are skipped.
func RecentLogErrors(files ...string) []LogError {
	var out []LogError
	for _, file := range files {
		lines, err := tailLines(file, errorTailLines)
		if err != nil {
			continue
		}
		for _, line := range lines {
			var rec struct {
				Level   string `json:"level"`
				Msg     string `json:"msg"`
				Message string `json:"message"`
				Time    string `json:"time"`
			}
			if json.Unmarshal([]byte(line), &rec) != nil || !strings.EqualFold(rec.Level, "error") {
				continue
			}
			msg := rec.Msg
			if msg == "" {
				msg = rec.Message
			}
			out = append(out, LogError{File: filepath.Base(file), Message: msg, Timestamp: rec.Time})
		}
	}
	return out
}

func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, sc.Err()
}

// DailyReport is the JSON document written by WriteDailyReport.
type DailyReport struct {
	Date         string     `json:"date"`
	Timestamp    time.Time  `json:"timestamp"`
	Stats        Stats      `json:"stats"`
	TodayUploads int        `json:"todayUploads"`
	Healthy      bool       `json:"isHealthy"`
	Errors       int        `json:"errors"`
	RecentErrors []LogError `json:"recentErrors"`
}

// NewDailyReport builds the report for status and the log errors found.
func NewDailyReport(status SystemStatus, errs []LogError) DailyReport {
	recent := errs
	if len(recent) > reportErrorLimit {
		recent = recent[:reportErrorLimit]
	}
	if recent == nil {
		recent = []LogError{}
	}
	return DailyReport{
		Date:         status.CurrentTime.Format("2006-01-02"),
		Timestamp:    status.CurrentTime,
		Stats:        status.Stats,
		TodayUploads: status.TodayUploads,
		Healthy:      status.Healthy,
		Errors:       len(errs),
		RecentErrors: recent,
	}
}

// WriteDailyReport writes report to dir/daily-report-<date>.json, replacing
// an earlier report for the same day, and returns the file path.
func WriteDailyReport(dir string, report DailyReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, "daily-report-"+report.Date+".json")
	if err := writeJSONAtomic(path, report); err != nil {
		return "", fmt.Errorf("write daily report: %w", err)
	}
	return path, nil
}
