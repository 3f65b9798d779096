// Package console renders automation state for the CLI.
package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"story-automation/internal/automation"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Width(22)
)

const timeLayout = "2006-01-02 15:04"

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func panel(title string, lines ...string) string {
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, lines...)...))
}

// Stats renders upload statistics and the most recent uploads.
func Stats(st automation.Stats, now time.Time) string {
	lines := []string{
		row("Total sessions", fmt.Sprint(st.Total)),
		row("Successful", okStyle.Render(fmt.Sprint(st.Successful))),
		row("Failed", failedCount(st.Failed)),
		row("Success rate", fmt.Sprintf("%.2f%%", st.SuccessRate)),
	}
	if st.LastUpload != nil {
		lines = append(lines, row("Last upload", st.LastUpload.Title+" "+mutedStyle.Render(ago(now, st.LastUpload.Timestamp))))
	} else {
		lines = append(lines, row("Last upload", mutedStyle.Render("never")))
	}
	if len(st.RecentUploads) > 0 {
		lines = append(lines, "", titleStyle.Render("Recent uploads"))
		for i := len(st.RecentUploads) - 1; i >= 0; i-- {
			u := st.RecentUploads[i]
			lines = append(lines, fmt.Sprintf("%d. %s", len(st.RecentUploads)-i, u.Title), "   "+mutedStyle.Render(u.URL+" ("+ago(now, u.Timestamp)+")"))
		}
	}
	return panel("Upload statistics", lines...)
}

func failedCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return errorStyle.Render(fmt.Sprint(n))
}

// Schedule renders the trigger set of a scheduler.
func Schedule(mode string, loc *time.Location, triggers []automation.Trigger) string {
	lines := []string{
		row("Mode", mode),
		row("Timezone", loc.String()),
		"",
	}
	for _, t := range triggers {
		next := "-"
		if !t.Next.IsZero() {
			next = t.Next.Format(timeLayout)
		}
		lines = append(lines, fmt.Sprintf("%-10s %-12s %-10s next %s", t.Name, t.Spec, mutedStyle.Render(t.Kind), next))
	}
	if mode == "gated" {
		lines = append(lines, "", mutedStyle.Render("hourly firings run only after recent activity"))
	}
	return panel("Schedule", lines...)
}

// Status renders a system health report.
func Status(st automation.SystemStatus) string {
	health := okStyle.Render("healthy")
	if !st.Healthy {
		health = errorStyle.Render("needs attention")
	}
	lines := []string{
		row("Date", st.CurrentTime.Format(timeLayout)),
		row("Uploads today", fmt.Sprintf("%d/%d", st.TodayUploads, st.ExpectedPerDay)),
		row("System health", health),
		row("Success rate", fmt.Sprintf("%.2f%%", st.Stats.SuccessRate)),
	}
	if st.LastUploadTime != nil && st.HoursSinceLastUpload != nil {
		lines = append(lines,
			row("Last upload", st.LastUploadTime.Format(timeLayout)),
			row("Hours since last", fmt.Sprintf("%.1f", *st.HoursSinceLastUpload)))
	} else {
		lines = append(lines, row("Last upload", mutedStyle.Render("never")))
	}
	return panel("System status", lines...)
}

// Session renders the outcome of one retried session.
func Session(res automation.SessionResult) string {
	if res.Success {
		return panel("Session completed",
			row("Session", res.SessionID),
			row("Title", res.Title),
			row("URL", res.URL),
			row("Attempts", fmt.Sprint(res.Attempts)),
			row("Duration", (time.Duration(res.DurationMs)*time.Millisecond).String()))
	}
	return panel("Session failed",
		row("Session", res.SessionID),
		row("Failed step", res.FailedStep),
		row("Attempts", fmt.Sprint(res.Attempts)),
		errorStyle.Render(res.Error))
}

// Cleanup renders a retention sweep report.
func Cleanup(r automation.CleanupReport) string {
	return panel("Cleanup",
		row("Files scanned", fmt.Sprint(r.Scanned)),
		row("Files deleted", fmt.Sprint(r.Deleted)),
		row("Failures", failedCount(r.Failed)))
}

// Report renders a short confirmation for a written daily report.
func Report(r automation.DailyReport, path string) string {
	return panel("Daily report "+r.Date,
		row("Uploads today", fmt.Sprint(r.TodayUploads)),
		row("Success rate", fmt.Sprintf("%.2f%%", r.Stats.SuccessRate)),
		row("Errors", failedCount(r.Errors)),
		row("Saved to", path))
}

func ago(now, t time.Time) string {
	h := now.Sub(t).Hours()
	if h < 0 {
		h = 0
	}
	return strings.TrimSpace(fmt.Sprintf("%.1fh ago", h))
}
