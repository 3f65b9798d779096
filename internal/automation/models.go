package automation

import (
	"encoding/json"
	"time"
)

// SessionResult is the outcome of one attempt (or, once the retry controller is
// done with it, one retried session) at the full pipeline.
type SessionResult struct {
	SessionID  string    `json:"sessionId"`
	Success    bool      `json:"success"`
	Trigger    string    `json:"trigger,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"duration"`

	// Set on success.
	VideoID       string `json:"videoId,omitempty"`
	Title         string `json:"title,omitempty"`
	OriginalTitle string `json:"originalTitle,omitempty"`
	URL           string `json:"youtubeUrl,omitempty"`

	// Set on failure.
	FailedStep string `json:"failedStep,omitempty"`
	Error      string `json:"error,omitempty"`
	Diagnostic string `json:"stack,omitempty"`

	// Cause is the error behind a failed result. Not persisted.
	Cause error `json:"-"`
}

// HistoryEntry is the persisted, immutable record of a finished session.
type HistoryEntry struct {
	SessionResult
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON reads an entry, treating a missing "success" field as a
// successful upload. Older history files only mark failures.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	type plain HistoryEntry
	var marker struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return err
	}
	if err := json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	if marker.Success == nil {
		e.Success = true
	}
	return nil
}

// Stats aggregates the upload history.
type Stats struct {
	Total         int            `json:"total"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
	SuccessRate   float64        `json:"successRate"`
	LastUpload    *HistoryEntry  `json:"lastUpload"`
	RecentUploads []HistoryEntry `json:"recentUploads"`
}

// Story is the generated text a session works from.
type Story struct {
	Title string
	Body  string
	// Raw is the full generated text as returned by the model.
	Raw string
}

// UploadRequest carries everything the uploader needs for one video.
type UploadRequest struct {
	VideoPath     string
	ThumbnailPath string
	Title         string
	Description   string
	Tags          []string
}
