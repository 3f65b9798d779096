package automation

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// DefaultHistoryLimit is the number of entries the history keeps.
const DefaultHistoryLimit = 100

const recentUploadsLimit = 5

// History is the capped, append-only log of finished sessions.
// Appends are serialised within the process; a second process writing the
// same file is last-writer-wins.
type History struct {
	mu    sync.Mutex
	store Store
	limit int
	log   *slog.Logger
}

// NewHistory returns a History over store keeping at most limit entries.
// If limit <= 0, DefaultHistoryLimit is used.
func NewHistory(store Store, limit int, log *slog.Logger) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{store: store, limit: limit, log: log}
}

// Append adds entry as the newest record and drops the oldest records beyond
// the limit. A history that cannot be read is treated as empty. Save errors
// are returned for the caller to log.
func (h *History) Append(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.loadLocked()
	entries = append(entries, entry)
	if len(entries) > h.limit {
		entries = entries[len(entries)-h.limit:]
	}

	if err := h.store.Save(entries); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Entries returns a snapshot of all entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked()
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.Entries())
}

// Stats aggregates the stored entries.
func (h *History) Stats() Stats {
	return ComputeStats(h.Entries())
}

func (h *History) loadLocked() []HistoryEntry {
	entries, err := h.store.Load()
	if err != nil {
		h.log.Error("load history failed, treating as empty", slog.String("error", err.Error()))
		return []HistoryEntry{}
	}
	return entries
}

// ComputeStats aggregates entries (oldest first). SuccessRate is a percentage
// rounded to two decimals, 0 for an empty history.
func ComputeStats(entries []HistoryEntry) Stats {
	st := Stats{RecentUploads: []HistoryEntry{}}
	successful := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Success {
			successful = append(successful, e)
		}
	}

	st.Total = len(entries)
	st.Successful = len(successful)
	st.Failed = st.Total - st.Successful
	if st.Total > 0 {
		st.SuccessRate = math.Round(float64(st.Successful)/float64(st.Total)*100*100) / 100
	}
	if n := len(successful); n > 0 {
		last := successful[n-1]
		st.LastUpload = &last
		start := n - recentUploadsLimit
		if start < 0 {
			start = 0
		}
		st.RecentUploads = append(st.RecentUploads, successful[start:]...)
	}
	return st
}
