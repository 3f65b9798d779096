package automation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"story-automation/internal/platform/metrics"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "story-automation"

// StatsSource provides history aggregates.
type StatsSource interface {
	Stats() Stats
}

// ScheduleDescriber renders the active trigger set.
type ScheduleDescriber interface {
	Describe() string
}

// HandlerConfig holds the static values reported by the HTTP endpoints.
type HandlerConfig struct {
	Production  bool
	MaxAttempts int
	StartedAt   time.Time
}

// Handler exposes the automation HTTP endpoints using go-chi.
type Handler struct {
	history  StatsSource
	runner   SessionRunner
	schedule ScheduleDescriber
	gate     *Gate
	cfg      HandlerConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHandler returns a Handler. Metrics may be nil to disable metric recording
// (e.g. in tests).
func NewHandler(history StatsSource, runner SessionRunner, schedule ScheduleDescriber, gate *Gate, cfg HandlerConfig, log *slog.Logger, m *metrics.Metrics) *Handler {
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	return &Handler{
		history:  history,
		runner:   runner,
		schedule: schedule,
		gate:     gate,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Routes registers the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
	r.Get("/schedule", h.Schedule)
	r.Post("/trigger", h.Trigger)
}

// ActivityMiddleware records every inbound request as activity on the gate.
func (h *Handler) ActivityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.gate != nil {
			h.gate.RecordActivity()
		}
		next.ServeHTTP(w, r)
	})
}

type healthStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

type healthResponse struct {
	Status            string      `json:"status"`
	Timestamp         time.Time   `json:"timestamp"`
	Uptime            float64     `json:"uptime"`
	LastActivity      *time.Time  `json:"lastActivity,omitempty"`
	IsProduction      bool        `json:"isProduction"`
	ShouldRunCronJobs bool        `json:"shouldRunCronJobs"`
	Stats             healthStats `json:"stats"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.history.Stats()
	resp := healthResponse{
		Status:            "healthy",
		Timestamp:         h.now().UTC(),
		Uptime:            h.uptime(),
		IsProduction:      h.cfg.Production,
		ShouldRunCronJobs: true,
		Stats: healthStats{
			Total:       st.Total,
			Successful:  st.Successful,
			Failed:      st.Failed,
			SuccessRate: st.SuccessRate,
		},
	}
	if h.gate != nil {
		last := h.gate.LastActivity().UTC()
		resp.LastActivity = &last
		resp.ShouldRunCronJobs = h.gate.ShouldRun()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.history.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":         st,
		"lastUpload":    st.LastUpload,
		"recentUploads": st.RecentUploads,
	})
}

// Schedule handles GET /schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	text := ""
	if h.schedule != nil {
		text = h.schedule.Describe()
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"schedule":  text,
		"timestamp": h.now().UTC(),
	})
}

type triggerResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Data    *SessionResult `json:"data,omitempty"`
}

// Trigger handles POST /trigger: one retry-wrapped session, run synchronously.
// A client disconnect does not cancel the session.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.log.Info("manual trigger requested", slog.String("remote_addr", r.RemoteAddr))
	ctx := context.WithoutCancel(r.Context())

	res, err := h.runner.RunWithRetry(ctx, "manual", h.cfg.MaxAttempts)
	if err != nil {
		h.log.Error("manual trigger failed",
			slog.String("session_id", res.SessionID),
			slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusInternalServerError, triggerResponse{
			Success: false,
			Message: "Automation failed",
			Error:   err.Error(),
			Data:    &res,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, triggerResponse{
		Success: true,
		Message: "Automation completed successfully",
		Data:    &res,
	})
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"status":  "running",
		"uptime":  h.uptime(),
		"endpoints": []string{
			"GET /health",
			"GET /status",
			"GET /schedule",
			"POST /trigger",
			"GET /metrics",
		},
	})
}

func (h *Handler) uptime() float64 {
	return h.now().Sub(h.cfg.StartedAt).Seconds()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("write response failed", slog.String("error", err.Error()))
	}
}
