package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the automation service.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	sessionsTotal       *prometheus.CounterVec
	attemptsTotal       prometheus.Counter
	triggerFiringsTotal *prometheus.CounterVec
	gatedSkipsTotal     prometheus.Counter
	cleanupDeletedTotal prometheus.Counter
	historyEntries      prometheus.Gauge
	lastSuccess         prometheus.Gauge
}

// New creates and registers Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	sessionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_sessions_total",
		Help: "Finished retry-wrapped sessions by outcome",
	}, []string{"outcome"})
	attemptsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_session_attempts_total",
		Help: "Pipeline attempts started, including retries",
	})
	triggerFiringsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_trigger_firings_total",
		Help: "Trigger firings by trigger name",
	}, []string{"trigger"})
	gatedSkipsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_gated_skips_total",
		Help: "Hourly firings skipped because no recent activity was seen",
	})
	cleanupDeletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_cleanup_deleted_files_total",
		Help: "Files removed by the retention cleaner",
	})
	historyEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "automation_history_entries",
		Help: "Entries currently held in the upload history",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "automation_last_success_timestamp_seconds",
		Help: "Unix time of the last successful upload",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		sessionsTotal,
		attemptsTotal,
		triggerFiringsTotal,
		gatedSkipsTotal,
		cleanupDeletedTotal,
		historyEntries,
		lastSuccess,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		sessionsTotal:       sessionsTotal,
		attemptsTotal:       attemptsTotal,
		triggerFiringsTotal: triggerFiringsTotal,
		gatedSkipsTotal:     gatedSkipsTotal,
		cleanupDeletedTotal: cleanupDeletedTotal,
		historyEntries:      historyEntries,
		lastSuccess:         lastSuccess,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveSession counts one finished session.
func (m *Metrics) ObserveSession(success bool, finishedAt time.Time) {
	if success {
		m.sessionsTotal.WithLabelValues("success").Inc()
		m.lastSuccess.Set(float64(finishedAt.Unix()))
		return
	}
	m.sessionsTotal.WithLabelValues("failure").Inc()
}

// IncAttempts counts one pipeline attempt.
func (m *Metrics) IncAttempts() {
	m.attemptsTotal.Inc()
}

// IncTriggerFiring counts a firing of the named trigger.
func (m *Metrics) IncTriggerFiring(trigger string) {
	m.triggerFiringsTotal.WithLabelValues(trigger).Inc()
}

// IncGatedSkips counts an hourly firing skipped by the activity gate.
func (m *Metrics) IncGatedSkips() {
	m.gatedSkipsTotal.Inc()
}

// AddCleanupDeleted adds n removed files.
func (m *Metrics) AddCleanupDeleted(n int) {
	m.cleanupDeletedTotal.Add(float64(n))
}

// SetHistoryEntries sets the history size gauge.
func (m *Metrics) SetHistoryEntries(n int) {
	m.historyEntries.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. history size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
