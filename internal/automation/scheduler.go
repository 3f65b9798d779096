package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"story-automation/internal/platform/metrics"
)

// Trigger kinds.
const (
	KindProduction = "production"
	KindCleanup    = "cleanup"
)

// Fixed trigger names and specs.
const (
	HourlyTrigger  = "hourly"
	CleanupTrigger = "cleanup"
	HourlySpec     = "0 * * * *"
	CleanupSpec    = "0 3 * * *"
)

// ErrUnknownTrigger is returned by Fire for a name that is not registered.
var ErrUnknownTrigger = errors.New("unknown trigger")

// Mode selects how production triggers are laid out. It is either
// DirectSchedule or GatedSchedule.
type Mode interface {
	modeName() string
}

// DirectSchedule fires one trigger per daily slot, unconditionally.
type DirectSchedule struct {
	Slots []Slot
}

func (DirectSchedule) modeName() string { return "direct" }

// GatedSchedule fires one hourly trigger that only runs a session when the
// activity gate reports recent activity.
type GatedSchedule struct{}

func (GatedSchedule) modeName() string { return "gated" }

// Trigger is one registered recurring job.
type Trigger struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Kind string    `json:"kind"`
	Next time.Time `json:"next"`
}

// SessionRunner runs one retry-wrapped session.
type SessionRunner interface {
	RunWithRetry(ctx context.Context, trigger string, maxAttempts int) (SessionResult, error)
}

// Sweeper runs the retention cleanup.
type Sweeper interface {
	Cleanup(ctx context.Context) CleanupReport
}

// ActivityGate decides whether a gated firing may proceed.
type ActivityGate interface {
	ShouldRun() bool
}

// SchedulerConfig holds the scheduler's static settings.
type SchedulerConfig struct {
	Mode        Mode
	Location    *time.Location
	MaxAttempts int
}

// Scheduler owns the recurring triggers: production triggers that run the
// retry controller and a daily cleanup trigger.
type Scheduler struct {
	cron        *cron.Cron
	mode        Mode
	location    *time.Location
	maxAttempts int
	runner      SessionRunner
	cleaner     Sweeper
	gate        ActivityGate
	log         *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	triggers []Trigger
	entries  map[string]cron.EntryID
	jobs     map[string]func()

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopDone context.Context
	inflight int
	idle     chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the clock used to compute next fire times.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler registers the triggers for cfg.Mode plus the cleanup trigger.
// Nothing fires until Start. gate is consulted only in gated mode; metrics may
// be nil.
func NewScheduler(cfg SchedulerConfig, runner SessionRunner, cleaner Sweeper, gate ActivityGate, log *slog.Logger, m *metrics.Metrics, opts ...SchedulerOption) (*Scheduler, error) {
	if cfg.Mode == nil {
		return nil, errors.New("scheduler mode is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if _, ok := cfg.Mode.(GatedSchedule); ok && gate == nil {
		return nil, errors.New("gated schedule requires an activity gate")
	}

	s := &Scheduler{
		mode:        cfg.Mode,
		location:    loc,
		maxAttempts: cfg.MaxAttempts,
		runner:      runner,
		cleaner:     cleaner,
		gate:        gate,
		log:         log,
		metrics:     m,
		now:         time.Now,
		entries:     make(map[string]cron.EntryID),
		jobs:        make(map[string]func()),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	switch mode := cfg.Mode.(type) {
	case DirectSchedule:
		if len(mode.Slots) == 0 {
			return nil, errors.New("direct schedule needs at least one slot")
		}
		for i, slot := range mode.Slots {
			if err := s.add(fmt.Sprintf("video-%d", i+1), slot.CronSpec(), KindProduction); err != nil {
				return nil, err
			}
		}
	case GatedSchedule:
		if err := s.add(HourlyTrigger, HourlySpec, KindProduction); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported schedule mode %T", cfg.Mode)
	}
	if err := s.add(CleanupTrigger, CleanupSpec, KindCleanup); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec, kind string) error {
	t := Trigger{Name: name, Spec: spec, Kind: kind}
	job := func() { s.fire(t) }
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("register trigger %s (%s): %w", name, spec, err)
	}
	s.triggers = append(s.triggers, t)
	s.entries[name] = id
	s.jobs[name] = job
	return nil
}

// Start begins firing triggers. It is a no-op once started or stopped.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()

	names := make([]string, 0, len(s.triggers))
	for _, t := range s.triggers {
		names = append(names, t.Name+"="+t.Spec)
	}
	s.log.Info("scheduler started",
		slog.String("mode", s.mode.modeName()),
		slog.String("timezone", s.location.String()),
		slog.String("triggers", strings.Join(names, ", ")))
}

// Stop cancels all triggers. The returned context is done once in-flight
// firings have finished; running sessions are not interrupted. Stop is
// idempotent and returns the same context on every call.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.stopDone
	}
	s.stopped = true
	cronDone := s.cron.Stop()

	idle := make(chan struct{})
	if s.inflight == 0 {
		close(idle)
	} else {
		s.idle = idle
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		<-idle
		cancel()
	}()
	s.stopDone = ctx

	if s.started {
		s.log.Info("scheduler stopping", slog.Int("in_flight", s.inflight))
	}
	return s.stopDone
}

// Location returns the timezone triggers are evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Mode returns "direct" or "gated".
func (s *Scheduler) Mode() string {
	return s.mode.modeName()
}

// Triggers returns the registered triggers with their next fire time.
func (s *Scheduler) Triggers() []Trigger {
	now := s.now().In(s.location)
	out := make([]Trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		entry := s.cron.Entry(s.entries[t.Name])
		if entry.Valid() && entry.Schedule != nil {
			t.Next = entry.Schedule.Next(now)
		}
		out = append(out, t)
	}
	return out
}

// Describe renders the active trigger set as text.
func (s *Scheduler) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s, timezone: %s\n", s.mode.modeName(), s.location)
	for _, t := range s.Triggers() {
		label := t.Name
		if slot, ok := s.slotFor(t.Name); ok {
			label = fmt.Sprintf("%s at %s", t.Name, slot)
		}
		fmt.Fprintf(&b, "- %s [%s] (%s) next %s\n", label, t.Spec, t.Kind, t.Next.Format("2006-01-02 15:04 MST"))
	}
	if _, ok := s.mode.(GatedSchedule); ok {
		b.WriteString("hourly firings run only after recent activity\n")
	}
	return b.String()
}

func (s *Scheduler) slotFor(name string) (Slot, bool) {
	direct, ok := s.mode.(DirectSchedule)
	if !ok {
		return Slot{}, false
	}
	var i int
	if _, err := fmt.Sscanf(name, "video-%d", &i); err != nil || i < 1 || i > len(direct.Slots) {
		return Slot{}, false
	}
	return direct.Slots[i-1], true
}

// Fire runs the named trigger's job synchronously, as if it had fired.
func (s *Scheduler) Fire(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, name)
	}
	job()
	return nil
}

func (s *Scheduler) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Scheduler) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

func (s *Scheduler) fire(t Trigger) {
	s.begin()
	defer s.end()

	log := s.log.With(
		slog.String("trigger", t.Name),
		slog.String("firing_id", uuid.NewString()))
	if s.metrics != nil {
		s.metrics.IncTriggerFiring(t.Name)
	}
	ctx := context.Background()

	if t.Kind == KindCleanup {
		log.Info("cleanup trigger fired")
		if s.cleaner != nil {
			s.cleaner.Cleanup(ctx)
		}
		return
	}

	if _, gated := s.mode.(GatedSchedule); gated && !s.gate.ShouldRun() {
		log.Info("skipping firing, no recent activity")
		if s.metrics != nil {
			s.metrics.IncGatedSkips()
		}
		return
	}

	started := time.Now()
	log.Info("trigger fired, starting session")
	res, err := s.runner.RunWithRetry(ctx, t.Name, s.maxAttempts)
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		log.Error("triggered session failed",
			slog.String("session_id", res.SessionID),
			slog.Int("attempts", res.Attempts),
			slog.Int64("duration_ms", elapsed),
			slog.String("error", err.Error()))
		return
	}
	log.Info("triggered session completed",
		slog.String("session_id", res.SessionID),
		slog.String("video_id", res.VideoID),
		slog.Int("attempts", res.Attempts),
		slog.Int64("duration_ms", elapsed))
}

// cronLogger routes cron's own logging to slog. Routine messages go to debug.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)
	l.log.Error("cron: "+msg, args...)
}
