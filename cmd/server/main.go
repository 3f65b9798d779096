package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-automation/internal/app"
	"story-automation/internal/automation"
	"story-automation/internal/platform/logger"
	"story-automation/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 30 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := app.LoadConfig()
	started := time.Now()

	log, closer, err := app.OpenLogger(cfg, automation.ServiceName)
	if err != nil {
		log = logger.New(automation.ServiceName, cfg.LogLevel, cfg.LogFormat)
		log.Warn("file logging disabled", "error", err)
	} else {
		defer closer.Close()
	}

	met := metrics.New()
	a, err := app.New(cfg, log, met)
	if err != nil {
		log.Error("configuration error", "error", err)
		return 1
	}
	if err := a.Workspace.Ensure(); err != nil {
		log.Error("prepare workspace failed", "error", err)
		return 1
	}

	ctx := context.Background()
	p, err := a.Pipeline(ctx)
	if err != nil {
		log.Error("pipeline setup failed", "error", err)
		return 1
	}
	runner, err := a.Runner(p)
	if err != nil {
		log.Error("pipeline setup failed", "error", err)
		return 1
	}
	sched, err := a.Scheduler(runner, a.Mode())
	if err != nil {
		log.Error("scheduler setup failed", "error", err)
		return 1
	}

	h := automation.NewHandler(a.History, runner, sched, a.Gate, automation.HandlerConfig{
		Production:  cfg.Production,
		MaxAttempts: cfg.MaxAttempts,
		StartedAt:   started,
	}, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log, "/health"))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(h.ActivityMiddleware)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetHistoryEntries(a.History.Len()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sched.Start()
	log.Info("server starting",
		"port", cfg.Port,
		"production", cfg.Production,
		"schedule_profile", cfg.ScheduleProfile,
		"timezone", a.Location.String(),
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received, draining connections", "signal", sig.String())
	case err := <-serverErr:
		log.Error("server error", "error", err)
		code = 1
	}

	stopped := sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		code = 1
	}

	select {
	case <-stopped.Done():
	case <-time.After(drainTimeout):
		log.Warn("in-flight sessions still running at exit", slog.Duration("waited", drainTimeout))
	}

	log.Info("server stopped")
	return code
}
