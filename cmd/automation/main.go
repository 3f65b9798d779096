package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"story-automation/internal/app"
	"story-automation/internal/automation"
	"story-automation/internal/console"
	"story-automation/internal/platform/logger"
)

const drainTimeout = 30 * time.Minute

// env carries the process-wide pieces every subcommand needs.
type env struct {
	cfg    app.Config
	log    *slog.Logger
	closer io.Closer
	app    *app.App
}

func (e *env) close() {
	if e.closer != nil {
		e.closer.Close()
	}
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg := app.LoadConfig()
	if p, _ := cmd.Flags().GetString("profile"); p != "" {
		cfg.ScheduleProfile = p
	}

	e := &env{cfg: cfg}
	log, closer, err := app.OpenLogger(cfg, "automation-cli")
	if err != nil {
		log = logger.New("automation-cli", cfg.LogLevel, cfg.LogFormat)
		log.Warn("file logging disabled", "error", err)
	}
	e.log, e.closer = log, closer

	a, err := app.New(cfg, log, nil)
	if err != nil {
		e.close()
		return nil, err
	}
	e.app = a
	return e, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "automation",
		Short: "Story video automation: scheduler, manual runs and reports",
		Long: `automation drives the story -> speech -> thumbnail -> subtitles -> video -> upload
pipeline on a daily schedule and reports on past sessions.

Examples:
  automation start
  automation run --attempts 1
  automation schedule --profile eightPerDay
  automation status`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("profile", "", "schedule profile (threePerDay, fourPerDay, sixPerDay, eightPerDay)")

	root.AddCommand(
		newStartCmd(),
		newRunCmd(),
		newStatsCmd(),
		newScheduleCmd(),
		newCleanupCmd(),
		newStatusCmd(),
		newReportCmd(),
	)
	return root
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.app.Workspace.Ensure(); err != nil {
				return err
			}

			p, err := e.app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			runner, err := e.app.Runner(p)
			if err != nil {
				return err
			}
			if e.cfg.Production {
				e.log.Info("no HTTP surface in this process, production slots fire without the activity gate")
			}
			sched, err := e.app.Scheduler(runner, e.app.StandaloneMode())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), console.Schedule(sched.Mode(), sched.Location(), sched.Triggers()))
			sched.Start()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			e.log.Info("shutdown signal received, waiting for running sessions")
			select {
			case <-sched.Stop().Done():
			case <-time.After(drainTimeout):
				e.log.Warn("in-flight sessions still running at exit")
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one session now, with retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			runner, err := e.app.Runner(p)
			if err != nil {
				return err
			}
			if attempts <= 0 {
				attempts = e.cfg.MaxAttempts
			}
			res, runErr := runner.RunWithRetry(cmd.Context(), "cli", attempts)
			fmt.Fprintln(cmd.OutOrStdout(), console.Session(res))
			return runErr
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 0, "maximum attempts (default MAX_ATTEMPTS)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show upload statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), console.Stats(e.app.History.Stats(), time.Now()))
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show the trigger schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			sched, err := e.app.Scheduler(nil, e.app.Mode())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), console.Schedule(sched.Mode(), sched.Location(), sched.Triggers()))
			return nil
		},
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete working files older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			report := e.app.Cleaner.Cleanup(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), console.Cleanup(report))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), console.Status(e.app.Status(time.Now())))
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write the daily report JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			report, path, err := e.app.WriteReport(time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), console.Report(report, path))
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if automationFailed(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// automationFailed reports whether err is a pipeline failure rather than a
// usage or setup error.
func automationFailed(err error) bool {
	return errors.Is(err, automation.ErrRetriesExhausted)
}
