// Package schedule drives export cycles: once, at a fixed interval, or on a
// cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"zenexport/internal/clock"
	"zenexport/internal/domain"
	"zenexport/internal/logging"
)

// DefaultInterval is the continuous-mode window length and pause.
const DefaultInterval = 7200 * time.Second

// Exporter exports one time window and returns the written path.
type Exporter interface {
	ExportWindow(ctx context.Context, w domain.TimeWindow) (string, error)
}

// Config selects the run mode.
type Config struct {
	// Window is exported once when neither Continuous nor Schedule is set.
	Window domain.TimeWindow
	// Continuous exports [now-Interval, now] and then sleeps Interval, forever.
	Continuous bool
	// Interval is the continuous-mode window length and pause, and the
	// length of the first cron-mode window.
	Interval time.Duration
	// Schedule is a standard five-field cron expression. When set, cycles
	// fire at schedule times and windows tile from one fire time to the next.
	Schedule string
}

// Runner runs export cycles one at a time.
type Runner struct {
	exporter Exporter
	cfg      Config
	schedule cron.Schedule
	clock    clock.Clock
	sleeper  clock.Sleeper
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock windows are computed from.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithSleeper sets the sleeper used between cycles.
func WithSleeper(s clock.Sleeper) Option {
	return func(r *Runner) { r.sleeper = s }
}

// WithLogger sets the base logger; every cycle derives one with a cycle_id.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner validates cfg and creates a Runner.
func NewRunner(exporter Exporter, cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < 0 {
		return nil, domain.ErrValidation("interval must be positive, got %s", cfg.Interval)
	}
	r := &Runner{
		exporter: exporter,
		cfg:      cfg,
		clock:    clock.Real{},
		sleeper:  clock.Real{},
		logger:   slog.Default(),
	}
	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, domain.ErrValidation("invalid schedule %q: %v", cfg.Schedule, err)
		}
		r.schedule = sched
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes cycles until the mode is finished. In the repeating modes it
// only returns on a cycle error or, with nil, when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	switch {
	case r.schedule != nil:
		return r.runCron(ctx)
	case r.cfg.Continuous:
		return r.runContinuous(ctx)
	default:
		_, err := r.cycle(ctx, r.cfg.Window)
		return err
	}
}

func (r *Runner) runContinuous(ctx context.Context) error {
	interval := r.cfg.Interval
	r.logger.Info(fmt.Sprintf("Running in continuous mode with %s interval", domain.FormatSeconds(interval)))
	for {
		w := domain.WindowEndingAt(r.clock.Now(), interval)
		if _, err := r.cycle(ctx, w); err != nil {
			return stopped(ctx, err)
		}
		r.logger.Info(fmt.Sprintf("Sleeping for %s", domain.FormatSeconds(interval)))
		if err := r.sleeper.Sleep(ctx, interval); err != nil {
			return stopped(ctx, err)
		}
	}
}

func (r *Runner) runCron(ctx context.Context) error {
	r.logger.Info(fmt.Sprintf("Running on schedule %q", r.cfg.Schedule))
	var prev time.Time
	for {
		now := r.clock.Now()
		next := r.schedule.Next(now)
		r.logger.Info("Next export at "+next.UTC().Format(domain.TimeLayout), "wait", next.Sub(now).Round(time.Second).String())
		if err := r.sleeper.Sleep(ctx, next.Sub(now)); err != nil {
			return stopped(ctx, err)
		}

		start := prev
		if start.IsZero() {
			start = next.Add(-r.cfg.Interval)
		}
		if _, err := r.cycle(ctx, domain.NewTimeWindow(start, next)); err != nil {
			return stopped(ctx, err)
		}
		prev = next
	}
}

// cycle exports w with a logger carrying a fresh cycle_id.
func (r *Runner) cycle(ctx context.Context, w domain.TimeWindow) (string, error) {
	id := domain.NewCycleID()
	logger := r.logger.With("cycle_id", id)
	ctx = logging.WithLogger(domain.WithCycleID(ctx, id), logger)

	start := r.clock.Now()
	path, err := r.exporter.ExportWindow(ctx, w)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", w, err)
	}
	logger.Debug("cycle finished", "path", path, "elapsed", r.clock.Now().Sub(start).String())
	return path, nil
}

// stopped turns an error caused by cancellation into a clean stop.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}
