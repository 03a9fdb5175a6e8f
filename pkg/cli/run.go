package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"zenexport/internal/clock"
	"zenexport/internal/config"
	"zenexport/internal/export"
	"zenexport/internal/metrics"
	"zenexport/internal/schedule"
	"zenexport/internal/zendesk"
)

// run wires the exporter from cfg and runs it until the mode finishes or
// ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	clientOpts := []zendesk.Option{zendesk.WithRequestsPerSecond(cfg.RequestsPerSecond)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, zendesk.WithBaseURL(cfg.BaseURL))
	}
	client := zendesk.NewClient(zendesk.Credentials{
		Subdomain: cfg.Subdomain,
		Email:     cfg.Email,
		Token:     cfg.Token,
	}, clientOpts...)

	fetcherOpts := []zendesk.FetcherOption{zendesk.WithLogger(logger)}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	exportOpts := export.Options{
		OutDir: cfg.OutDir,
		Format: format,
		Logger: logger,
		Clock:  clock.Real{},
	}

	if cfg.MetricsAddr != "" {
		m := metrics.New()
		fetcherOpts = append(fetcherOpts, zendesk.WithObserver(m))
		exportOpts.Recorder = m
		ln, err := metrics.Listen(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		go func() {
			if err := m.ServeListener(ctx, ln, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("Serving metrics on " + ln.Addr().String() + "/metrics")
	}

	if cfg.HasS3Config() {
		uploader, err := export.NewS3Uploader(export.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			KeyID:    cfg.S3KeyID,
			Secret:   cfg.S3Secret,
		})
		if err != nil {
			return err
		}
		exportOpts.Uploader = uploader
	}

	fetcher := zendesk.NewFetcher(client, zendesk.RetryPolicy{
		RateLimitBackoff: cfg.RateLimitBackoff,
		ErrorBackoff:     cfg.ErrorBackoff,
		MaxRetries:       cfg.MaxRetries,
	}, fetcherOpts...)
	svc := zendesk.NewService(fetcher)

	exporter, err := export.NewExporter(svc, svc, exportOpts)
	if err != nil {
		return err
	}

	window, err := cfg.Window(time.Now().UTC())
	if err != nil {
		return err
	}
	runner, err := schedule.NewRunner(exporter, schedule.Config{
		Window:     window,
		Continuous: cfg.Continuous,
		Interval:   cfg.Interval,
		Schedule:   cfg.Schedule,
	}, schedule.WithLogger(logger))
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func setSeconds(dst *time.Duration, seconds int, flag string) error {
	if seconds < 0 {
		return fmt.Errorf("--%s must not be negative", flag)
	}
	*dst = time.Duration(seconds) * time.Second
	return nil
}
