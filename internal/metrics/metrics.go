// Package metrics exposes exporter activity in the Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the exporter's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	now      func() time.Time

	APIRequests     *prometheus.CounterVec
	APIRetries      *prometheus.CounterVec
	Exports         *prometheus.CounterVec
	RecordsExported prometheus.Counter
	LastSuccess     prometheus.Gauge
}

// New registers the exporter collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		now:      time.Now,
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zenexport_api_requests_total",
			Help: "Total number of API requests by resource and HTTP status code (0 for transport errors)",
		}, []string{"resource", "code"}),
		APIRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zenexport_api_retries_total",
			Help: "Total number of API request retries by reason",
		}, []string{"reason"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zenexport_exports_total",
			Help: "Total number of export cycles by format and result",
		}, []string{"format", "result"}),
		RecordsExported: factory.NewCounter(prometheus.CounterOpts{
			Name: "zenexport_records_exported_total",
			Help: "Total number of access log records written to export files",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zenexport_last_success_timestamp_seconds",
			Help: "Unix time of the last successful export",
		}),
	}
}

// ObserveRequest counts one API response.
func (m *Metrics) ObserveRequest(resource string, status int) {
	m.APIRequests.WithLabelValues(resource, strconv.Itoa(status)).Inc()
}

// ObserveRetry counts one retry.
func (m *Metrics) ObserveRetry(_ string, reason string) {
	m.APIRetries.WithLabelValues(reason).Inc()
}

// ObserveExport records the outcome of one export cycle.
func (m *Metrics) ObserveExport(format string, records int, err error) {
	if err != nil {
		m.Exports.WithLabelValues(format, "error").Inc()
		return
	}
	m.Exports.WithLabelValues(format, "success").Inc()
	m.RecordsExported.Add(float64(records))
	m.LastSuccess.Set(float64(m.now().Unix()))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Listen binds addr for ServeListener.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	return ln, nil
}

// ServeListener serves /metrics and /healthz on ln until ctx is done.
func (m *Metrics) ServeListener(ctx context.Context, ln net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Debug("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
