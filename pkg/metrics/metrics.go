// Package metrics exposes the injector process's own health and
// activity as Prometheus metrics: producer side of the same
// github.com/prometheus/client_golang library pkg/monitoring/prometheus
// queries from the consumer side. The injector has no upstream
// Prometheus of its own to poll; this package gives an operator's
// existing Prometheus scrape config something to collect from the
// controller process itself.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

// Registry groups the four counters/gauges the injector process updates
// as it runs, once Install has wired them in.
type Registry struct {
	ActiveFaults   prometheus.Gauge
	EnableTotal    prometheus.Counter
	ShellDuration  prometheus.Histogram
	ShellSlowTotal prometheus.Counter
	registerer     *prometheus.Registry
}

// NewRegistry builds a fresh, unregistered-with-the-default-registerer
// metric set, so multiple Controllers in the same test binary do not
// collide on the global prometheus.DefaultRegisterer.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registerer: reg,
		ActiveFaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "faultinjector_active_faults",
			Help: "Number of fault specs currently enabled in the Active-Fault Registry.",
		}),
		EnableTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faultinjector_enable_total",
			Help: "Total number of fault-enable commands rendered and run.",
		}),
		ShellDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faultinjector_shell_duration_seconds",
			Help:    "Wall-clock duration of each shelled-out command.",
			Buckets: prometheus.DefBuckets,
		}),
		ShellSlowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faultinjector_shell_slow_total",
			Help: "Total number of commands that exceeded the slow-shell threshold.",
		}),
	}

	reg.MustRegister(r.ActiveFaults, r.EnableTotal, r.ShellDuration, r.ShellSlowTotal)
	return r
}

// ObserveShell records one shellexec.Result's duration against
// ShellDuration, and bumps ShellSlowTotal when elapsed crosses
// slowThreshold.
func (r *Registry) ObserveShell(elapsed, slowThreshold time.Duration) {
	r.ShellDuration.Observe(elapsed.Seconds())
	if elapsed >= slowThreshold {
		r.ShellSlowTotal.Inc()
	}
}

// EnableRecorded implements registry.Observer: one more enable command
// was run.
func (r *Registry) EnableRecorded() { r.EnableTotal.Inc() }

// ActiveCountChanged implements registry.Observer: mirror the Active-
// Fault Registry's current size into the gauge.
func (r *Registry) ActiveCountChanged(n int) { r.ActiveFaults.Set(float64(n)) }

// Install wires r into reg as its registry.Observer and into shellexec
// as its ShellObserver, so every enable/disable and every shelled-out
// command is reflected without either package depending on this one.
func (r *Registry) Install(reg *registry.Registry) {
	reg.SetObserver(r)
	shellexec.ShellObserver = r.ObserveShell
}

// Server serves r's metrics over promhttp.HandlerFor on an optional
// diagnostics listener; starter.RunInjector starts one only when a
// metrics address is configured.
type Server struct {
	http *http.Server
}

// NewServer builds (but does not start) a metrics HTTP server bound to
// addr, serving /metrics for r.
func NewServer(addr string, r *Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registerer, promhttp.HandlerOpts{}))
	return &Server{http: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the metrics server until ctx is cancelled. Errors other
// than the expected shutdown error are logged and returned.
func (s *Server) Start(ctx context.Context, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("metrics server stopped unexpectedly", "error", err.Error())
			}
			return err
		}
		return nil
	}
}
