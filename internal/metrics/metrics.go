// Package metrics exports workflow telemetry to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vigil"

// Collector records workflow outcomes. It implements workflow.Observer.
type Collector struct {
	checks    *prometheus.CounterVec
	durations *prometheus.HistogramVec
	exits     *prometheus.CounterVec
	bypasses  *prometheus.CounterVec
}

var _ workflow.Observer = (*Collector)(nil)

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Remote safety checks by check and result.",
		}, []string{"check", "result"}),

		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Remote safety check latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"check"}),

		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_exits_total",
			Help:      "Finished workflows by exit kind and reason.",
		}, []string{"kind", "reason"}),

		bypasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bypasses_total",
			Help:      "Transfers forced past a warning, by the warning bypassed.",
		}, []string{"from"}),
	}

	reg.MustRegister(c.checks, c.durations, c.exits, c.bypasses)
	return c
}

// CheckCompleted implements workflow.Observer.
func (c *Collector) CheckCompleted(check workflow.Check, outcome workflow.Outcome, elapsed time.Duration) {
	c.checks.WithLabelValues(string(check), string(outcome)).Inc()
	c.durations.WithLabelValues(string(check)).Observe(elapsed.Seconds())
}

// Finished implements workflow.Observer.
func (c *Collector) Finished(run model.Run) {
	c.exits.WithLabelValues(string(run.Exit.Kind), string(run.Exit.Reason)).Inc()
	if run.Bypassed() {
		c.bypasses.WithLabelValues(string(run.FinalStatus)).Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
