// Package metrics exposes the watch loop's Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glucowatch"

// Poll outcomes recorded by PollsTotal.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds every collector on its own registry so tests and multiple
// services never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	PollsTotal        *prometheus.CounterVec // outcome
	AuthTotal         *prometheus.CounterVec // result
	AlertsTotal       *prometheus.CounterVec // rule, decision
	NotifyErrorsTotal prometheus.Counter
	LastGlucose       prometheus.Gauge
	LastReadingTime   prometheus.Gauge
	FetchDuration     prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by outcome.",
		},
		[]string{"outcome"},
	)
	m.AuthTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Share authentication attempts by result.",
		},
		[]string{"result"},
	)
	m.AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert decisions by rule.",
		},
		[]string{"rule", "decision"},
	)
	m.NotifyErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notify_errors_total",
		Help:      "Notifications that at least one sink failed to deliver.",
	})
	m.LastGlucose = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "glucose_mg_dl",
		Help:      "Most recent glucose value in mg/dL.",
	})
	m.LastReadingTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "glucose_reading_timestamp_seconds",
		Help:      "Unix time of the most recent reading.",
	})
	m.FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of share reading fetches.",
		Buckets:   prometheus.DefBuckets,
	})

	m.Registry.MustRegister(
		m.PollsTotal,
		m.AuthTotal,
		m.AlertsTotal,
		m.NotifyErrorsTotal,
		m.LastGlucose,
		m.LastReadingTime,
		m.FetchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReading updates the glucose gauges.
func (m *Metrics) ObserveReading(value int, at time.Time) {
	m.LastGlucose.Set(float64(value))
	m.LastReadingTime.Set(float64(at.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
