package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalnine/crosscheck/internal/result"
)

const namespace = "crosscheck"

// Attempt outcomes for judge calls.
const (
	AttemptOK        = "ok"
	AttemptTransient = "transient"
	AttemptPermanent = "permanent"
)

// Metrics holds the harness collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	toolRuns      *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	judgeAttempts *prometheus.CounterVec
	judgeLatency  *prometheus.HistogramVec
	verdicts      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		toolRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "runs_total",
			Help:      "Tool invocations by tool and outcome status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "Wall time of tool invocations.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"tool"}),
		judgeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "attempts_total",
			Help:      "Judge service calls by tool and attempt result.",
		}, []string{"tool", "result"}),
		judgeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "attempt_duration_seconds",
			Help:      "Latency of individual judge service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"result"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "verdicts_total",
			Help:      "Final verdicts by tool and label.",
		}, []string{"tool", "verdict"}),
	}
	m.Registry.MustRegister(m.toolRuns, m.toolDuration, m.judgeAttempts, m.judgeLatency, m.verdicts)
	return m
}

func (m *Metrics) ObserveRun(o result.Outcome) {
	if m == nil {
		return
	}
	m.toolRuns.WithLabelValues(o.Tool, string(o.Status)).Inc()
	m.toolDuration.WithLabelValues(o.Tool).Observe(float64(o.DurationMs) / 1000)
}

func (m *Metrics) ObserveAttempt(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.judgeAttempts.WithLabelValues(tool, outcome).Inc()
	m.judgeLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveVerdict(v result.Verdict) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(v.Tool, string(v.Label)).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	return nil
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on %s: %w", addr, err)
	}
	return nil
}
