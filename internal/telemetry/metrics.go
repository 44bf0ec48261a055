package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the command gateway.
type Metrics struct {
	CommandTotal           *prometheus.CounterVec
	CommandDurationMs      *prometheus.HistogramVec
	ValidationFailureTotal *prometheus.CounterVec
	RateLimitHitTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "commandgate_command_total",
			Help: "Total number of command executions by outcome.",
		}, []string{"command", "status"}),

		CommandDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "commandgate_command_duration_ms",
			Help:    "Command execution duration in milliseconds, pipeline included.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"command"}),

		ValidationFailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "commandgate_validation_failure_total",
			Help: "Total pipeline rejections by stage.",
		}, []string{"command", "kind"}),

		RateLimitHitTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "commandgate_rate_limit_hit_total",
			Help: "Total rate limit rejections.",
		}, []string{"dimension"}),
	}
}

// RecordCommand records a completed (or rejected) command execution.
func (m *Metrics) RecordCommand(command, status string, durationMs float64) {
	m.CommandTotal.WithLabelValues(command, status).Inc()
	m.CommandDurationMs.WithLabelValues(command).Observe(durationMs)
}

// RecordValidationFailure records one pipeline rejection.
func (m *Metrics) RecordValidationFailure(command, kind string) {
	m.ValidationFailureTotal.WithLabelValues(command, kind).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}
