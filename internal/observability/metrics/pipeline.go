package metrics

import (
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// ObserveStage implements ports.PipelineObserver.
func (m *HTTPServerMetrics) ObserveStage(stage, status string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage, status).Observe(duration.Seconds())
}

// ObserveRun implements ports.PipelineObserver.
func (m *HTTPServerMetrics) ObserveRun(result domain.PipelineResult) {
	outcome := "article"
	if result.Degraded() {
		outcome = "apology"
		m.fallbackTotal.WithLabelValues(m.service, string(result.FallbackReason)).Inc()
	}
	m.runsTotal.WithLabelValues(m.service, outcome).Inc()
	m.runDuration.Observe(result.Duration.Seconds())
	if result.Species.Label != "" {
		m.confidence.Observe(result.Species.Confidence)
	}
}
