package aggregates

import (
	"time"

	"github.com/yungbote/carousel-backend/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	metrics *observability.Metrics
}

func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{metrics: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(name, status, dur)
	if status == "success" {
		h.metrics.IncVersionWrite(name)
	}
}

func (h metricsHooks) IncConflict(name string) { h.metrics.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.metrics.IncAggregateRetry(name) }
