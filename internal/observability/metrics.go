package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/carousel-backend/internal/platform/envutil"
)

// Metrics holds the process-wide counters exposed at /metrics. All methods are
// safe on a nil receiver so callers never need to check whether metrics are on.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec

	generations   *CounterVec
	slides        *CounterVec
	t2iRequests   *CounterVec
	stageLatency  *HistogramVec
	renderWait    *HistogramVec
	versionWrites *CounterVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the installed metrics or nil.
func Current() *Metrics { return instance }

// Init installs the process-wide metrics once and returns them.
func Init() *Metrics {
	initOnce.Do(func() { instance = New() })
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests:   NewCounterVec("carousel_api_requests_total", "HTTP requests by route and status.", "method", "route", "status"),
		apiLatency:    NewHistogramVec("carousel_api_request_seconds", "HTTP request latency.", nil, "method", "route"),
		generations:   NewCounterVec("carousel_generations_total", "Carousel generations by outcome.", "outcome"),
		slides:        NewCounterVec("carousel_slides_total", "Slides produced by image source.", "source"),
		t2iRequests:   NewCounterVec("carousel_t2i_requests_total", "Text-to-image calls by provider and status.", "provider", "status"),
		stageLatency:  NewHistogramVec("carousel_stage_seconds", "Pipeline stage latency.", nil, "stage"),
		renderWait:    NewHistogramVec("carousel_render_queue_wait_seconds", "Time spent waiting for the raster queue.", []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5}),
		versionWrites: NewCounterVec("carousel_slide_versions_total", "Slide version writes by operation.", "op"),

		aggregateOps:       NewCounterVec("carousel_aggregate_operations_total", "Aggregate writes by operation and status.", "op", "status"),
		aggregateLatency:   NewHistogramVec("carousel_aggregate_operation_seconds", "Aggregate write latency.", nil, "op"),
		aggregateConflicts: NewCounterVec("carousel_aggregate_conflicts_total", "Aggregate writes rejected as conflicts.", "op"),
		aggregateRetries:   NewCounterVec("carousel_aggregate_retryable_total", "Aggregate writes failing with retryable errors.", "op"),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) IncGeneration(outcome string) {
	if m == nil {
		return
	}
	m.generations.Inc(outcome)
}

func (m *Metrics) IncSlide(source string) {
	if m == nil {
		return
	}
	m.slides.Inc(source)
}

func (m *Metrics) IncT2I(provider string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.t2iRequests.Inc(provider, status)
}

func (m *Metrics) ObserveStage(stage string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), stage)
}

func (m *Metrics) ObserveRenderWait(dur time.Duration) {
	if m == nil {
		return
	}
	m.renderWait.Observe(dur.Seconds())
}

func (m *Metrics) IncVersionWrite(op string) {
	if m == nil {
		return
	}
	m.versionWrites.Inc(op)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

// SlideCount reports how many slides came from source. Intended for tests and debugging.
func (m *Metrics) SlideCount(source string) float64 {
	if m == nil {
		return 0
	}
	return m.slides.Value(source)
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.generations, m.slides,
		m.t2iRequests, m.stageLatency, m.renderWait, m.versionWrites,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
