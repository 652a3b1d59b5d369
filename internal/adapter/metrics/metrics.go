package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartwallet"

// Step outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeNotYet = "not_ready"
)

// Recorder owns the gateway's Prometheus instruments. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	upstreamReqs *prometheus.CounterVec
	upstreamTime *prometheus.HistogramVec
	httpReqs     *prometheus.CounterVec
	httpTime     *prometheus.HistogramVec
}

// New creates a Recorder with its own registry, including the Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choreography_steps_total",
			Help:      "Transfer choreography steps by outcome",
		}, []string{"step", "outcome"}),
		upstreamReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_payments_requests_total",
			Help:      "Requests sent to Open Payments servers",
		}, []string{"operation", "status"}),
		upstreamTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "open_payments_request_duration_seconds",
			Help:      "Latency of Open Payments requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "REST API requests",
		}, []string{"method", "route", "status"}),
		httpTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.steps, r.upstreamReqs, r.upstreamTime, r.httpReqs, r.httpTime,
	)
	return r
}

// Step counts one choreography step.
func (r *Recorder) Step(step, outcome string) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(step, outcome).Inc()
}

// Upstream records one Open Payments request. status is 0 when the request
// never got a response.
func (r *Recorder) Upstream(operation string, status int, took time.Duration) {
	if r == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.upstreamReqs.WithLabelValues(operation, label).Inc()
	r.upstreamTime.WithLabelValues(operation).Observe(took.Seconds())
}

// Middleware records REST API requests by route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpReqs.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpTime.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
