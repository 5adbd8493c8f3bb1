// Package metrics collects Prometheus metrics for the orchestration layer
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and clients need; tests pass Nop.
type Recorder interface {
	RecordGeocode(result string, d time.Duration)
	RecordReport(escalated bool)
	RecordNotification(kind, result string)
	RecordHTTP(method, path string, status int, d time.Duration)
}

type Collector struct {
	geocodeTotal   *prometheus.CounterVec
	geocodeLatency prometheus.Histogram
	reportsTotal   prometheus.Counter
	escalations    prometheus.Counter
	notifications  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		geocodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_geocode_requests_total",
			Help: "Geocoding lookups by result",
		}, []string{"result"}),
		geocodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "localevents_geocode_latency_seconds",
			Help:    "Geocoding lookup latency",
			Buckets: prometheus.DefBuckets,
		}),
		reportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localevents_reports_total",
			Help: "Event reports stored",
		}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localevents_moderation_escalations_total",
			Help: "Reports that crossed the escalation threshold",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_notifications_total",
			Help: "Notification deliveries by kind and result",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localevents_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.geocodeTotal,
		c.geocodeLatency,
		c.reportsTotal,
		c.escalations,
		c.notifications,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

func (c *Collector) RecordGeocode(result string, d time.Duration) {
	c.geocodeTotal.WithLabelValues(result).Inc()
	c.geocodeLatency.Observe(d.Seconds())
}

func (c *Collector) RecordReport(escalated bool) {
	c.reportsTotal.Inc()
	if escalated {
		c.escalations.Inc()
	}
}

func (c *Collector) RecordNotification(kind, result string) {
	c.notifications.WithLabelValues(kind, result).Inc()
}

func (c *Collector) RecordHTTP(method, path string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the registry for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) RecordGeocode(string, time.Duration)           {}
func (nop) RecordReport(bool)                             {}
func (nop) RecordNotification(string, string)             {}
func (nop) RecordHTTP(string, string, int, time.Duration) {}
