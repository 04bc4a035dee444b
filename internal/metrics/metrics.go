package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "churchcare",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churchcare",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churchcare",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churchcare",
			Subsystem: "delivery",
			Name:      "recipients_total",
			Help:      "Message recipients processed by channel and outcome.",
		},
		[]string{"channel", "status"},
	)

	automationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churchcare",
			Subsystem: "automation",
			Name:      "rule_runs_total",
			Help:      "Automation rule executions by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	automationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churchcare",
			Subsystem: "automation",
			Name:      "rule_run_duration_seconds",
			Help:      "Duration of automation rule executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"trigger"},
	)

	schedulerJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churchcare",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduler job runs by job name and outcome.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		deliveries,
		automationRuns,
		automationDuration,
		schedulerJobs,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency labelled by chi route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordDelivery(channel, status string) {
	deliveries.WithLabelValues(channel, status).Inc()
}

func RecordAutomationRun(trigger, outcome string, duration time.Duration) {
	automationRuns.WithLabelValues(trigger, outcome).Inc()
	automationDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func RecordSchedulerJob(job string, err error) {
	schedulerJobs.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
}
