// Package telemetry owns the Prometheus collectors for ledger activity and
// HTTP traffic.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respectcircle"

// Metrics is safe to use as a nil pointer; every recorder method then does
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	minutesLogged   prometheus.Counter
	achievements    *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	resets          *prometheus.CounterVec
	feedPosts       *prometheus.CounterVec
	goalProgress    prometheus.Counter
	demoResets      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	authRejections  *prometheus.CounterVec
	rateLimitedReqs prometheus.Counter
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		minutesLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "minutes_logged_total",
			Help:      "Net positive minutes applied through log_time",
		}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_total",
			Help:      "Goal crossings by period",
		}, []string{"period"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rejections_total",
			Help:      "Rejected ledger operations by operation",
		}, []string{"op"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_resets_total",
			Help:      "Played counter resets by scope and trigger",
		}, []string{"scope", "trigger"}),
		feedPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_posts_total",
			Help:      "Feed entries appended by kind",
		}, []string{"kind"}),
		goalProgress: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goal_progress_updates_total",
			Help:      "Applied goal progress updates",
		}),
		demoResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demo_resets_total",
			Help:      "Demo resets by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rejections_total",
			Help:      "Total number of unauthorized requests",
		}, []string{"reason"}),
		rateLimitedReqs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.minutesLogged, m.achievements, m.rejections, m.resets, m.feedPosts,
		m.goalProgress, m.demoResets, m.httpRequests, m.httpDuration,
		m.authRejections, m.rateLimitedReqs,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MinutesLogged(minutes int) {
	if m == nil || minutes <= 0 {
		return
	}
	m.minutesLogged.Add(float64(minutes))
}

func (m *Metrics) Achievement(period string) {
	if m == nil {
		return
	}
	m.achievements.WithLabelValues(period).Inc()
}

func (m *Metrics) Rejection(op string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op).Inc()
}

func (m *Metrics) Reset(scope, trigger string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(scope, trigger).Inc()
}

func (m *Metrics) FeedPost(kind string) {
	if m == nil {
		return
	}
	m.feedPosts.WithLabelValues(kind).Inc()
}

func (m *Metrics) GoalProgress() {
	if m == nil {
		return
	}
	m.goalProgress.Inc()
}

func (m *Metrics) DemoReset(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.demoResets.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedReqs.Inc()
}

// Monitor records count and latency for every request. Routes are labelled
// by the matched ServeMux pattern rather than the raw path, so ids in paths
// do not explode label cardinality.
func (m *Metrics) Monitor(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())

		switch ww.statusCode {
		case http.StatusUnauthorized:
			m.authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			m.authRejections.WithLabelValues("403_forbidden").Inc()
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
