package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatserv_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatserv_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	})

	messagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatserv_messages_appended_total",
		Help: "Messages appended to room and conversation logs.",
	})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatserv_rejections_total",
		Help: "Forbidden-class rejections by reason class.",
	}, []string{"reason"})

	sweepPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatserv_sweep_purged_total",
		Help: "Expired presence/kick/ban/spam entries removed by sweeps.",
	})
)

// MessageAppended records one accepted post.
func MessageAppended() { messagesAppended.Inc() }

// Rejected records a forbidden-class rejection. reason is a small label
// class ("banned", "kicked", "spam", "unauthorized"), not the free-form
// client text.
func Rejected(reason string) { rejectionsTotal.WithLabelValues(reason).Inc() }

// SweepPurged adds to the purge counter.
func SweepPurged(n int) {
	if n > 0 {
		sweepPurged.Add(float64(n))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency for every response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.Observe(time.Since(start).Seconds())
	})
}
