package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter has no getter for it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// trackMetrics wraps next with inflight tracking, a request counter and a
// latency histogram; it writes no log line (withRequestID does). Grounded in the
// same shape as the request-tracing layer this HTTP surface's contract
// assumes exists: count, duration, and inflight gauge, labeled by method
// and route pattern rather than raw path (so per-route cardinality stays
// bounded).
func trackMetrics(s *State, route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.HTTPInflight.Inc()
		defer s.Metrics.HTTPInflight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		elapsed := time.Since(start)

		s.Metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.Metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	}
}

// withRequestID assigns (or propagates) an X-Request-Id header and logs
// one structured line per request, the way the core's background loops
// log: a single zap call with typed fields, not a formatted string.
func withRequestID(log *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next(w, r)

		log.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// limitBody caps the request body at s.Config.BodyLimitBytes using the
// standard library's own enforcement mechanism: a handler that tries to
// read past the limit gets an error from the body reader rather than an
// unbounded read.
func limitBody(s *State, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.BodyLimitBytes)
		next(w, r)
	}
}

// recoverMiddleware is a last-resort safety net: a panicking handler
// returns 500 instead of taking down the whole HTTP server.
func recoverMiddleware(log *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}
