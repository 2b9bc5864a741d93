package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the full HTTP surface this service exposes:
//
//   - GET /time, GET /   — current time, gated on readiness
//   - GET /healthz       — liveness
//   - GET /readyz        — readiness
//   - GET /startupz      — readiness (identical semantics to /readyz)
//   - GET /metrics       — Prometheus text exposition
//
// Any other path falls through to the router's own NotFoundHandler.
func NewRouter(s *State) http.Handler {
	r := mux.NewRouter()

	wrap := func(route string, h http.HandlerFunc) http.HandlerFunc {
		return withRequestID(s.Log, trackMetrics(s, route, limitBody(s, recoverMiddleware(s.Log, h))))
	}

	r.Handle("/time", wrap("/time", handleTime(s))).Methods(http.MethodGet)
	r.Handle("/", wrap("/time", handleTime(s))).Methods(http.MethodGet)
	r.Handle("/healthz", wrap("/healthz", handleHealthz())).Methods(http.MethodGet)
	r.Handle("/readyz", wrap("/readyz", handleReadyz(s))).Methods(http.MethodGet)
	r.Handle("/startupz", wrap("/startupz", handleReadyz(s))).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.NotFoundHandler = handleNotFound()

	return r
}
