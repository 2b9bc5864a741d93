package httpapi

import (
	"encoding/json"
	"net/http"
)

// timeResponse is the JSON envelope for GET /time and GET /.
type timeResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    int64  `json:"data"`
	Error   string `json:"error,omitempty"`
}

// statusResponse is the JSON envelope for the health/readiness probes.
type statusResponse struct {
	Status string `json:"status"`
}

// writeJSON encodes v as the response body with the given status code,
// matching the teacher's convention of never emitting a trailing blank
// line unless the encoder already produced one.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// handleTime serves GET /time and GET /: the current epoch-millisecond
// time from the core timebase, gated on readiness when REQUIRE_SYNC is
// set.
func handleTime(s *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Config.RequireSync && !s.Readiness.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, timeResponse{
				Message: s.Config.MsgError,
				Status:  http.StatusServiceUnavailable,
				Data:    0,
				Error:   s.Config.ErrorTextNoSync,
			})
			return
		}

		ms, ok := s.Timebase.Now()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, timeResponse{
				Message: s.Config.MsgError,
				Status:  http.StatusServiceUnavailable,
				Data:    0,
				Error:   s.Config.ErrorTextNoSync,
			})
			return
		}

		writeJSON(w, http.StatusOK, timeResponse{
			Message: s.Config.MsgOK,
			Status:  http.StatusOK,
			Data:    ms,
		})
	}
}

// handleHealthz always reports ok: liveness, not readiness.
func handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

// handleReadyz reports ready once the readiness latch has flipped,
// else 503. startupz shares the exact same semantics.
func handleReadyz(s *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Readiness.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
	}
}

// handleNotFound renders the 404 contract for unknown paths.
func handleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
	}
}
