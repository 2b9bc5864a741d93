package httpapi_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/samansohani78/NTP-Time-JSON-API/config"
	"github.com/samansohani78/NTP-Time-JSON-API/httpapi"
	"github.com/samansohani78/NTP-Time-JSON-API/metrics"
	"github.com/samansohani78/NTP-Time-JSON-API/ntp"
	"github.com/samansohani78/NTP-Time-JSON-API/timebase"
)

// newTestState builds a State with its own isolated Prometheus registry
// and Timebase, so tests never share global registration state.
func newTestState(requireSync bool) *httpapi.State {
	reg := prometheus.NewRegistry()
	return &httpapi.State{
		Config: config.Config{
			RequireSync:     requireSync,
			MsgOK:           "done",
			MsgError:        "error",
			ErrorTextNoSync: "Service not yet synchronized with NTP",
		},
		Timebase:  timebase.New(true),
		Readiness: &timebase.Readiness{},
		Stats:     ntp.NewStats([]string{"s1"}),
		Metrics:   metrics.New(reg),
		Registry:  reg,
		Log:       zap.NewNop(),
	}
}

// setupServer starts an HTTP server around s's router and returns its
// address; it shuts down automatically when the test finishes.
func setupServer(t *testing.T, s *httpapi.State) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen on any port: %v", err)
	}
	addr := listener.Addr().String()

	srv := &http.Server{Handler: httpapi.NewRouter(s)}
	go srv.Serve(listener)
	t.Cleanup(func() { srv.Close() })

	return addr
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body from %s: %v", url, err)
	}
	return resp.StatusCode, string(b)
}

func TestTimeNotReadyReturns503(t *testing.T) {
	s := newTestState(true)
	addr := setupServer(t, s)

	status, body := httpGet(t, fmt.Sprintf("http://%s/time", addr))
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body=%s", status, body)
	}
}

func TestTimeReadyReturns200WithAdvancingData(t *testing.T) {
	s := newTestState(true)
	s.Timebase.Install(1_700_000_000_000, time.Now())
	s.Readiness.MarkReady()
	addr := setupServer(t, s)

	status, body := httpGet(t, fmt.Sprintf("http://%s/time", addr))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", status, body)
	}

	var parsed struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
		Data    int64  `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("body did not parse as JSON: %v (%s)", err, body)
	}
	if parsed.Status != http.StatusOK || parsed.Data < 1_700_000_000_000 {
		t.Fatalf("unexpected body: %+v", parsed)
	}
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := newTestState(true)
	addr := setupServer(t, s)

	status, _ := httpGet(t, fmt.Sprintf("http://%s/healthz", addr))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
}

func TestReadyzReflectsLatch(t *testing.T) {
	s := newTestState(true)
	addr := setupServer(t, s)

	status, _ := httpGet(t, fmt.Sprintf("http://%s/readyz", addr))
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 before readiness", status)
	}

	s.Readiness.MarkReady()
	status, _ = httpGet(t, fmt.Sprintf("http://%s/readyz", addr))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 after readiness", status)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s := newTestState(true)
	addr := setupServer(t, s)

	status, _ := httpGet(t, fmt.Sprintf("http://%s/no-such-path", addr))
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	s := newTestState(true)
	addr := setupServer(t, s)

	status, body := httpGet(t, fmt.Sprintf("http://%s/metrics", addr))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(body) == 0 {
		t.Fatalf("expected a non-empty metrics body")
	}
}
