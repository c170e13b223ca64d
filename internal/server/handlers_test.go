package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/vberezko/azimut/internal/config"
	"github.com/vberezko/azimut/internal/probe"
)

// fakeProber satisfies Prober without any network activity.
type fakeProber struct {
	mu     sync.Mutex
	snap   *probe.Snapshot
	err    error
	cached *probe.Snapshot
	calls  int
	opts   probe.Options
}

func (f *fakeProber) Probe(_ context.Context, _ string, opts probe.Options) (*probe.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}

	return f.snap, nil
}

func (f *fakeProber) CachedSnapshot(string) (*probe.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cached, f.cached != nil
}

func (f *fakeProber) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cached = nil
}

func okSnapshot() *probe.Snapshot {
	return &probe.Snapshot{
		Name:    "Example",
		MOTD:    []string{},
		Players: []string{},
		Online:  3,
		Max:     20,
	}
}

// newTestServer builds a Server around the fake prober, without storage,
// icons or GeoIP. Only the status handler paths are exercised here.
func newTestServer(t *testing.T, p Prober, allowed ...string) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.AllowedHosts = allowed

	srv := New(nil, p, nil, nil, cfg)
	t.Cleanup(srv.StopWorkers)

	return srv
}

func TestHandleStatusStripsColorCodes(t *testing.T) {
	snap := okSnapshot()
	snap.MOTD = []string{"§aGreen §lline", "plain"}
	fp := &fakeProber{snap: snap}
	srv := newTestServer(t, fp)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=play.example.net", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Name      string   `json:"name"`
		MOTD      []string `json:"motd"`
		MOTDClean []string `json:"motd_clean"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Name != "Example" {
		t.Errorf("name = %q, want %q", body.Name, "Example")
	}
	want := []string{"Green line", "plain"}
	if len(body.MOTDClean) != 2 || body.MOTDClean[0] != want[0] || body.MOTDClean[1] != want[1] {
		t.Errorf("motd_clean = %v, want %v", body.MOTDClean, want)
	}
	if len(body.MOTD) != 2 || body.MOTD[0] != "§aGreen §lline" {
		t.Errorf("motd should keep its decoration codes, got %v", body.MOTD)
	}
}

func TestHandleStatusRequiresHost(t *testing.T) {
	fp := &fakeProber{snap: okSnapshot()}
	srv := newTestServer(t, fp)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if fp.calls != 0 {
		t.Errorf("prober ran %d times, want 0", fp.calls)
	}
}

func TestHandleStatusAllowlist(t *testing.T) {
	fp := &fakeProber{snap: okSnapshot()}
	srv := newTestServer(t, fp, "play.example.net")

	cases := []struct {
		host string
		code int
	}{
		{"play.example.net", http.StatusOK},
		{"wss://play.example.net", http.StatusOK},
		{"wss://play.example.net:8443/status", http.StatusOK},
		{"evil.example.net", http.StatusForbidden},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/status?host="+url.QueryEscape(tc.host), nil)
		srv.handleStatus(rec, req)

		if rec.Code != tc.code {
			t.Errorf("host %q: status = %d, want %d", tc.host, rec.Code, tc.code)
		}
	}
}

func TestHandleStatusErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"timeout", &probe.TimeoutError{Target: "wss://a.example.net", Timeout: time.Second}, http.StatusGatewayTimeout},
		{"transport", &probe.TransportError{Target: "wss://a.example.net", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"premature close", &probe.PrematureCloseError{Target: "wss://a.example.net", Code: 1001, Reason: "bye"}, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeProber{err: tc.err})

			rec := httptest.NewRecorder()
			srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net", nil))

			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body["error"] == "" {
				t.Error("expected an error message in the body")
			}
		})
	}
}

func TestHandleStatusQueryOptions(t *testing.T) {
	fp := &fakeProber{snap: okSnapshot()}
	srv := newTestServer(t, fp)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net&fresh=1&icon=0", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !fp.opts.BypassCache {
		t.Error("fresh=1 should bypass the cache")
	}
	if fp.opts.FetchIcon {
		t.Error("icon=0 should disable icon fetching")
	}
}

func TestHandleStatusOmitsIconBytes(t *testing.T) {
	snap := okSnapshot()
	snap.Icon = bytes.Repeat([]byte{0xAB}, probe.IconSize)
	snap.HasIcon = true
	srv := newTestServer(t, &fakeProber{snap: snap})

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["icon"]; ok {
		t.Error("raw icon bytes leaked into the response")
	}
	if body["has_icon"] != true {
		t.Error("has_icon flag missing from the response")
	}
}

func TestHandleStatusPersistsOnlyFreshSessions(t *testing.T) {
	snap := okSnapshot()
	fp := &fakeProber{snap: snap, cached: snap}
	srv := newTestServer(t, fp)

	// Cache hit, nothing to persist
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := len(srv.queue); got != 0 {
		t.Fatalf("queued jobs after cache hit = %d, want 0", got)
	}

	// fresh=1 forces a session and with it a persistence job
	rec = httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net&fresh=1", nil))
	if got := len(srv.queue); got != 1 {
		t.Fatalf("queued jobs after fresh probe = %d, want 1", got)
	}

	job := <-srv.queue
	if job.Target != "wss://a.example.net" {
		t.Errorf("job target = %q, want %q", job.Target, "wss://a.example.net")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	fp := &fakeProber{snap: okSnapshot()}

	cfg := &config.Config{}
	cfg.RateLimit.HardLimitCount = 2
	cfg.RateLimit.HardLimitWin = time.Minute

	srv := New(nil, fp, nil, nil, cfg)
	t.Cleanup(srv.StopWorkers)

	handler := srv.Run()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/status?host=a.example.net", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first two requests = %v, want them to pass", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AdminAuthMiddleware("sesame", next)

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"valid token", "Bearer sesame", http.StatusNoContent},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/api/cache", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.code {
				t.Errorf("status = %d, want %d", rec.Code, tc.code)
			}
		})
	}
}

func TestHostPart(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"play.example.net", "play.example.net"},
		{"wss://play.example.net", "play.example.net"},
		{"wss://play.example.net:8443", "play.example.net"},
		{"ws://play.example.net/status", "play.example.net"},
		{"play.example.net:25565", "play.example.net"},
	}

	for _, tc := range cases {
		if got := hostPart(tc.in); got != tc.want {
			t.Errorf("hostPart(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := GetRealIP(req, false); got != "10.0.0.9" {
		t.Errorf("untrusted proxy: got %q, want %q", got, "10.0.0.9")
	}
	if got := GetRealIP(req, true); got != "203.0.113.7" {
		t.Errorf("trusted proxy: got %q, want %q", got, "203.0.113.7")
	}
}
