package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/aloud/internal/content"
	"github.com/dgnsrekt/aloud/internal/speech"
)

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeBackend{}, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestVoices(t *testing.T) {
	b := &fakeBackend{voices: []speech.Voice{
		{ID: "en-us", Name: "en-us", Locale: "en"},
		{ID: "fr-fr", Name: "fr-fr", Locale: "fr"},
	}}
	s := newTestServer(b, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/voices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp VoicesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Voices) != 2 || resp.Voices[1].ID != "fr-fr" {
		t.Errorf("voices = %+v", resp.Voices)
	}
}

func TestVoicesEmptyList(t *testing.T) {
	s := newTestServer(&fakeBackend{}, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/voices", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"voices":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", speech.Unavailable(speech.KindUnavailable, "install espeak", nil), http.StatusServiceUnavailable},
		{"failure", speech.Failure(speech.KindEspeak, "Failed to list voices via 'espeak-ng'", "boom", nil), http.StatusInternalServerError},
		{"invalid", speech.InvalidInput("bad"), http.StatusBadRequest},
		{"other", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeBackend{voicesErr: tt.err}, DefaultConfig())
			rec := do(t, s.Handler(), http.MethodGet, "/voices", "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Detail != tt.err.Error() {
				t.Errorf("detail = %q, want %q", resp.Detail, tt.err.Error())
			}
		})
	}
}

func TestReadText(t *testing.T) {
	b := &fakeBackend{}
	s := newTestServer(b, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodPost, "/read", `{"text":"hello there","voice":"Alex","speed":1.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "started" {
		t.Errorf("status = %q, want started", resp.Status)
	}

	spoken, settings, _ := b.started()
	if len(spoken) != 1 || spoken[0] != "hello there" {
		t.Fatalf("spoken = %q", spoken)
	}
	if settings[0].Voice != "Alex" || settings[0].Speed != 1.5 {
		t.Errorf("settings = %+v", settings[0])
	}
}

func TestReadDefaultSpeed(t *testing.T) {
	b := &fakeBackend{}
	s := newTestServer(b, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodPost, "/read", `{"text":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	_, settings, _ := b.started()
	if settings[0].Speed != speech.DefaultSpeed {
		t.Errorf("speed = %v, want %v", settings[0].Speed, speech.DefaultSpeed)
	}
}

func TestReadValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"neither", `{}`, "Provide exactly one of 'text' or 'url'."},
		{"both", `{"text":"a","url":"http://example.com"}`, "Provide exactly one of 'text' or 'url'."},
		{"zero speed", `{"text":"a","speed":0}`, "Speed must be greater than 0."},
		{"negative speed", `{"text":"a","speed":-1}`, "Speed must be greater than 0."},
		{"bad json", `{"text":`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			s := newTestServer(b, DefaultConfig())
			rec := do(t, s.Handler(), http.MethodPost, "/read", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.detail) {
				t.Errorf("body = %s, want %q", rec.Body, tt.detail)
			}
			if spoken, _, _ := b.started(); len(spoken) != 0 {
				t.Errorf("spoke %q on invalid request", spoken)
			}
		})
	}
}

func TestReadBodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 16
	s := newTestServer(&fakeBackend{}, cfg)
	rec := do(t, s.Handler(), http.MethodPost, "/read", `{"text":"`+strings.Repeat("a", 64)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestReadURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><p>Page body text.</p><script>x()</script></body></html>`))
	}))
	defer page.Close()

	b := &fakeBackend{}
	fetcher := content.NewFetcher(content.WithRate(0))
	s := newTestServer(b, DefaultConfig(), WithFetcher(fetcher))

	rec := do(t, s.Handler(), http.MethodPost, "/read", `{"url":"`+page.URL+`/article"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	spoken, _, _ := b.started()
	if len(spoken) != 1 || spoken[0] != "Page body text." {
		t.Errorf("spoken = %q", spoken)
	}

	rec = do(t, s.Handler(), http.MethodPost, "/read", `{"url":"`+page.URL+`/missing"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Detail, content.ErrorPrefix) {
		t.Errorf("detail = %q, want prefix %q", resp.Detail, content.ErrorPrefix)
	}
}

func TestReadBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", speech.Unavailable(speech.KindUnavailable, "install espeak", nil), http.StatusServiceUnavailable},
		{"failure", speech.Failure(speech.KindEspeak, "Failed to speak via 'espeak-ng'", "", errors.New("exit status 1")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeBackend{startErr: tt.err}, DefaultConfig())
			rec := do(t, s.Handler(), http.MethodPost, "/read", `{"text":"hi"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestReadReplacesAndStop(t *testing.T) {
	b := &fakeBackend{hold: true}
	s := newTestServer(b, DefaultConfig())
	h := s.Handler()

	for _, text := range []string{"first", "second"} {
		rec := do(t, h, http.MethodPost, "/read", `{"text":"`+text+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("read %s: status = %d", text, rec.Code)
		}
	}

	_, _, handles := b.started()
	if len(handles) != 2 {
		t.Fatalf("handles = %d, want 2", len(handles))
	}
	if !handles[0].Stopped() {
		t.Error("first playback was not stopped by the second read")
	}
	if handles[1].Stopped() {
		t.Error("second playback stopped early")
	}
	if !s.Player().Active() {
		t.Error("player not active")
	}

	rec := do(t, h, http.MethodPost, "/stop", "")
	if !strings.Contains(rec.Body.String(), `"stopped"`) {
		t.Errorf("stop body = %s", rec.Body)
	}
	if !handles[1].Stopped() {
		t.Error("second playback still running after stop")
	}

	rec = do(t, h, http.MethodPost, "/stop", "")
	if !strings.Contains(rec.Body.String(), `"idle"`) {
		t.Errorf("second stop body = %s", rec.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeBackend{}, DefaultConfig())
	rec := do(t, s.Handler(), http.MethodGet, "/read", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	t.Run("preflight", func(t *testing.T) {
		s := newTestServer(&fakeBackend{}, DefaultConfig())
		req := httptest.NewRequest(http.MethodOptions, "/read", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
			t.Errorf("Allow-Headers = %q", got)
		}
	})

	t.Run("restricted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AllowedOrigins = []string{" http://allowed.test", ""}
		s := newTestServer(&fakeBackend{}, cfg)

		for origin, want := range map[string]string{
			"http://allowed.test": "http://allowed.test",
			"http://other.test":   "",
		} {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", origin)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != want {
				t.Errorf("origin %s: Allow-Origin = %q, want %q", origin, got, want)
			}
		}
	})
}

func TestMetrics(t *testing.T) {
	s := newTestServer(&fakeBackend{}, DefaultConfig())
	h := s.Handler()
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`aloud_http_requests_total{code="200",route="GET /health"} 1`,
		"aloud_speech_active",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics = false
	s := newTestServer(&fakeBackend{}, cfg)
	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	b := &fakeBackend{hold: true}
	s := newTestServer(b, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/read", "application/json", strings.NewReader(`{"text":"long"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, _, handles := b.started()
	if !handles[0].Stopped() {
		t.Error("playback not stopped on shutdown")
	}
}
