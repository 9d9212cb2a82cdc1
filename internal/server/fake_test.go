package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/speech"
)

// fakeBackend records what it was asked to speak. With hold set, handles
// keep running until stopped.
type fakeBackend struct {
	mu        sync.Mutex
	voices    []speech.Voice
	voicesErr error
	startErr  error
	hold      bool
	spoken    []string
	settings  []speech.Settings
	handles   []*speech.Handle
}

func (b *fakeBackend) Kind() speech.Kind { return speech.KindEspeak }

func (b *fakeBackend) Voices(context.Context) ([]speech.Voice, error) {
	return b.voices, b.voicesErr
}

func (b *fakeBackend) Start(_ context.Context, text string, s speech.Settings) (*speech.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return nil, b.startErr
	}
	b.spoken = append(b.spoken, text)
	b.settings = append(b.settings, s)

	var h *speech.Handle
	h = speech.NewHandle(func() error {
		h.Finish(nil)
		return nil
	})
	if !b.hold {
		h.Finish(nil)
	}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBackend) started() ([]string, []speech.Settings, []*speech.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.spoken...), append([]speech.Settings(nil), b.settings...), append([]*speech.Handle(nil), b.handles...)
}

func newTestServer(b *fakeBackend, cfg Config, opts ...Option) *Server {
	base := []Option{
		WithEngine(func() *speech.Engine { return speech.NewEngine(speech.WithBackend(b)) }),
		WithLogger(log.New(io.Discard)),
	}
	return New(cfg, append(base, opts...)...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
