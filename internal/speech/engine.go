package speech

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Engine is the façade callers speak through. It selects one backend on
// first use and keeps it for its lifetime. Configure and Settings are safe
// for concurrent use; list and speak calls are expected to be serialized by
// the caller.
type Engine struct {
	runner      Runner
	platform    Platform
	forced      *Kind
	openLibrary func() (Backend, error)

	selectOnce sync.Once
	backend    Backend
	initErr    error

	mu       sync.RWMutex
	settings Settings
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner sets the runner used by the command-line backends.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithPlatform overrides the detected host platform.
func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

// WithKind forces a backend instead of probing.
func WithKind(k Kind) Option {
	return func(e *Engine) { e.forced = &k }
}

// WithLibrary sets how the speech library is opened.
func WithLibrary(open func() (Library, error)) Option {
	return func(e *Engine) {
		e.openLibrary = func() (Backend, error) {
			lib, err := open()
			if err != nil {
				return nil, err
			}
			return newLibraryBackend(lib), nil
		}
	}
}

// WithBackend uses b as the selected backend.
func WithBackend(b Backend) Option {
	return func(e *Engine) {
		e.selectOnce.Do(func() { e.backend = b })
	}
}

// NewEngine creates an engine. No probing happens until the first call that
// needs a backend.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		runner:      NewExecRunner(DefaultCommandTimeout),
		platform:    CurrentPlatform(),
		openLibrary: openSharedLibrary,
		settings:    DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// selected returns the backend, probing on first call.
func (e *Engine) selected() Backend {
	e.selectOnce.Do(e.selectBackend)
	return e.backend
}

// selectBackend tries the speech library first and otherwise falls back to
// the platform's command-line tool. A library failure is kept for
// diagnostics rather than returned.
func (e *Engine) selectBackend() {
	if e.forced != nil {
		e.backend = e.backendFor(*e.forced)
		log.Debug("Speech backend forced", "backend", e.backend.Kind())
		return
	}

	b, err := e.openLibrary()
	if err == nil {
		e.backend = b
		log.Debug("Speech backend selected", "backend", KindLibrary)
		return
	}
	e.initErr = err
	log.Debug("Speech library unavailable", "error", err)

	e.backend = e.backendFor(e.platform.NativeKind())
	log.Debug("Speech backend selected", "backend", e.backend.Kind(), "platform", e.platform)
}

func (e *Engine) backendFor(k Kind) Backend {
	switch k {
	case KindLibrary:
		b, err := e.openLibrary()
		if err != nil {
			e.initErr = err
			return &unavailableBackend{platform: e.platform, kind: KindLibrary, cause: err}
		}
		return b
	case KindSay:
		return newSayBackend(e.runner, e.platform)
	case KindEspeak:
		return newEspeakBackend(e.runner, e.platform)
	case KindPowerShell:
		return newPowerShellBackend(e.runner, e.platform)
	default:
		return &unavailableBackend{platform: e.platform, kind: KindUnavailable, cause: e.initErr}
	}
}

// Configure replaces the voice and speed used by later speak calls.
func (e *Engine) Configure(s Settings) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	return e
}

// Settings returns the current configuration.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Kind returns the selected backend kind.
func (e *Engine) Kind() Kind {
	return e.selected().Kind()
}

// InitError returns why the speech library could not be loaded, if it was
// tried and failed.
func (e *Engine) InitError() error {
	e.selected()
	return e.initErr
}

// Voices lists the selected backend's voices in backend order.
func (e *Engine) Voices(ctx context.Context) ([]Voice, error) {
	return e.selected().Voices(ctx)
}

// Start begins speaking text with the configured settings. The returned
// handle can stop the speech. Empty text returns an already finished handle.
func (e *Engine) Start(ctx context.Context, text string) (*Handle, error) {
	if text == "" {
		return completedHandle(), nil
	}
	return e.selected().Start(ctx, text, e.Settings())
}

// Speak speaks text and blocks until it finishes. Cancelling ctx stops the
// speech and returns ctx's error.
func (e *Engine) Speak(ctx context.Context, text string) error {
	h, err := e.Start(ctx, text)
	if err != nil {
		return err
	}
	select {
	case <-h.Done():
		return h.Wait()
	case <-ctx.Done():
		if err := h.Stop(); err != nil {
			return err
		}
		return ctx.Err()
	}
}
