package server

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/speech"
)

// Player owns the single active playback of the process. Starting new
// speech stops the previous one first, so two streams never overlap.
type Player struct {
	mu      sync.Mutex
	current *speech.Handle
	kind    speech.Kind

	logger  *log.Logger
	metrics *Metrics
}

// NewPlayer creates an idle player. metrics may be nil.
func NewPlayer(logger *log.Logger, metrics *Metrics) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{logger: logger, metrics: metrics}
}

// Play stops any current playback and then calls start, keeping the
// returned handle as the current one. The lock is held throughout so a
// concurrent Stop or Play cannot interleave.
func (p *Player) Play(kind speech.Kind, start func() (*speech.Handle, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		if err := p.current.Stop(); err != nil {
			p.logger.Warn("Failed to stop previous playback", "error", err)
		}
		p.current = nil
	}

	h, err := start()
	if err != nil {
		return err
	}
	p.current, p.kind = h, kind
	p.metrics.speechStarted()
	go p.watch(kind, h)
	return nil
}

// watch clears h once it ends and records the outcome.
func (p *Player) watch(kind speech.Kind, h *speech.Handle) {
	err := h.Wait()
	outcome := outcomeCompleted
	switch {
	case h.Stopped():
		outcome = outcomeStopped
	case err != nil:
		outcome = outcomeFailed
		p.logger.Error("Speech failed", "backend", kind, "error", err)
	}

	p.mu.Lock()
	if p.current == h {
		p.current = nil
	}
	active := p.current != nil
	p.mu.Unlock()

	p.metrics.speechFinished(kind.String(), outcome, active)
	p.logger.Debug("Speech finished", "backend", kind, "outcome", outcome)
}

// Stop interrupts the current playback. It reports false when nothing was
// playing; stopping an idle player is not an error. A failed stop is a
// BackendFailure tagged with the playing backend.
func (p *Player) Stop() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.current
	if h == nil {
		return false, nil
	}
	p.current = nil
	select {
	case <-h.Done():
		return false, nil
	default:
	}
	if err := h.Stop(); err != nil {
		return true, speech.Failure(p.kind, "Failed to stop speech", "", err)
	}
	return true, nil
}

// Active reports whether speech is playing.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	select {
	case <-p.current.Done():
		return false
	default:
		return true
	}
}
