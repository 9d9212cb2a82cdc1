package speech

import (
	"sync"
	"sync/atomic"
)

// Handle is a cancellable reference to an in-progress speak operation.
// It is safe for concurrent use.
type Handle struct {
	stop     func() error
	done     chan struct{}
	err      error
	finish   sync.Once
	stopOnce sync.Once
	stopErr  error
	stopped  atomic.Bool
}

// NewHandle returns a running handle. stop interrupts the underlying speech
// and may be nil when the operation cannot be interrupted. The producer must
// call Finish exactly when the speech has ended.
func NewHandle(stop func() error) *Handle {
	return &Handle{
		stop: stop,
		done: make(chan struct{}),
	}
}

// completedHandle returns a handle that has already finished successfully.
func completedHandle() *Handle {
	h := NewHandle(nil)
	h.Finish(nil)
	return h
}

// Finish records the outcome of the speech and releases waiters. Only the
// first call has any effect. Errors caused by Stop are discarded.
func (h *Handle) Finish(err error) {
	h.finish.Do(func() {
		if h.stopped.Load() {
			err = nil
		}
		h.err = err
		close(h.done)
	})
}

// Done is closed when the speech has ended.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the speech ends and returns its error. A stopped handle
// returns nil.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Stop interrupts the speech and waits for it to end. Stopping a finished or
// already stopped handle is a no-op.
func (h *Handle) Stop() error {
	select {
	case <-h.done:
		return nil
	default:
	}
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		if h.stop != nil {
			h.stopErr = h.stop()
		}
	})
	if h.stopErr != nil {
		return h.stopErr
	}
	<-h.done
	return nil
}

// Stopped reports whether Stop interrupted the speech.
func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}
