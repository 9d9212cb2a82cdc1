package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
)

type fakeCall struct {
	stdin string
	name  string
	args  []string
}

// fakeRunner resolves tools from a fixed table and records every command.
type fakeRunner struct {
	mu        sync.Mutex
	paths     map[string]string
	output    []byte
	outputErr error
	waitErr   error
	block     bool
	calls     []fakeCall
	procs     []*fakeProcess
}

func newFakeRunner(tools ...string) *fakeRunner {
	r := &fakeRunner{paths: make(map[string]string)}
	for _, t := range tools {
		r.paths[t] = "/usr/bin/" + t
	}
	return r
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := r.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

func (r *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fakeCall{name: name, args: args})
	return r.output, r.outputErr
}

func (r *fakeRunner) Start(stdin string, name string, args ...string) (Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fakeCall{stdin: stdin, name: name, args: args})
	p := &fakeProcess{release: make(chan struct{}), err: r.waitErr}
	if !r.block {
		p.finish()
	}
	r.procs = append(r.procs, p)
	return p, nil
}

func (r *fakeRunner) lastCall() fakeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return fakeCall{}
	}
	return r.calls[len(r.calls)-1]
}

// fakeProcess runs until finished or stopped.
type fakeProcess struct {
	release chan struct{}
	once    sync.Once
	stopped atomic.Bool
	err     error
}

func (p *fakeProcess) finish() {
	p.once.Do(func() { close(p.release) })
}

func (p *fakeProcess) Wait() error {
	<-p.release
	if p.stopped.Load() {
		return &CommandError{Name: "fake", Err: errors.New("signal: terminated")}
	}
	return p.err
}

func (p *fakeProcess) Stop() error {
	p.stopped.Store(true)
	p.finish()
	return nil
}

// fakeLibrary is an in-memory Library.
type fakeLibrary struct {
	mu       sync.Mutex
	voices   []LibraryVoice
	rate     int
	voice    string
	spoken   []string
	rates    []int
	selected []string
	speakErr error

	// hold makes Wait block until Stop is called.
	hold   bool
	stopCh chan struct{}
	once   sync.Once
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		rate:  200,
		voice: "default",
		voices: []LibraryVoice{
			{ID: "com.apple.voice.Alex.en-US", Name: "Alex", Languages: [][]byte{[]byte("en_US")}},
			{ID: "com.apple.voice.Samantha.en-US", Name: "Samantha", Languages: [][]byte{[]byte("en_US")}},
			{ID: "com.apple.voice.Amelie.fr-CA", Name: "Amélie", Languages: [][]byte{[]byte("fr_CA")}},
		},
		stopCh: make(chan struct{}),
	}
}

func (l *fakeLibrary) Voices() ([]LibraryVoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.voices, nil
}

func (l *fakeLibrary) Rate() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate, nil
}

func (l *fakeLibrary) SetRate(rate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = rate
	l.rates = append(l.rates, rate)
	return nil
}

func (l *fakeLibrary) Voice() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.voice, nil
}

func (l *fakeLibrary) SetVoice(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voice = id
	l.selected = append(l.selected, id)
	return nil
}

func (l *fakeLibrary) Speak(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spoken = append(l.spoken, text)
	return l.speakErr
}

func (l *fakeLibrary) Wait() error {
	l.mu.Lock()
	hold := l.hold
	l.mu.Unlock()
	if hold {
		<-l.stopCh
	}
	return nil
}

func (l *fakeLibrary) Stop() error {
	l.once.Do(func() { close(l.stopCh) })
	return nil
}

func (l *fakeLibrary) Close() error { return nil }

func libraryOpener(l *fakeLibrary) func() (Library, error) {
	return func() (Library, error) { return l, nil }
}

func failingLibrary(err error) func() (Library, error) {
	return func() (Library, error) { return nil, err }
}
