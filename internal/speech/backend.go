package speech

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Backend is one concrete mechanism for listing voices and speaking.
type Backend interface {
	// Kind identifies the backend.
	Kind() Kind

	// Voices lists the voices the backend can use, in backend order.
	Voices(ctx context.Context) ([]Voice, error)

	// Start begins speaking text with the given settings and returns a
	// handle to the running speech. Empty text yields a finished handle.
	Start(ctx context.Context, text string, s Settings) (*Handle, error)
}

// findTool returns the first of names present on the search path.
func findTool(r Runner, names ...string) (string, error) {
	var errs []error
	for _, name := range names {
		path, err := r.LookPath(name)
		if err == nil {
			return path, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// toolName returns the bare command name of a resolved tool path.
func toolName(tool string) string {
	base := filepath.Base(tool)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// textArg keeps text that starts with a dash from being parsed as an option
// by padding it with a space. Other text is passed unchanged.
func textArg(text string) string {
	if strings.HasPrefix(text, "-") {
		return " " + text
	}
	return text
}

// toolFailure wraps err as a BackendFailure, lifting the tool's captured
// output into the error.
func toolFailure(kind Kind, message string, err error) *Error {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return Failure(kind, message, cmdErr.Output, cmdErr.Err)
	}
	return Failure(kind, message, "", err)
}

// runTool runs a listing command and maps a failed run to a BackendFailure.
func runTool(ctx context.Context, r Runner, kind Kind, tool string, args ...string) ([]byte, error) {
	out, err := r.Output(ctx, tool, args...)
	if err != nil {
		return nil, toolFailure(kind, fmt.Sprintf("Failed to list voices via '%s'", toolName(tool)), err)
	}
	return out, nil
}

// startTool launches a speaking command and maps its exit to the handle.
func startTool(r Runner, kind Kind, stdin string, tool string, args ...string) (*Handle, error) {
	return startSequence(r, kind, stdin, tool, [][]string{args})
}

// startSequence runs one command per argv in order under a single handle.
// Stopping the handle terminates the running command and skips the rest.
func startSequence(r Runner, kind Kind, stdin string, tool string, argvs [][]string) (*Handle, error) {
	if len(argvs) == 0 {
		return completedHandle(), nil
	}
	message := fmt.Sprintf("Failed to speak via '%s'", toolName(tool))
	p, err := r.Start(stdin, tool, argvs[0]...)
	if err != nil {
		return nil, Failure(kind, message, "", err)
	}

	var (
		mu      sync.Mutex
		current = p
		stopped bool
	)
	h := NewHandle(func() error {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		return current.Stop()
	})

	go func() {
		for i := 1; ; i++ {
			if err := p.Wait(); err != nil {
				h.Finish(toolFailure(kind, message, err))
				return
			}
			if i == len(argvs) {
				break
			}

			mu.Lock()
			if stopped {
				mu.Unlock()
				break
			}
			next, err := r.Start(stdin, tool, argvs[i]...)
			if err != nil {
				mu.Unlock()
				h.Finish(Failure(kind, message, "", err))
				return
			}
			current, p = next, next
			mu.Unlock()
		}
		h.Finish(nil)
	}()
	return h, nil
}

// unavailableBackend fails every call with a remediation hint.
type unavailableBackend struct {
	platform Platform
	kind     Kind
	cause    error
}

func (b *unavailableBackend) Kind() Kind { return KindUnavailable }

func (b *unavailableBackend) err() error {
	return Unavailable(KindUnavailable, installHint(b.kind, b.platform), b.cause)
}

func (b *unavailableBackend) Voices(context.Context) ([]Voice, error) {
	return nil, b.err()
}

func (b *unavailableBackend) Start(_ context.Context, text string, _ Settings) (*Handle, error) {
	if text == "" {
		return completedHandle(), nil
	}
	return nil, b.err()
}
