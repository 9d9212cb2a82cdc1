package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
)

// Library is an in-process speech synthesizer. Rates are in the library's
// own units. Implementations need not be safe for concurrent Speak calls,
// but Stop must be callable while Wait is blocked.
type Library interface {
	Voices() ([]LibraryVoice, error)
	Rate() (int, error)
	SetRate(rate int) error
	Voice() (string, error)
	SetVoice(id string) error

	// Speak queues text for playback and returns without waiting.
	Speak(text string) error
	// Wait blocks until queued speech has played or Stop cancelled it.
	Wait() error
	// Stop cancels queued speech. Speech queued after Stop still plays.
	Stop() error
	Close() error
}

// LibraryVoice is a voice as registered with a Library. Languages holds the
// raw language tags in priority order.
type LibraryVoice struct {
	ID        string
	Name      string
	Languages [][]byte
}

// locale decodes the first language tag, dropping bytes that are not UTF-8.
func (v LibraryVoice) locale() string {
	if len(v.Languages) == 0 {
		return ""
	}
	return strings.ToValidUTF8(string(v.Languages[0]), "")
}

var (
	sharedLibraryOnce    sync.Once
	sharedLibraryBackend *libraryBackend
	sharedLibraryErr     error
)

// openSharedLibrary loads the platform speech library once per process.
// Every engine speaking through the library shares the same backend so the
// library's defaults are captured only once.
func openSharedLibrary() (Backend, error) {
	sharedLibraryOnce.Do(func() {
		lib, err := openLibrary()
		if err != nil {
			sharedLibraryErr = err
			return
		}
		sharedLibraryBackend = newLibraryBackend(lib)
	})
	if sharedLibraryErr != nil {
		return nil, sharedLibraryErr
	}
	return sharedLibraryBackend, nil
}

// libraryBackend speaks through a Library.
type libraryBackend struct {
	lib Library

	// speaking serializes configure-and-speak cycles on the library.
	speaking sync.Mutex

	baseOnce  sync.Once
	baseRate  int
	baseVoice string
	baseErr   error
}

func newLibraryBackend(lib Library) *libraryBackend {
	return &libraryBackend{lib: lib}
}

func (b *libraryBackend) Kind() Kind { return KindLibrary }

// Voices lists the library's registered voices.
func (b *libraryBackend) Voices(context.Context) ([]Voice, error) {
	return b.voices()
}

func (b *libraryBackend) voices() ([]Voice, error) {
	raw, err := b.lib.Voices()
	if err != nil {
		return nil, Failure(KindLibrary, "Failed to list voices via the speech library", "", err)
	}
	voices := make([]Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, Voice{ID: v.ID, Name: v.Name, Locale: v.locale()})
	}
	return voices, nil
}

// Start configures the library and speaks text on a separate goroutine.
// A second Start waits until the previous speech has ended.
func (b *libraryBackend) Start(_ context.Context, text string, s Settings) (*Handle, error) {
	if text == "" {
		return completedHandle(), nil
	}

	b.speaking.Lock()
	if err := b.configure(s); err != nil {
		b.speaking.Unlock()
		return nil, err
	}

	// gate orders the stopped check and the enqueue against Stop, which
	// only cancels speech already queued.
	var (
		gate    sync.Mutex
		stopped bool
	)
	h := NewHandle(func() error {
		gate.Lock()
		defer gate.Unlock()
		stopped = true
		return b.lib.Stop()
	})
	go func() {
		defer b.speaking.Unlock()
		gate.Lock()
		if stopped {
			gate.Unlock()
			h.Finish(nil)
			return
		}
		err := b.lib.Speak(text)
		gate.Unlock()
		if err == nil {
			err = b.lib.Wait()
		}
		if err != nil {
			h.Finish(Failure(KindLibrary, "Failed to speak via the speech library", "", err))
			return
		}
		h.Finish(nil)
	}()
	return h, nil
}

// configure applies s relative to the library defaults seen on first use,
// so repeated requests never compound the rate.
func (b *libraryBackend) configure(s Settings) error {
	b.baseOnce.Do(func() {
		b.baseRate, b.baseErr = b.lib.Rate()
		if b.baseErr != nil {
			return
		}
		b.baseVoice, b.baseErr = b.lib.Voice()
	})
	if b.baseErr != nil {
		return Failure(KindLibrary, "Failed to read speech library defaults", "", b.baseErr)
	}

	if err := b.lib.SetRate(LibraryRate(b.baseRate, s.Speed)); err != nil {
		return Failure(KindLibrary, "Failed to set speech rate", "", err)
	}

	voice := b.baseVoice
	if s.Voice != "" {
		voices, err := b.voices()
		if err != nil {
			return err
		}
		if v, ok := MatchVoice(voices, s.Voice); ok {
			voice = v.ID
		} else {
			logNoMatch(voices, s.Voice)
		}
	}
	if voice == "" {
		return nil
	}
	if err := b.lib.SetVoice(voice); err != nil {
		return Failure(KindLibrary, "Failed to select voice "+voice, "", err)
	}
	return nil
}

// MatchVoice returns the first voice whose name contains query, ignoring
// case, or whose ID contains query literally. List order decides ties.
func MatchVoice(voices []Voice, query string) (Voice, bool) {
	q := strings.ToLower(query)
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(v.ID, query) {
			return v, true
		}
	}
	return Voice{}, false
}

// SuggestVoice returns the voice name closest to query, or "" when nothing
// resembles it.
func SuggestVoice(voices []Voice, query string) string {
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = v.Name
	}
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func logNoMatch(voices []Voice, query string) {
	if s := SuggestVoice(voices, query); s != "" {
		log.Warn("No voice matched, keeping the default voice", "voice", query, "suggestion", s)
		return
	}
	log.Warn("No voice matched, keeping the default voice", "voice", query)
}

// errNoLibrary is returned by openLibrary on platforms without a binding.
var errNoLibrary = errors.New("no speech library binding for this platform")
