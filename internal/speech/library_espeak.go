//go:build linux || darwin || freebsd

package speech

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/purego"
)

// espeak-ng C API constants.
const (
	espeakAudioOutputPlayback = 0
	espeakInitializeDontExit  = 0x8000
	espeakRate                = 1
	espeakPosCharacter        = 1
	espeakCharsUTF8           = 1
	espeakOK                  = 0
)

// espeakLibraryNames lists the shared objects tried, in order, on each GOOS.
var espeakLibraryNames = map[string][]string{
	"linux":   {"libespeak-ng.so.1", "libespeak-ng.so", "libespeak.so.1"},
	"freebsd": {"libespeak-ng.so.1", "libespeak-ng.so"},
	"darwin": {
		"libespeak-ng.dylib",
		"libespeak-ng.1.dylib",
		"/opt/homebrew/lib/libespeak-ng.dylib",
		"/usr/local/lib/libespeak-ng.dylib",
	},
}

// espeakVoice mirrors espeak_VOICE.
type espeakVoice struct {
	name       *byte
	languages  *byte
	identifier *byte
	gender     uint8
	age        uint8
	variant    uint8
	xx1        uint8
	score      int32
	spare      unsafe.Pointer
}

// espeakLibrary binds libespeak-ng with purego.
type espeakLibrary struct {
	mu     sync.Mutex
	handle uintptr

	initialize      func(output int32, buflength int32, path unsafe.Pointer, options int32) int32
	listVoices      func(spec unsafe.Pointer) unsafe.Pointer
	getParameter    func(param int32, current int32) int32
	setParameter    func(param int32, value int32, relative int32) int32
	setVoiceByName  func(name string) int32
	getCurrentVoice func() unsafe.Pointer
	synth           func(text string, size uintptr, position uint32, posType int32, end uint32, flags uint32, id unsafe.Pointer, user unsafe.Pointer) int32
	synchronize     func() int32
	cancel          func() int32
	terminate       func() int32
}

func openLibrary() (Library, error) {
	names := espeakLibraryNames[runtime.GOOS]
	var errs []error
	for _, name := range names {
		handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lib, err := bindEspeak(handle)
		if err != nil {
			_ = purego.Dlclose(handle)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Debug("Loaded speech library", "library", name)
		return lib, nil
	}
	if len(errs) == 0 {
		return nil, errNoLibrary
	}
	return nil, errors.Join(errs...)
}

// bindEspeak registers the espeak symbols and initializes audio playback.
// RegisterLibFunc panics on a missing symbol; that is reported as an error.
func bindEspeak(handle uintptr) (lib *espeakLibrary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("binding espeak-ng: %v", r)
		}
	}()

	l := &espeakLibrary{handle: handle}
	purego.RegisterLibFunc(&l.initialize, handle, "espeak_Initialize")
	purego.RegisterLibFunc(&l.listVoices, handle, "espeak_ListVoices")
	purego.RegisterLibFunc(&l.getParameter, handle, "espeak_GetParameter")
	purego.RegisterLibFunc(&l.setParameter, handle, "espeak_SetParameter")
	purego.RegisterLibFunc(&l.setVoiceByName, handle, "espeak_SetVoiceByName")
	purego.RegisterLibFunc(&l.getCurrentVoice, handle, "espeak_GetCurrentVoice")
	purego.RegisterLibFunc(&l.synth, handle, "espeak_Synth")
	purego.RegisterLibFunc(&l.synchronize, handle, "espeak_Synchronize")
	purego.RegisterLibFunc(&l.cancel, handle, "espeak_Cancel")
	purego.RegisterLibFunc(&l.terminate, handle, "espeak_Terminate")

	if rate := l.initialize(espeakAudioOutputPlayback, 0, nil, espeakInitializeDontExit); rate < 0 {
		return nil, fmt.Errorf("espeak_Initialize failed with %d", rate)
	}
	return l, nil
}

func (l *espeakLibrary) Voices() ([]LibraryVoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.listVoices(nil)
	if list == nil {
		return nil, errors.New("espeak_ListVoices returned no voices")
	}
	var voices []LibraryVoice
	for i := 0; ; i++ {
		p := *(**espeakVoice)(unsafe.Add(list, uintptr(i)*unsafe.Sizeof(uintptr(0))))
		if p == nil {
			break
		}
		voices = append(voices, LibraryVoice{
			ID:        goString(p.identifier),
			Name:      goString(p.name),
			Languages: espeakLanguages(p.languages),
		})
	}
	return voices, nil
}

func (l *espeakLibrary) Rate() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.getParameter(espeakRate, 1)), nil
}

func (l *espeakLibrary) SetRate(rate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rc := l.setParameter(espeakRate, int32(rate), 0); rc != espeakOK {
		return fmt.Errorf("espeak_SetParameter(rate=%d) failed with %d", rate, rc)
	}
	return nil
}

func (l *espeakLibrary) Voice() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := (*espeakVoice)(l.getCurrentVoice())
	if p == nil {
		return "", nil
	}
	if id := goString(p.identifier); id != "" {
		return id, nil
	}
	return goString(p.name), nil
}

func (l *espeakLibrary) SetVoice(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rc := l.setVoiceByName(id); rc != espeakOK {
		return fmt.Errorf("espeak_SetVoiceByName(%q) failed with %d", id, rc)
	}
	return nil
}

// Speak queues text; in playback mode espeak_Synth returns before the audio
// has played.
func (l *espeakLibrary) Speak(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rc := l.synth(text, uintptr(len(text)+1), 0, espeakPosCharacter, 0, espeakCharsUTF8, nil, nil); rc != espeakOK {
		return fmt.Errorf("espeak_Synth failed with %d", rc)
	}
	return nil
}

// Wait runs without the lock so Stop can cancel.
func (l *espeakLibrary) Wait() error {
	if rc := l.synchronize(); rc != espeakOK {
		return fmt.Errorf("espeak_Synchronize failed with %d", rc)
	}
	return nil
}

func (l *espeakLibrary) Stop() error {
	if rc := l.cancel(); rc != espeakOK {
		return fmt.Errorf("espeak_Cancel failed with %d", rc)
	}
	return nil
}

func (l *espeakLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.terminate()
	return purego.Dlclose(l.handle)
}

// goString copies a NUL-terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// espeakLanguages decodes the languages field: repeated entries of one
// priority byte followed by a NUL-terminated tag, ending at a zero priority.
func espeakLanguages(p *byte) [][]byte {
	if p == nil {
		return nil
	}
	var langs [][]byte
	ptr := unsafe.Pointer(p)
	for *(*byte)(ptr) != 0 {
		ptr = unsafe.Add(ptr, 1)
		tag := goString((*byte)(ptr))
		langs = append(langs, []byte(tag))
		ptr = unsafe.Add(ptr, len(tag)+1)
	}
	return langs
}
