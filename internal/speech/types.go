package speech

import (
	"fmt"
	"strings"
)

// Kind identifies the mechanism used to synthesize speech.
type Kind int

const (
	// KindUnavailable means no usable backend was found for this host.
	KindUnavailable Kind = iota

	// KindLibrary speaks through an in-process speech library.
	KindLibrary

	// KindSay drives the macOS say binary.
	KindSay

	// KindEspeak drives espeak-ng or espeak on Linux.
	KindEspeak

	// KindPowerShell drives System.Speech through pwsh or powershell on Windows.
	KindPowerShell
)

// BackendAuto lets the engine probe for a backend.
const BackendAuto = "auto"

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindSay:
		return "say"
	case KindEspeak:
		return "espeak"
	case KindPowerShell:
		return "powershell"
	default:
		return "unavailable"
	}
}

// ParseKind maps a configuration name to a Kind. "auto" is not a kind; callers
// handle it before calling ParseKind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "library", "lib":
		return KindLibrary, nil
	case "say", "macos":
		return KindSay, nil
	case "espeak", "espeak-ng", "linux":
		return KindEspeak, nil
	case "powershell", "pwsh", "windows":
		return KindPowerShell, nil
	default:
		return KindUnavailable, fmt.Errorf("%w: unknown backend %q (supported: auto, library, say, espeak, powershell)", ErrInvalidInput, name)
	}
}

// Voice is a synthesis persona exposed by a backend. Voices are produced fresh
// on every listing; two voices are the same voice when their IDs are equal.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
	Sample string `json:"sample,omitempty"`
}

// Settings is the per-request configuration applied before speaking.
type Settings struct {
	// Voice is a voice name or ID; empty keeps the backend default.
	Voice string

	// Speed is a unitless multiplier, 1.0 being normal speed. Zero is
	// treated as 1.0.
	Speed float64
}

// DefaultSettings returns settings that keep the backend defaults.
func DefaultSettings() Settings {
	return Settings{Speed: DefaultSpeed}
}
