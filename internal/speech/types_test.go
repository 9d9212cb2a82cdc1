package speech

import (
	"errors"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"library", KindLibrary, false},
		{"say", KindSay, false},
		{"macos", KindSay, false},
		{"espeak-ng", KindEspeak, false},
		{" Espeak ", KindEspeak, false},
		{"pwsh", KindPowerShell, false},
		{"powershell", KindPowerShell, false},
		{"festival", KindUnavailable, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseKind(%q) error %v is not ErrInvalidInput", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKindStringRoundTrips(t *testing.T) {
	for _, k := range []Kind{KindLibrary, KindSay, KindEspeak, KindPowerShell} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
		not  error
	}{
		{"unavailable", Unavailable(KindEspeak, "install espeak", nil), ErrBackendUnavailable, ErrBackendFailure},
		{"failure", Failure(KindSay, "Failed", "", nil), ErrBackendFailure, ErrInvalidInput},
		{"invalid", InvalidInput("bad %s", "input"), ErrInvalidInput, ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.is)
			}
			if errors.Is(tt.err, tt.not) {
				t.Errorf("errors.Is(%v, %v) = true", tt.err, tt.not)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Failure(KindEspeak, "Failed to speak via 'espeak-ng'", "  no audio device\n", errors.New("exit status 1"))
	want := "Failed to speak via 'espeak-ng': no audio device: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	unavail := Unavailable(KindSay, "Install it.", errors.New("not found"))
	if !strings.HasPrefix(unavail.Error(), "TTS engine unavailable. Install it.\nOriginal error: not found") {
		t.Errorf("Error() = %q", unavail.Error())
	}
}
