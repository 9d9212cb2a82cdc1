package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/aloud/internal/speech"
)

func newRunningHandle() *speech.Handle {
	var h *speech.Handle
	h = speech.NewHandle(func() error {
		h.Finish(nil)
		return nil
	})
	return h
}

func TestViewWhileReading(t *testing.T) {
	m := NewModel(newRunningHandle(), speech.KindEspeak, "Hello\n  there,\tworld.")
	view := m.View()
	for _, want := range []string{readingText, "Hello there, world.", "espeak"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestPreviewTruncated(t *testing.T) {
	m := NewModel(newRunningHandle(), speech.KindSay, strings.Repeat("word ", 40))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})
	view := updated.(Model).View()
	if !strings.Contains(view, "…") {
		t.Errorf("long preview not truncated:\n%s", view)
	}
}

func TestStopKeys(t *testing.T) {
	keys := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tt := range keys {
		t.Run(tt.name, func(t *testing.T) {
			h := newRunningHandle()
			m := NewModel(h, speech.KindSay, "text")

			updated, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("no command returned for stop key")
			}
			if !strings.Contains(updated.(Model).View(), stoppingText) {
				t.Errorf("view does not show %q", stoppingText)
			}
			if msg := cmd(); msg != nil {
				t.Errorf("stop command returned %#v", msg)
			}
			if !h.Stopped() {
				t.Error("handle not stopped")
			}

			// A second press while stopping does nothing.
			if _, cmd := updated.Update(tt.msg); cmd != nil {
				t.Error("second stop key returned a command")
			}
		})
	}
}

func TestOtherKeysIgnored(t *testing.T) {
	h := newRunningHandle()
	m := NewModel(h, speech.KindSay, "text")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
		t.Error("unexpected command for x")
	}
	if h.Stopped() {
		t.Error("handle stopped by x")
	}
}

func TestSpeechDone(t *testing.T) {
	want := errors.New("espeak failed")
	h := newRunningHandle()
	m := NewModel(h, speech.KindEspeak, "text")

	h.Finish(want)
	msg := waitForSpeech(h)()
	updated, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("no quit command after speech ended")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
	final := updated.(Model)
	if !errors.Is(final.Err(), want) {
		t.Errorf("Err() = %v, want %v", final.Err(), want)
	}
	if final.View() != "" {
		t.Errorf("View() = %q after finish, want empty", final.View())
	}
}

func TestStopFailure(t *testing.T) {
	want := errors.New("kill failed")
	h := speech.NewHandle(func() error { return want })
	m := NewModel(h, speech.KindSay, "text")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	msg := cmd()
	updated, _ := m.Update(msg)
	if !errors.Is(updated.(Model).Err(), want) {
		t.Errorf("Err() = %v, want %v", updated.(Model).Err(), want)
	}
	h.Finish(nil)
}
