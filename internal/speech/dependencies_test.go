package speech

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckDependencies(t *testing.T) {
	e := NewEngine(
		WithRunner(newFakeRunner("espeak")),
		WithLibrary(failingLibrary(errors.New("no library"))),
		WithPlatform(PlatformLinux),
	)
	statuses := e.CheckDependencies()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Kind != KindLibrary || statuses[0].Installed {
		t.Errorf("library status = %+v", statuses[0])
	}
	if statuses[1].Kind != KindEspeak || !statuses[1].Installed || statuses[1].Path != "/usr/bin/espeak" {
		t.Errorf("espeak status = %+v", statuses[1])
	}
	if !Usable(statuses) {
		t.Error("Usable() = false with espeak installed")
	}

	report := DependencyReport(statuses, e.Kind())
	for _, want := range []string{"Speech Backend Report", "/usr/bin/espeak", "Not installed (optional)", "Selected backend: espeak"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestCheckDependenciesUnknownPlatform(t *testing.T) {
	e := NewEngine(
		WithRunner(newFakeRunner()),
		WithLibrary(failingLibrary(errors.New("no library"))),
		WithPlatform(PlatformUnknown),
	)
	statuses := e.CheckDependencies()
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	if Usable(statuses) {
		t.Error("Usable() = true with nothing installed")
	}
	report := DependencyReport(statuses, e.Kind())
	if !strings.Contains(report, "✗") {
		t.Errorf("report does not flag missing backends:\n%s", report)
	}
}

func TestEspeakInstructions(t *testing.T) {
	if got := espeakInstructions("ubuntu"); got != "Install with: sudo apt-get install espeak-ng" {
		t.Errorf("espeakInstructions(ubuntu) = %q", got)
	}
	if got := espeakInstructions("unknown"); !strings.Contains(got, "espeak-ng") {
		t.Errorf("espeakInstructions(unknown) = %q", got)
	}
}
