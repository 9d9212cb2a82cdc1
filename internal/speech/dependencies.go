package speech

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// DependencyStatus is the outcome of probing one speech backend.
type DependencyStatus struct {
	Kind         Kind
	Name         string
	Installed    bool
	Path         string
	Error        error
	Instructions string
}

// CheckDependencies probes the speech library and the command-line tools
// relevant to the engine's platform. Unknown platforms probe every tool.
func (e *Engine) CheckDependencies() []DependencyStatus {
	statuses := []DependencyStatus{e.checkLibrary()}

	kinds := []Kind{e.platform.NativeKind()}
	if kinds[0] == KindUnavailable {
		kinds = []Kind{KindSay, KindEspeak, KindPowerShell}
	}
	for _, k := range kinds {
		statuses = append(statuses, e.checkTool(k))
	}

	for _, s := range statuses {
		if s.Installed {
			log.Debug("Dependency found", "name", s.Name, "path", s.Path)
		} else {
			log.Debug("Dependency missing", "name", s.Name, "error", s.Error)
		}
	}
	return statuses
}

func (e *Engine) checkLibrary() DependencyStatus {
	status := DependencyStatus{Kind: KindLibrary, Name: "speech library"}
	if _, err := e.openLibrary(); err != nil {
		status.Error = err
		status.Instructions = installHint(KindLibrary, e.platform)
		return status
	}
	status.Installed = true
	return status
}

func (e *Engine) checkTool(k Kind) DependencyStatus {
	var names []string
	switch k {
	case KindSay:
		names = []string{"say"}
	case KindEspeak:
		names = espeakTools
	case KindPowerShell:
		names = powerShellTools
	}
	status := DependencyStatus{Kind: k, Name: strings.Join(names, " / ")}
	path, err := findTool(e.runner, names...)
	if err != nil {
		status.Error = err
		status.Instructions = installHint(k, e.platform)
		if k == KindEspeak {
			status.Instructions = espeakInstructions(detectLinuxDistro())
		}
		return status
	}
	status.Installed = true
	status.Path = path
	return status
}

// Usable reports whether any checked backend can speak.
func Usable(statuses []DependencyStatus) bool {
	for _, s := range statuses {
		if s.Installed {
			return true
		}
	}
	return false
}

// DependencyReport renders statuses for a terminal.
func DependencyReport(statuses []DependencyStatus, selected Kind) string {
	var report strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)
	installedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	optionalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	report.WriteString(titleStyle.Render("Speech Backend Report"))
	report.WriteString("\n\n")

	usable := Usable(statuses)
	for _, s := range statuses {
		switch {
		case s.Installed:
			report.WriteString(installedStyle.Render(fmt.Sprintf("  ✓ %s: ", s.Name)))
			if s.Path != "" {
				report.WriteString(s.Path)
			} else {
				report.WriteString("loaded")
			}
			report.WriteString("\n")
		case usable:
			report.WriteString(optionalStyle.Render(fmt.Sprintf("  ○ %s: ", s.Name)))
			report.WriteString("Not installed (optional)\n")
			report.WriteString(fmt.Sprintf("    %s\n", s.Instructions))
		default:
			report.WriteString(missingStyle.Render(fmt.Sprintf("  ✗ %s: ", s.Name)))
			report.WriteString("Not installed\n")
			report.WriteString(fmt.Sprintf("    %s\n", s.Instructions))
		}
	}

	report.WriteString(fmt.Sprintf("\nSelected backend: %s\n", selected))
	return report.String()
}

func espeakInstructions(distro string) string {
	switch distro {
	case "debian", "ubuntu":
		return "Install with: sudo apt-get install espeak-ng"
	case "fedora", "rhel":
		return "Install with: sudo dnf install espeak-ng"
	case "arch":
		return "Install with: sudo pacman -S espeak-ng"
	default:
		return installHint(KindEspeak, PlatformLinux)
	}
}

// detectLinuxDistro guesses the distribution from /etc/os-release.
func detectLinuxDistro() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown"
	}
	content := strings.ToLower(string(data))
	switch {
	case strings.Contains(content, "ubuntu"):
		return "ubuntu"
	case strings.Contains(content, "debian"):
		return "debian"
	case strings.Contains(content, "fedora"):
		return "fedora"
	case strings.Contains(content, "arch"):
		return "arch"
	case strings.Contains(content, "rhel"), strings.Contains(content, "centos"):
		return "rhel"
	}
	return "unknown"
}
