package speech

import "runtime"

// Platform represents the host operating system.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// CurrentPlatform returns the platform the binary is running on.
func CurrentPlatform() Platform {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) Platform {
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// NativeKind returns the command-line backend used on p when the speech
// library cannot be loaded.
func (p Platform) NativeKind() Kind {
	switch p {
	case PlatformDarwin:
		return KindSay
	case PlatformLinux:
		return KindEspeak
	case PlatformWindows:
		return KindPowerShell
	default:
		return KindUnavailable
	}
}

// installHint returns remediation text for a missing backend on p.
func installHint(kind Kind, p Platform) string {
	switch kind {
	case KindSay:
		return "The 'say' command was not found; it ships with macOS in /usr/bin/say. Alternatively install espeak-ng (brew install espeak-ng) to enable the speech library."
	case KindEspeak:
		return "Install 'espeak-ng' or 'espeak' to speak and list voices on Linux (e.g. sudo apt-get install espeak-ng)."
	case KindPowerShell:
		return "PowerShell ('pwsh' or 'powershell') is required to speak and list voices on Windows. Install it from https://aka.ms/powershell."
	case KindLibrary:
		switch p {
		case PlatformWindows:
			return "The SAPI speech library could not be initialized; check that the Windows speech components are installed."
		case PlatformDarwin:
			return "Install espeak-ng (brew install espeak-ng) to enable the speech library."
		default:
			return "Install the espeak-ng shared library (e.g. sudo apt-get install libespeak-ng1) to enable the speech library."
		}
	default:
		return "No speech backend is supported on " + runtime.GOOS + ". Install the espeak-ng shared library to enable the speech library."
	}
}
