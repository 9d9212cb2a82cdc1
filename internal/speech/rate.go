package speech

import "math"

// DefaultSpeed is the multiplier that leaves every backend at its native rate.
const DefaultSpeed = 1.0

const (
	// sayBaseRate is the default words per minute of macOS say.
	sayBaseRate = 200

	// espeakBaseRate is the default words per minute of espeak.
	espeakBaseRate = 175

	// minWordsPerMinute is the slowest rate passed to say or espeak.
	minWordsPerMinute = 80

	// powerShellRateStep is the System.Speech rate offset per unit of speed.
	powerShellRateStep = 5

	minPowerShellRate = -10
	maxPowerShellRate = 10
)

// isDefaultSpeed reports whether no rate flag should be emitted.
func isDefaultSpeed(m float64) bool {
	return m == 0 || m == DefaultSpeed
}

// SayRate maps a speed multiplier to say's -r words per minute.
func SayRate(m float64) int {
	return max(minWordsPerMinute, int(math.Round(sayBaseRate*m)))
}

// EspeakRate maps a speed multiplier to espeak's -s words per minute.
func EspeakRate(m float64) int {
	return max(minWordsPerMinute, int(math.Round(espeakBaseRate*m)))
}

// PowerShellRate maps a speed multiplier to the SpeechSynthesizer.Rate offset.
func PowerShellRate(m float64) int {
	r := int(math.Round((m - 1.0) * powerShellRateStep))
	return min(maxPowerShellRate, max(minPowerShellRate, r))
}

// LibraryRate scales a library's current rate property by m, truncating.
func LibraryRate(current int, m float64) int {
	if m == 0 {
		m = DefaultSpeed
	}
	return int(float64(current) * m)
}
