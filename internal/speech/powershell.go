package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// powerShellTools are probed in order of preference.
var powerShellTools = []string{"pwsh", "powershell"}

const (
	psPrelude = "Add-Type -AssemblyName System.Speech; " +
		"$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; "

	psListVoices = psPrelude +
		"$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo } | " +
		"Select-Object Name,Culture,Id | ConvertTo-Json -Compress"
)

// powerShellBackend drives System.Speech through PowerShell.
type powerShellBackend struct {
	runner   Runner
	platform Platform
}

func newPowerShellBackend(r Runner, p Platform) *powerShellBackend {
	return &powerShellBackend{runner: r, platform: p}
}

func (b *powerShellBackend) Kind() Kind { return KindPowerShell }

func (b *powerShellBackend) tool() (string, error) {
	tool, err := findTool(b.runner, powerShellTools...)
	if err != nil {
		return "", Unavailable(KindPowerShell, installHint(KindPowerShell, b.platform), err)
	}
	return tool, nil
}

// Voices enumerates installed voices as compact JSON.
func (b *powerShellBackend) Voices(ctx context.Context) ([]Voice, error) {
	tool, err := b.tool()
	if err != nil {
		return nil, err
	}
	out, err := runTool(ctx, b.runner, KindPowerShell, tool, "-NoProfile", "-Command", psListVoices)
	if err != nil {
		return nil, err
	}
	voices, err := parsePowerShellVoices(out)
	if err != nil {
		return nil, Failure(KindPowerShell, "Failed to parse voice list from PowerShell", string(out), err)
	}
	return voices, nil
}

// Start pipes the text to a speaking script on standard input.
func (b *powerShellBackend) Start(_ context.Context, text string, s Settings) (*Handle, error) {
	if text == "" {
		return completedHandle(), nil
	}
	tool, err := b.tool()
	if err != nil {
		return nil, err
	}
	return startTool(b.runner, KindPowerShell, text, tool, "-NoProfile", "-Command", powerShellSpeakScript(s))
}

// powerShellSpeakScript builds a script that reads the text from standard
// input so it never has to be quoted.
func powerShellSpeakScript(s Settings) string {
	var b strings.Builder
	b.WriteString(psPrelude)
	b.WriteString("$text = [Console]::In.ReadToEnd(); ")
	if s.Voice != "" {
		b.WriteString("$synth.SelectVoice('")
		b.WriteString(strings.ReplaceAll(s.Voice, "'", "''"))
		b.WriteString("'); ")
	}
	if !isDefaultSpeed(s.Speed) {
		b.WriteString("$synth.Rate = ")
		b.WriteString(strconv.Itoa(PowerShellRate(s.Speed)))
		b.WriteString("; ")
	}
	b.WriteString("$synth.Speak($text);")
	return b.String()
}

type psVoice struct {
	Name    string          `json:"Name"`
	Culture json.RawMessage `json:"Culture"`
	ID      string          `json:"Id"`
}

// culture decodes Culture, which ConvertTo-Json emits either as a string or
// as a CultureInfo object.
func (v psVoice) culture() string {
	if len(v.Culture) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Culture, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"Name"`
	}
	if err := json.Unmarshal(v.Culture, &obj); err == nil {
		return obj.Name
	}
	return ""
}

// parsePowerShellVoices accepts a single object or an array of objects.
func parsePowerShellVoices(out []byte) ([]Voice, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var items []psVoice
	if out[0] == '{' {
		var one psVoice
		if err := json.Unmarshal(out, &one); err != nil {
			return nil, err
		}
		items = []psVoice{one}
	} else if err := json.Unmarshal(out, &items); err != nil {
		return nil, err
	}

	voices := make([]Voice, 0, len(items))
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = item.Name
		}
		voices = append(voices, Voice{ID: id, Name: item.Name, Locale: item.culture()})
	}
	return voices, nil
}
