package speech

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"
)

// espeakTools are probed in order of preference.
var espeakTools = []string{"espeak-ng", "espeak"}

// espeakBackend drives espeak-ng or espeak.
type espeakBackend struct {
	runner   Runner
	platform Platform
}

func newEspeakBackend(r Runner, p Platform) *espeakBackend {
	return &espeakBackend{runner: r, platform: p}
}

func (b *espeakBackend) Kind() Kind { return KindEspeak }

func (b *espeakBackend) tool() (string, error) {
	tool, err := findTool(b.runner, espeakTools...)
	if err != nil {
		return "", Unavailable(KindEspeak, installHint(KindEspeak, b.platform), err)
	}
	return tool, nil
}

// Voices runs `<tool> --voices`.
func (b *espeakBackend) Voices(ctx context.Context) ([]Voice, error) {
	tool, err := b.tool()
	if err != nil {
		return nil, err
	}
	out, err := runTool(ctx, b.runner, KindEspeak, tool, "--voices")
	if err != nil {
		return nil, err
	}
	return parseEspeakVoices(out), nil
}

// Start runs espeak with the text as its final argument, split like say's.
func (b *espeakBackend) Start(_ context.Context, text string, s Settings) (*Handle, error) {
	if text == "" {
		return completedHandle(), nil
	}
	tool, err := b.tool()
	if err != nil {
		return nil, err
	}
	chunks := chunkText(text, maxArgBytes)
	if len(chunks) == 0 {
		return completedHandle(), nil
	}
	argvs := make([][]string, len(chunks))
	for i, chunk := range chunks {
		argvs[i] = espeakArgs(chunk, s)
	}
	return startSequence(b.runner, KindEspeak, "", tool, argvs)
}

// espeakArgs builds `[-v voice] [-s rate] text`.
func espeakArgs(text string, s Settings) []string {
	var args []string
	if s.Voice != "" {
		args = append(args, "-v", s.Voice)
	}
	if !isDefaultSpeed(s.Speed) {
		args = append(args, "-s", strconv.Itoa(EspeakRate(s.Speed)))
	}
	return append(args, textArg(text))
}

// parseEspeakVoices parses the `--voices` table:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "Pty") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{ID: fields[3], Name: fields[3], Locale: fields[1]})
	}
	return voices
}
