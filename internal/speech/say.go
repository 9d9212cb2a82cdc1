package speech

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"
)

// sayBackend drives the macOS say binary.
type sayBackend struct {
	runner   Runner
	platform Platform
}

func newSayBackend(r Runner, p Platform) *sayBackend {
	return &sayBackend{runner: r, platform: p}
}

func (b *sayBackend) Kind() Kind { return KindSay }

func (b *sayBackend) tool() (string, error) {
	tool, err := findTool(b.runner, "say")
	if err != nil {
		return "", Unavailable(KindSay, installHint(KindSay, b.platform), err)
	}
	return tool, nil
}

// Voices runs `say -v ?`.
func (b *sayBackend) Voices(ctx context.Context) ([]Voice, error) {
	tool, err := b.tool()
	if err != nil {
		return nil, err
	}
	out, err := runTool(ctx, b.runner, KindSay, tool, "-v", "?")
	if err != nil {
		return nil, err
	}
	return parseSayVoices(out), nil
}

// Start runs say with the text as its final argument. Text too long for
// one argument is spoken in sentence-aligned pieces.
func (b *sayBackend) Start(_ context.Context, text string, s Settings) (*Handle, error) {
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
		argvs[i] = sayArgs(chunk, s)
	}
	return startSequence(b.runner, KindSay, "", tool, argvs)
}

// sayArgs builds `[-v voice] [-r rate] text`.
func sayArgs(text string, s Settings) []string {
	var args []string
	if s.Voice != "" {
		args = append(args, "-v", s.Voice)
	}
	if !isDefaultSpeed(s.Speed) {
		args = append(args, "-r", strconv.Itoa(SayRate(s.Speed)))
	}
	return append(args, textArg(text))
}

// parseSayVoices parses the listing printed by `say -v ?`, one voice per line.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if v, ok := parseSayLine(sc.Text()); ok {
			voices = append(voices, v)
		}
	}
	return voices
}

// parseSayLine parses `<name...> <locale> # <sample>`.
func parseSayLine(line string) (Voice, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Voice{}, false
	}
	left, sample, _ := strings.Cut(line, "#")
	fields := strings.Fields(left)
	if len(fields) < 2 {
		return Voice{}, false
	}
	name := strings.Join(fields[:len(fields)-1], " ")
	return Voice{
		ID:     name,
		Name:   name,
		Locale: fields[len(fields)-1],
		Sample: strings.TrimSpace(sample),
	}, true
}
