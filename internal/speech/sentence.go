package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxArgBytes caps the text passed as a single command-line argument.
// Linux rejects any one argument over 128 KiB.
const maxArgBytes = 64 * 1024

// abbreviations never end a sentence.
var abbreviations = makeAbbreviations(
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "vs", "etc", "inc", "ltd", "co", "corp",
	"i.e", "e.g", "cf", "al", "no", "vol", "fig", "approx",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	"u.s", "u.k", "e.u", "ph.d",
)

func makeAbbreviations(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace and a capital letter, or by the end of the text. Known
// abbreviations, initials, decimals and ellipses do not end a sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isTerminal(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if !sentenceEnds(runes, i, end) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

func isCloser(r rune) bool { return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’' }

// sentenceEnds reports whether the punctuation run starting at pos and
// ending before end closes a sentence.
func sentenceEnds(runes []rune, pos, end int) bool {
	if end >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[end]) {
		return false
	}

	if runes[pos] == '.' && end-pos == 1 {
		word := wordBefore(runes, pos)
		if abbreviations[strings.ToLower(word)] {
			return false
		}
		// Initials such as "J. R. R."
		if utf8.RuneCountInString(word) == 1 && unicode.IsUpper([]rune(word)[0]) {
			return false
		}
	}

	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if runes[pos] != '.' {
		return true
	}
	return unicode.IsUpper(runes[next]) || unicode.IsDigit(runes[next]) || strings.ContainsRune("\"'“‘(", runes[next])
}

// wordBefore returns the word ending just before pos, without the period.
func wordBefore(runes []rune, pos int) string {
	start := pos
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return strings.TrimLeft(string(runes[start:pos]), "\"'(“‘")
}

// chunkText splits text into pieces of at most limit bytes, breaking between
// sentences where possible and otherwise at whitespace. Text within the
// limit is returned unchanged as the only piece.
func chunkText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	for _, s := range splitSentences(text) {
		for len(s) > limit {
			flush()
			head, rest := splitAt(s, limit)
			chunks = append(chunks, head)
			s = rest
		}
		if b.Len() > 0 && b.Len()+1+len(s) > limit {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	flush()
	return chunks
}

// splitAt cuts s at the last whitespace within limit bytes, or at the last
// rune boundary when there is none.
func splitAt(s string, limit int) (string, string) {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if i := strings.LastIndexFunc(s[:cut], unicode.IsSpace); i > 0 {
		cut = i
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(s)
	}
	return strings.TrimSpace(s[:cut]), strings.TrimSpace(s[cut:])
}
