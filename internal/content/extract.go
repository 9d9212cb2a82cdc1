package content

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// skippedElements never contribute readable text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Noscript: true,
	atom.Template: true,
}

// ExtractText parses an HTML document and returns its visible text with
// whitespace cleaned by CleanText.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	collectText(doc, &b)
	return CleanText(b.String()), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// CleanText trims every line, splits lines on runs of two spaces, and joins
// the non-empty pieces with newlines. The result is NFC normalized.
func CleanText(text string) string {
	text = norm.NFC.String(strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text))
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
