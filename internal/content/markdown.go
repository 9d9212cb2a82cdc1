package content

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// StripMarkdown reduces markdown to the text a listener should hear. Code
// blocks and raw HTML are dropped; links keep their text and images their
// alt text. Each block ends up on its own line.
func StripMarkdown(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	writeMarkdownNode(doc, source, &b)
	return CleanText(b.String())
}

func writeMarkdownNode(node ast.Node, source []byte, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		b.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			b.WriteString("\n")
		case n.SoftLineBreak():
			b.WriteString(" ")
		}
		return

	case *ast.String:
		b.Write(n.Value)
		return

	case *ast.AutoLink:
		b.Write(n.Label(source))
		return

	case *ast.Heading:
		writeMarkdownChildren(n, source, b)
		endSentence(b)
		b.WriteString("\n")
		return

	case *ast.Paragraph, *ast.TextBlock:
		writeMarkdownChildren(n, source, b)
		b.WriteString("\n")
		return

	case *ast.ThematicBreak:
		b.WriteString("\n")
		return
	}

	writeMarkdownChildren(node, source, b)
}

func writeMarkdownChildren(node ast.Node, source []byte, b *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		writeMarkdownNode(c, source, b)
	}
}

// endSentence appends a period unless the text already ends a sentence, so
// a heading is read with a pause.
func endSentence(b *strings.Builder) {
	s := strings.TrimRight(b.String(), " ")
	if s == "" {
		return
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', '\n':
		return
	}
	b.WriteString(".")
}
