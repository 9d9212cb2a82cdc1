package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dgnsrekt/aloud/internal/speech"
	"github.com/mitchellh/go-homedir"
)

// markdownExtensions are the file extensions stripped with StripMarkdown.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
}

// Resolve returns the text to read for a request naming exactly one of text
// or url. A failed fetch is reported as invalid input.
func Resolve(ctx context.Context, f *Fetcher, text, url string) (string, error) {
	if (text != "") == (url != "") {
		return "", speech.InvalidInput("Provide exactly one of 'text' or 'url'.")
	}
	if text != "" {
		return text, nil
	}
	fetched := f.Fetch(ctx, url, true)
	if IsFetchError(fetched) {
		return "", speech.InvalidInput("%s", fetched)
	}
	return fetched, nil
}

// ReadFile reads a UTF-8 text file, expanding a leading ~. Markdown files
// are reduced to plain text.
func ReadFile(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, fs.ErrNotExist) {
		return "", speech.InvalidInput("File '%s' not found.", path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(data), "�")
	if markdownExtensions[strings.ToLower(filepath.Ext(expanded))] {
		text = StripMarkdown(text)
	}
	return text, nil
}

// ReadClipboard returns the text on the system clipboard.
func ReadClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", speech.InvalidInput("The clipboard is not supported on this system.")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", speech.InvalidInput("The clipboard is empty.")
	}
	return text, nil
}

// ReadAll reads piped standard input.
func ReadAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read standard input: %w", err)
	}
	return string(data), nil
}
