package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

var logFile *os.File

func getLogFilePath() (string, error) {
	return gap.NewScope(gap.User, "aloud").LogPath("aloud.log")
}

// setupLog sends warnings and errors to stderr. The returned func closes the
// debug log file, if one was opened.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
	return func() error {
		if logFile == nil {
			return nil
		}
		return logFile.Close()
	}, nil
}

// enableDebugLog raises the level to debug and copies all output to the log
// file in the user's log dir.
func enableDebugLog() error {
	log.SetLevel(log.DebugLevel)
	if logFile != nil {
		return nil
	}

	path, err := getLogFilePath()
	if err != nil {
		return fmt.Errorf("unable to find log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	logFile = f
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.Debug("Logging to file", "path", path)
	return nil
}
