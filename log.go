package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// setupLog routes logging away from the TUI. With AUDIOTEXT_DEBUG set,
// logs go to a file in the user cache directory at debug level; otherwise
// they are discarded. The returned closer flushes the file.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	log.SetTimeFormat(time.Kitchen)

	if os.Getenv("AUDIOTEXT_DEBUG") == "" {
		return func() error { return nil }, nil
	}

	dir, err := gap.NewScope(gap.User, "audiotext").CacheDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, "audiotext.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close, nil
}
