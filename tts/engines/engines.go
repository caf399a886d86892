// Package engines provides speech backend implementations and the
// selection logic that picks one at startup.
package engines

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/audiotext/audiotext/tts"
	"github.com/audiotext/audiotext/tts/engines/espeak"
	"github.com/audiotext/audiotext/tts/engines/mock"
	"github.com/audiotext/audiotext/tts/engines/piper"
)

// Config selects and parameterizes a speech backend.
type Config struct {
	// Name picks the backend: "piper", "espeak", "mock", or "auto".
	Name string
	// PiperModel is the path to an ONNX voice model; empty means probe
	// the standard voice directories.
	PiperModel string
}

// New builds the configured engine. With "auto" (or an empty name) it
// probes piper first, then espeak, and falls back to the silent mock so
// the application still runs on machines without a speech backend.
func New(cfg Config) (tts.Engine, error) {
	switch strings.ToLower(cfg.Name) {
	case "mock":
		return mock.NewTimed(), nil
	case "espeak":
		return espeak.New()
	case "piper":
		return piper.New(cfg.PiperModel)
	case "", "auto":
		if e, err := piper.New(cfg.PiperModel); err == nil {
			log.Debug("using piper speech backend")
			return e, nil
		} else {
			log.Debug("piper unavailable", "err", err)
		}
		if e, err := espeak.New(); err == nil {
			log.Debug("using espeak speech backend")
			return e, nil
		} else {
			log.Debug("espeak unavailable", "err", err)
		}
		log.Warn("no speech backend found; running silently")
		return mock.NewTimed(), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrEngineUnavailable, cfg.Name)
	}
}
