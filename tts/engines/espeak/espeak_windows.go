//go:build windows

// Package espeak drives a command-line speech synthesizer. The signal
// based pause and resume have no Windows equivalent, so this backend is
// unavailable there; the piper backend covers Windows.
package espeak

import (
	"fmt"

	"github.com/audiotext/audiotext/tts"
)

// Engine is not supported on Windows.
type Engine struct{}

// New always reports the backend as unavailable on Windows.
func New() (*Engine, error) {
	return nil, fmt.Errorf("%w: espeak backend is not supported on windows", tts.ErrEngineUnavailable)
}

func (e *Engine) Speak(text string, rate float64, done func(err error)) error {
	return tts.ErrEngineUnavailable
}

func (e *Engine) Cancel()         {}
func (e *Engine) Pause() error    { return tts.ErrEngineUnavailable }
func (e *Engine) Resume() error   { return nil }
func (e *Engine) Speaking() bool  { return false }
func (e *Engine) Paused() bool    { return false }
func (e *Engine) Shutdown() error { return nil }
