package tts

import "errors"

// Common errors for the playback engine.
var (
	// ErrSessionReplaced indicates an extraction that resolved after a
	// newer session had already taken over; its result was discarded.
	ErrSessionReplaced = errors.New("session replaced before extraction finished")

	// ErrEngineUnavailable indicates the speech backend cannot be used.
	ErrEngineUnavailable = errors.New("speech engine is not available")

	// ErrEngineShutdown indicates the engine has been shut down.
	ErrEngineShutdown = errors.New("speech engine has been shut down")
)
