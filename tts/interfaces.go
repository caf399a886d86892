// Package tts implements the audio playback engine: it turns extracted
// article or tweet text into a controllable, resumable, speed-adjustable
// spoken-audio session on top of a turn-based text-to-speech backend,
// while presenting a continuous-time transport to the UI.
package tts

import (
	"context"
)

// Engine is a turn-based text-to-speech backend. It speaks one utterance
// at a time; there is never more than one utterance live.
//
// The done callback fires when the utterance stops for ANY reason —
// natural completion, engine failure, or cancellation. Backends share one
// "finished" signal for all three (the SpeechSynthesis model), so telling
// an intentional cancel apart from a natural finish is the Adapter's job,
// not the engine's.
//
// done must be invoked from a goroutine other than the one calling Speak
// or Cancel; a synchronous callback would deadlock callers that hold
// their own locks.
type Engine interface {
	// Speak starts a new utterance at the given rate multiplier.
	Speak(text string, rate float64, done func(err error)) error

	// Cancel stops the in-flight utterance, if any. The utterance's done
	// callback still fires.
	Cancel()

	// Pause suspends the whole engine. It does not cancel the current
	// utterance; backends that cannot resume mid-utterance may treat the
	// next Resume as a restart request by reporting Paused() == false.
	Pause() error

	// Resume continues a paused engine. It must be side-effect-free when
	// the engine is neither paused nor stalled.
	Resume() error

	// Speaking reports whether an utterance is currently live.
	Speaking() bool

	// Paused reports whether the engine is suspended mid-utterance.
	Paused() bool

	// Shutdown releases engine resources.
	Shutdown() error
}

// ProgressReporter receives fractional read progress for library items.
// Writes are fire-and-forget from the player's perspective: failures are
// logged, never surfaced, and must not delay playback transitions.
type ProgressReporter interface {
	UpdateProgress(ctx context.Context, itemID string, percent int) error
}
