// Package mock provides an engine that produces no audio. Tests drive
// utterance completion by hand; the timed variant completes on a schedule
// so the application stays usable on machines without a real backend.
package mock

import (
	"strings"
	"sync"
	"time"

	"github.com/audiotext/audiotext/tts"
)

// wordsPerSecond mirrors the duration heuristic used for real speech so
// the silent engine paces like a spoken one.
const wordsPerSecond = 3.0

// utterance is one in-flight speak request. The once guard keeps the
// shared completion signal from double-firing when a cancel races a
// natural finish.
type utterance struct {
	done  func(err error)
	timer *time.Timer
	once  sync.Once
}

// fire delivers the completion signal exactly once, always from a
// goroutine other than the caller's.
func (u *utterance) fire(err error) {
	u.once.Do(func() {
		if u.done != nil {
			go u.done(err)
		}
	})
}

// Engine is a silent speech backend. New() gives the manual variant where
// completion only happens through Finish, Fail, or Cancel; NewTimed()
// auto-completes each utterance after its estimated speaking time.
type Engine struct {
	mu       sync.Mutex
	current  *utterance
	speaking bool
	paused   bool
	shutdown bool
	timed    bool

	speakErr error

	speakCount  int
	resumeCount int
	lastText    string
	lastRate    float64
}

// New creates a manually-driven silent engine.
func New() *Engine {
	return &Engine{}
}

// NewTimed creates a silent engine whose utterances complete on their own
// after the estimated speaking duration.
func NewTimed() *Engine {
	return &Engine{timed: true}
}

// Speak registers a new utterance. Any previous utterance is dropped
// without firing its callback; callers are expected to Cancel first.
func (e *Engine) Speak(text string, rate float64, done func(err error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return tts.ErrEngineShutdown
	}
	if e.speakErr != nil {
		return e.speakErr
	}

	u := &utterance{done: done}
	if e.timed {
		u.timer = time.AfterFunc(estimateSpeakTime(text, rate), func() {
			e.mu.Lock()
			if e.current == u {
				e.current = nil
				e.speaking = false
				e.paused = false
			}
			e.mu.Unlock()
			u.fire(nil)
		})
	}

	e.current = u
	e.speaking = true
	e.paused = false
	e.speakCount++
	e.lastText = text
	e.lastRate = rate
	return nil
}

// Cancel stops the in-flight utterance and fires its callback.
func (e *Engine) Cancel() {
	e.mu.Lock()
	u := e.takeLocked()
	e.mu.Unlock()

	if u != nil {
		u.fire(nil)
	}
}

// Pause suspends the engine when an utterance is live.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speaking {
		e.paused = true
	}
	return nil
}

// Resume clears a pause. Calling it while not paused does nothing beyond
// bumping the nudge counter tests inspect.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeCount++
	e.paused = false
	return nil
}

// Speaking reports whether an utterance is live.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Paused reports whether the engine is suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Shutdown drops the current utterance and refuses further speech.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	u := e.takeLocked()
	e.shutdown = true
	e.mu.Unlock()

	if u != nil {
		u.fire(nil)
	}
	return nil
}

// Finish completes the current utterance as if it had been spoken.
func (e *Engine) Finish() {
	e.mu.Lock()
	u := e.takeLocked()
	e.mu.Unlock()

	if u != nil {
		u.fire(nil)
	}
}

// Fail completes the current utterance with an engine error.
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	u := e.takeLocked()
	e.mu.Unlock()

	if u != nil {
		u.fire(err)
	}
}

// SetSpeakError makes subsequent Speak calls fail synchronously.
func (e *Engine) SetSpeakError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakErr = err
}

// SpeakCount returns how many utterances were started.
func (e *Engine) SpeakCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speakCount
}

// ResumeCount returns how many Resume calls arrived.
func (e *Engine) ResumeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeCount
}

// LastText returns the text of the most recent utterance.
func (e *Engine) LastText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastText
}

// LastRate returns the rate of the most recent utterance.
func (e *Engine) LastRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRate
}

func (e *Engine) takeLocked() *utterance {
	u := e.current
	e.current = nil
	e.speaking = false
	e.paused = false
	if u != nil && u.timer != nil {
		u.timer.Stop()
	}
	return u
}

func estimateSpeakTime(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	seconds := float64(words) / wordsPerSecond / rate
	return time.Duration(seconds * float64(time.Second))
}
