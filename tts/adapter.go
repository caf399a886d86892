package tts

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// keepaliveInterval is how often the adapter nudges the engine while
// playback is active. Some turn-based backends silently stop delivering
// speech after ~15s in a "speaking" state without re-engagement, so the
// nudge has to land well under that ceiling.
const keepaliveInterval = 10 * time.Second

// utterance is one request-to-speak covering exactly one chunk. The
// adapter keeps a strong reference to the in-flight utterance until its
// completion callback has run; backends must never see it collected early.
type utterance struct {
	text string
	rate float64
	gen  uint64
}

// Adapter owns the single underlying speech engine instance. It speaks
// one chunk at a time, disambiguates intentional cancels from natural
// completions with a per-utterance generation counter, and keeps the
// engine alive while playback is active.
type Adapter struct {
	mu       sync.Mutex
	engine   Engine
	gen      uint64
	inflight *utterance

	keepaliveStop chan struct{}
}

// NewAdapter wraps the given engine. The engine instance is process-wide
// and exclusive; no two adapters may share one.
func NewAdapter(engine Engine) *Adapter {
	return &Adapter{engine: engine}
}

// Speak cancels any in-flight utterance, then starts a new one at the
// given rate. onFinish fires exactly once, only for a natural completion
// or an engine failure — never for a cancellation issued through this
// adapter. Engine failures are reported so the caller can advance anyway.
func (a *Adapter) Speak(text string, rate float64, onFinish func(err error)) error {
	a.mu.Lock()
	// Bumping the generation first makes the cancelled utterance's
	// completion signal (which backends share with natural finish)
	// identifiable as stale.
	a.gen++
	gen := a.gen
	u := &utterance{text: text, rate: rate, gen: gen}
	a.inflight = u
	a.mu.Unlock()

	a.engine.Cancel()

	err := a.engine.Speak(text, rate, func(err error) {
		a.mu.Lock()
		if gen != a.gen {
			// Intentional cancel; a newer utterance owns the engine.
			a.mu.Unlock()
			return
		}
		a.inflight = nil
		a.mu.Unlock()

		if err != nil {
			log.Warn("utterance ended with engine failure", "err", err)
		}
		if onFinish != nil {
			onFinish(err)
		}
	})
	if err != nil {
		// The utterance never started; drop the dead reference now
		// instead of holding it until the next Speak or Cancel.
		a.mu.Lock()
		if gen == a.gen {
			a.inflight = nil
		}
		a.mu.Unlock()
	}
	return err
}

// Cancel stops the in-flight utterance and suppresses its completion
// callback.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	a.gen++
	a.inflight = nil
	a.mu.Unlock()

	a.engine.Cancel()
}

// Pause suspends the engine globally without cancelling the utterance.
func (a *Adapter) Pause() error {
	return a.engine.Pause()
}

// Resume continues a paused engine in place. Callers should fall back to
// restarting the current chunk when Paused() is false.
func (a *Adapter) Resume() error {
	return a.engine.Resume()
}

// Speaking reports whether an utterance is live in the engine.
func (a *Adapter) Speaking() bool {
	return a.engine.Speaking()
}

// Paused reports whether the engine is suspended mid-utterance.
func (a *Adapter) Paused() bool {
	return a.engine.Paused()
}

// StartKeepalive begins the periodic engine nudge. Idempotent; the nudge
// is side-effect-free when the engine is not actually stalled.
func (a *Adapter) StartKeepalive() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.keepaliveStop != nil {
		return
	}
	stop := make(chan struct{})
	a.keepaliveStop = stop

	go func() {
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if a.engine.Speaking() || a.engine.Paused() {
					if err := a.engine.Resume(); err != nil {
						log.Debug("keepalive resume failed", "err", err)
					}
				}
			}
		}
	}()
}

// StopKeepalive halts the periodic nudge. Idempotent.
func (a *Adapter) StopKeepalive() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.keepaliveStop == nil {
		return
	}
	close(a.keepaliveStop)
	a.keepaliveStop = nil
}

// Shutdown stops the keepalive and releases the engine.
func (a *Adapter) Shutdown() error {
	a.StopKeepalive()
	a.Cancel()
	return a.engine.Shutdown()
}
