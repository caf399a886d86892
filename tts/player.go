package tts

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/audiotext/audiotext/content"
	"github.com/audiotext/audiotext/snapshot"
	"github.com/audiotext/audiotext/tts/segment"
)

const (
	// tickInterval drives the cosmetic smoothing of the elapsed-time
	// cursor between chunk boundaries.
	tickInterval = 100 * time.Millisecond

	// snapshotDebounce batches snapshot writes across rapid state changes.
	snapshotDebounce = time.Second

	// progressTimeout bounds a single fire-and-forget progress write.
	progressTimeout = 5 * time.Second

	// MinSpeed and MaxSpeed bound the playback rate multiplier.
	MinSpeed = 0.5
	MaxSpeed = 2.5
)

// State is the read-only view of the playback session handed to
// consumers. All mutation goes through the Player's operations; no
// consumer may touch chunk, index, or time directly.
type State struct {
	Status        Status
	SourceURL     string
	Content       *content.ExtractedContent
	Chunks        []string
	ChunkIndex    int
	Elapsed       float64 // seconds, synthetic continuous-time cursor
	Duration      float64 // seconds, estimated; UI ratio math only
	Speed         float64
	LibraryItemID string
	Err           error
}

// Playing reports whether the session is actively advancing.
func (s State) Playing() bool { return s.Status == StatusPlaying }

// Extracting reports whether the session is awaiting content.
func (s State) Extracting() bool { return s.Status == StatusExtracting }

// PlayOptions carries the optional parameters of PlayContent.
type PlayOptions struct {
	// Speed overrides the player's current rate when > 0.
	Speed float64
	// ItemID correlates progress write-back with a library item; empty
	// for ad-hoc plays.
	ItemID string
	// SourceURL is the origin link, kept for re-share.
	SourceURL string
	// ResumePercent starts playback at a saved progress fraction (0-100).
	// Values outside that open range start from the beginning; a finished
	// item replays rather than instantly re-finishing.
	ResumePercent int
}

// Player is the playback facade: the single object the rest of the
// application calls into. It holds the session, drives the speech engine
// adapter, and reports progress and snapshots through narrow ports.
//
// One mutex serializes every transition; engine callbacks arrive on other
// goroutines, take the lock, and verify the session generation before
// acting so a stale callback can never corrupt a newer session.
type Player struct {
	mu sync.Mutex

	adapter   *Adapter
	extractor content.Extractor
	progress  ProgressReporter
	snapshots snapshot.Store

	machine *Machine

	// Session state. chunks is immutable once built.
	sourceURL string
	content   *content.ExtractedContent
	chunks    []string
	index     int
	elapsed   float64
	total     float64
	itemID    string
	speed     float64
	err       error

	// sessionGen identifies the live session; it bumps on every
	// ProcessURL, PlayContent, and Reset so late extraction results and
	// stale finish callbacks are discarded.
	sessionGen uint64

	// speakGen identifies the live utterance within a session. A finish
	// callback that was already delivered when a seek replaced the
	// utterance fails this check instead of advancing past the seek
	// target.
	speakGen uint64

	tickerStop chan struct{}
	snapTimer  *time.Timer

	onChange      func(State)
	onSpeedChange func(float64)
}

// NewPlayer creates a player around the given engine adapter and content
// extractor. speed seeds the rate multiplier; values <= 0 fall back to 1.
func NewPlayer(adapter *Adapter, extractor content.Extractor, speed float64) *Player {
	if speed <= 0 {
		speed = 1
	}
	return &Player{
		adapter:   adapter,
		extractor: extractor,
		machine:   NewMachine(),
		speed:     clampSpeed(speed),
	}
}

// SetProgressReporter wires the library progress write-back.
func (p *Player) SetProgressReporter(r ProgressReporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = r
}

// SetSnapshotStore wires the reload-resilience snapshot port.
func (p *Player) SetSnapshotStore(s snapshot.Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = s
}

// OnChange registers the single observer notified after every state
// change. The callback runs without the player lock held.
func (p *Player) OnChange(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// OnSpeedChange registers the settings write-back invoked whenever the
// speed changes.
func (p *Player) OnSpeedChange(fn func(float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSpeedChange = fn
}

// State returns a copy of the observable session state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// ProcessURL cancels whatever is currently happening, fetches the URL
// through the extraction collaborator, and starts speaking the result
// from chunk 0. The returned content lets callers chain a save-to-library
// step; the error return distinguishes failure from empty success.
//
// If a newer session starts before extraction resolves, the late result
// is discarded and ErrSessionReplaced is returned.
func (p *Player) ProcessURL(ctx context.Context, url string) (*content.ExtractedContent, error) {
	p.mu.Lock()
	p.cancelSessionLocked()
	p.sessionGen++
	gen := p.sessionGen
	p.clearSessionLocked()
	p.sourceURL = url
	p.machine.Transition(StatusExtracting)
	st, fn := p.stateLocked(), p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}

	c, err := p.extractor.Extract(ctx, url)

	p.mu.Lock()
	if gen != p.sessionGen {
		p.mu.Unlock()
		log.Debug("discarding late extraction result", "url", url)
		return nil, ErrSessionReplaced
	}
	if err != nil {
		p.err = err
		p.machine.Transition(StatusIdle)
		st, fn := p.stateLocked(), p.onChange
		p.mu.Unlock()
		if fn != nil {
			fn(st)
		}
		return nil, err
	}

	p.startSessionLocked(c, url, "", 0)
	st, fn = p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	return c, nil
}

// PlayContent builds a fresh session from already-known content and
// starts speaking chunk 0 immediately, bypassing extraction.
func (p *Player) PlayContent(c *content.ExtractedContent, opts PlayOptions) {
	if c == nil {
		return
	}

	p.mu.Lock()
	p.cancelSessionLocked()
	p.sessionGen++
	p.clearSessionLocked()
	if opts.Speed > 0 {
		p.speed = clampSpeed(opts.Speed)
	}
	p.startSessionLocked(c, opts.SourceURL, opts.ItemID, opts.ResumePercent)
	st, fn := p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Play starts or resumes playback. A safe no-op without a session.
func (p *Player) Play() {
	p.mu.Lock()
	if len(p.chunks) == 0 || !p.machine.Current().CanPlay() {
		p.mu.Unlock()
		return
	}
	p.machine.Transition(StatusPlaying)

	if p.adapter.Paused() {
		// The engine can continue the same utterance in place.
		if err := p.adapter.Resume(); err != nil {
			log.Warn("engine resume failed, restarting chunk", "err", err)
			p.speakCurrentLocked()
		} else {
			p.adapter.StartKeepalive()
			p.startTickerLocked()
		}
	} else {
		// Portable contract: restart the current chunk from its start.
		p.speakCurrentLocked()
	}

	st, fn := p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Pause stops advancement, leaves the session intact for resume, and
// triggers a progress write for the current fractional position.
func (p *Player) Pause() {
	p.mu.Lock()
	if len(p.chunks) == 0 || !p.machine.Current().CanPause() {
		p.mu.Unlock()
		return
	}

	p.stopTickerLocked()
	p.adapter.StopKeepalive()
	if err := p.adapter.Pause(); err != nil {
		log.Debug("engine pause failed", "err", err)
	}
	p.machine.Transition(StatusPaused)

	itemID := p.itemID
	percent := int(math.Round(float64(p.index) / float64(len(p.chunks)) * 100))
	st, fn := p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()

	p.reportProgress(itemID, percent)
	if fn != nil {
		fn(st)
	}
}

// TogglePlay dispatches to Play or Pause based on the current state.
func (p *Player) TogglePlay() {
	p.mu.Lock()
	playing := p.machine.Current() == StatusPlaying
	p.mu.Unlock()

	if playing {
		p.Pause()
	} else {
		p.Play()
	}
}

// Seek jumps to the chunk containing the given position (seconds) and
// resumes playback. Resuming even from Paused is the chosen contract, not
// an accident. Out-of-range positions clamp silently.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	if len(p.chunks) == 0 || p.total <= 0 {
		p.mu.Unlock()
		return
	}

	seconds = math.Max(0, math.Min(seconds, p.total))
	idx := int(seconds / p.total * float64(len(p.chunks)))
	p.index = clampIndex(idx, len(p.chunks))

	p.machine.Transition(StatusPlaying)
	p.speakCurrentLocked()

	st, fn := p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// SetSpeed updates the rate multiplier. A turn-based backend cannot
// change rate mid-utterance, so while playing the current chunk restarts
// at the new rate; the audible restart is a known trade-off.
func (p *Player) SetSpeed(speed float64) {
	p.mu.Lock()
	p.speed = clampSpeed(speed)
	newSpeed := p.speed
	if p.machine.Current() == StatusPlaying && len(p.chunks) > 0 {
		p.speakCurrentLocked()
	}
	st, fn := p.stateLocked(), p.onChange
	cb := p.onSpeedChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()

	if cb != nil {
		cb(newSpeed)
	}
	if fn != nil {
		fn(st)
	}
}

// Speed returns the current rate multiplier.
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Reset pauses and discards the session, returning to Idle.
func (p *Player) Reset() {
	p.mu.Lock()
	p.cancelSessionLocked()
	p.sessionGen++
	p.clearSessionLocked()
	p.machine.Transition(StatusIdle)
	st, fn := p.stateLocked(), p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Restore rehydrates a snapshotted session in the paused state. Only
// valid before any session has started.
func (p *Player) Restore(s *snapshot.Snapshot) {
	if s == nil || s.Content == nil || len(s.Chunks) == 0 {
		return
	}

	p.mu.Lock()
	if p.machine.Current() != StatusIdle {
		p.mu.Unlock()
		return
	}

	p.sourceURL = s.SourceURL
	p.content = s.Content
	p.chunks = s.Chunks
	p.index = clampIndex(s.CurrentChunkIndex, len(s.Chunks))
	p.total = s.TotalDuration
	if p.total <= 0 {
		p.total = segment.EstimateDuration(s.Chunks)
	}
	p.elapsed = math.Max(0, math.Min(s.ElapsedTime, p.total))
	if s.Speed > 0 {
		p.speed = clampSpeed(s.Speed)
	}
	p.itemID = s.LibraryItemID

	// Restored sessions always come back paused.
	p.machine.Transition(StatusPaused)

	st, fn := p.stateLocked(), p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// AttachItem links the running session to a library item so progress
// write-back has a target. Used when content is saved mid-session.
func (p *Player) AttachItem(itemID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.content == nil {
		return
	}
	p.itemID = itemID
}

// Shutdown discards the session and releases the engine.
func (p *Player) Shutdown() error {
	p.Reset()
	return p.adapter.Shutdown()
}

// --- internals, all *Locked methods require p.mu held ---

// startSessionLocked builds the chunk sequence and starts speaking.
// startPercent maps saved progress back onto a chunk; outside (0, 100)
// playback starts at chunk 0.
func (p *Player) startSessionLocked(c *content.ExtractedContent, url, itemID string, startPercent int) {
	p.content = c
	p.sourceURL = url
	p.itemID = itemID
	p.chunks = segment.Chunks(c)
	p.total = segment.EstimateDuration(p.chunks)
	p.index = 0
	if startPercent > 0 && startPercent < 100 {
		p.index = clampIndex(startPercent*len(p.chunks)/100, len(p.chunks))
	}
	p.elapsed = 0
	p.err = nil

	p.machine.Transition(StatusPlaying)
	p.speakCurrentLocked()

	log.Debug("session started",
		"title", c.Title,
		"chunks", len(p.chunks),
		"estimated_duration", p.total)
}

// speakCurrentLocked hands the current chunk to the adapter and restarts
// the smoothing ticker. The elapsed cursor re-derives from the chunk
// boundary, keeping index and time mutually consistent.
func (p *Player) speakCurrentLocked() {
	if len(p.chunks) == 0 {
		return
	}
	p.index = clampIndex(p.index, len(p.chunks))
	p.elapsed = float64(p.index) / float64(len(p.chunks)) * p.total

	gen := p.sessionGen
	p.speakGen++
	sgen := p.speakGen
	err := p.adapter.Speak(p.chunks[p.index], p.speed, func(err error) {
		// Engine failures count as completion so playback never wedges;
		// the adapter has already logged them.
		p.chunkDone(gen, sgen)
	})
	if err != nil {
		log.Warn("failed to start utterance", "chunk", p.index, "err", err)
		p.chunkDone(gen, sgen)
	}

	p.adapter.StartKeepalive()
	p.startTickerLocked()
}

// chunkDone handles an utterance's natural completion. It defers the
// advance to a fresh goroutine so auto-advance never runs inside an
// engine callback and never grows its stack.
func (p *Player) chunkDone(gen, sgen uint64) {
	go func() {
		p.mu.Lock()
		if gen != p.sessionGen || sgen != p.speakGen || p.machine.Current() != StatusPlaying {
			// A stale callback from a replaced session or utterance.
			p.mu.Unlock()
			return
		}

		if p.index+1 < len(p.chunks) {
			p.index++
			p.speakCurrentLocked()
			st, fn := p.stateLocked(), p.onChange
			p.scheduleSnapshotLocked()
			p.mu.Unlock()
			if fn != nil {
				fn(st)
			}
			return
		}

		p.finishLocked()
	}()
}

// finishLocked handles natural completion of the last chunk: playback
// stops, the index resets for replay, and 100% progress is reported.
// Releases p.mu.
func (p *Player) finishLocked() {
	p.stopTickerLocked()
	p.adapter.StopKeepalive()
	p.machine.Transition(StatusFinished)
	p.index = 0
	p.elapsed = 0

	itemID := p.itemID
	st, fn := p.stateLocked(), p.onChange
	p.scheduleSnapshotLocked()
	p.mu.Unlock()

	log.Debug("playback finished", "item", itemID)
	p.reportProgress(itemID, 100)
	if fn != nil {
		fn(st)
	}
}

// cancelSessionLocked is the unconditional "stop whatever is happening"
// step that precedes every session replacement: no audio, timers, or
// pending snapshots from the previous session may survive it.
func (p *Player) cancelSessionLocked() {
	p.stopTickerLocked()
	if p.snapTimer != nil {
		p.snapTimer.Stop()
		p.snapTimer = nil
	}
	p.adapter.StopKeepalive()
	p.adapter.Cancel()
}

func (p *Player) clearSessionLocked() {
	p.sourceURL = ""
	p.content = nil
	p.chunks = nil
	p.index = 0
	p.elapsed = 0
	p.total = 0
	p.itemID = ""
	p.err = nil
}

func (p *Player) startTickerLocked() {
	p.stopTickerLocked()
	stop := make(chan struct{})
	p.tickerStop = stop

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if p.tickerStop != stop || p.machine.Current() != StatusPlaying {
					p.mu.Unlock()
					return
				}
				p.elapsed = math.Min(p.elapsed+tickInterval.Seconds()*p.speed, p.total)
				st, fn := p.stateLocked(), p.onChange
				p.scheduleSnapshotLocked()
				p.mu.Unlock()
				if fn != nil {
					fn(st)
				}
			}
		}
	}()
}

func (p *Player) stopTickerLocked() {
	if p.tickerStop != nil {
		close(p.tickerStop)
		p.tickerStop = nil
	}
}

// scheduleSnapshotLocked debounces a snapshot write of the current
// session. Transient flags never persist; snapshots always reload paused.
func (p *Player) scheduleSnapshotLocked() {
	if p.snapshots == nil || p.content == nil || p.machine.Current() == StatusExtracting {
		return
	}

	snap := &snapshot.Snapshot{
		SourceURL:         p.sourceURL,
		Content:           p.content,
		Chunks:            p.chunks,
		CurrentChunkIndex: p.index,
		ElapsedTime:       p.elapsed,
		TotalDuration:     p.total,
		Speed:             p.speed,
		LibraryItemID:     p.itemID,
	}
	store := p.snapshots

	if p.snapTimer != nil {
		p.snapTimer.Stop()
	}
	p.snapTimer = time.AfterFunc(snapshotDebounce, func() {
		if err := store.Save(snap); err != nil {
			log.Warn("failed to save player snapshot", "err", err)
		}
	})
}

// reportProgress launches the fire-and-forget progress write. Failures
// are logged, never surfaced; playback transitions never wait on it.
func (p *Player) reportProgress(itemID string, percent int) {
	if p.progress == nil || itemID == "" {
		return
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	progress := p.progress
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), progressTimeout)
		defer cancel()
		if err := progress.UpdateProgress(ctx, itemID, percent); err != nil {
			log.Warn("progress write failed", "item", itemID, "percent", percent, "err", err)
		}
	}()
}

func (p *Player) stateLocked() State {
	return State{
		Status:        p.machine.Current(),
		SourceURL:     p.sourceURL,
		Content:       p.content,
		Chunks:        p.chunks,
		ChunkIndex:    p.index,
		Elapsed:       p.elapsed,
		Duration:      p.total,
		Speed:         p.speed,
		LibraryItemID: p.itemID,
		Err:           p.err,
	}
}

func clampSpeed(s float64) float64 {
	return math.Max(MinSpeed, math.Min(s, MaxSpeed))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
