// Package piper synthesizes speech with the piper TTS subprocess and
// plays the raw PCM it produces through an oto audio context.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/audiotext/audiotext/tts"
)

const (
	// sampleRate is piper's raw output rate for the medium voices.
	sampleRate = 22050
	// channels is mono; piper emits a single channel.
	channels = 1
	// bytesPerSample is 16-bit signed little-endian PCM.
	bytesPerSample = 2

	// synthTimeout bounds one subprocess run.
	synthTimeout = 30 * time.Second
	// monitorInterval is how often the playback monitor polls for end of
	// audio.
	monitorInterval = 50 * time.Millisecond
)

// positionReader wraps the PCM buffer so the playback monitor can tell a
// drained buffer from a stalled device.
type positionReader struct {
	r   *bytes.Reader
	pos int64
}

func (p *positionReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		atomic.AddInt64(&p.pos, int64(n))
	}
	return n, err
}

func (p *positionReader) position() int64 {
	return atomic.LoadInt64(&p.pos)
}

// utterance is one synthesize-then-play cycle. stop tears down the
// monitor; once keeps the completion signal single-shot across
// cancel/finish races.
type utterance struct {
	done func(err error)
	stop chan struct{}
	once sync.Once
}

func (u *utterance) fire(err error) {
	u.once.Do(func() {
		if u.done != nil {
			u.done(err)
		}
	})
}

// Engine synthesizes each chunk with the piper binary and plays the PCM
// through a process-wide oto context. The PCM buffer stays referenced by
// the engine until the utterance ends so the device never reads freed
// memory.
type Engine struct {
	mu         sync.Mutex
	binary     string
	modelPath  string
	audioCtx   *oto.Context
	player     *oto.Player
	pcm        []byte
	current    *utterance
	cancelSynt context.CancelFunc
	paused     bool
	shutdown   bool
}

// New locates the piper binary and a voice model and brings up the audio
// device. modelPath may be empty, in which case the standard voice
// directories are searched for an .onnx model.
func New(modelPath string) (*Engine, error) {
	binary, err := findBinary()
	if err != nil {
		return nil, err
	}

	if modelPath == "" {
		modelPath, err = findModel()
		if err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: voice model %s: %v", tts.ErrEngineUnavailable, modelPath, err)
	}

	audioCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: audio device: %v", tts.ErrEngineUnavailable, err)
	}
	<-ready

	return &Engine{binary: binary, modelPath: modelPath, audioCtx: audioCtx}, nil
}

func findBinary() (string, error) {
	if path, err := exec.LookPath("piper"); err == nil {
		return path, nil
	}
	for _, path := range []string{
		"/usr/local/bin/piper",
		"/usr/bin/piper",
		"/opt/piper/piper",
		filepath.Join(os.Getenv("HOME"), ".local/bin/piper"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: piper binary not found", tts.ErrEngineUnavailable)
}

func findModel() (string, error) {
	dirs := []string{
		filepath.Join(os.Getenv("HOME"), ".local/share/piper-voices"),
		filepath.Join(os.Getenv("HOME"), ".config/piper/voices"),
		"/usr/share/piper-voices",
		"/usr/local/share/piper-voices",
	}
	for _, dir := range dirs {
		var found string
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || found != "" {
				return filepath.SkipDir
			}
			if !info.IsDir() && strings.HasSuffix(path, ".onnx") {
				found = path
			}
			return nil
		})
		if found != "" {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: no piper voice model found", tts.ErrEngineUnavailable)
}

// Speak synthesizes the text at the given rate and plays it. Synthesis
// runs in the background; done fires from the playback monitor when the
// audio drains, or with the synthesis error.
func (e *Engine) Speak(text string, rate float64, done func(err error)) error {
	if rate <= 0 {
		rate = 1
	}

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return tts.ErrEngineShutdown
	}
	e.stopLocked()

	ctx, cancel := context.WithTimeout(context.Background(), synthTimeout)
	e.cancelSynt = cancel

	u := &utterance{done: done, stop: make(chan struct{})}
	e.current = u
	e.paused = false
	e.mu.Unlock()

	go e.run(ctx, u, text, rate)
	return nil
}

// run synthesizes and then plays one utterance.
func (e *Engine) run(ctx context.Context, u *utterance, text string, rate float64) {
	pcm, err := e.synthesize(ctx, text, rate)
	if err != nil {
		e.mu.Lock()
		if e.current == u {
			e.current = nil
			e.cancelSynt = nil
		}
		e.mu.Unlock()
		u.fire(fmt.Errorf("piper synthesis: %w", err))
		return
	}

	e.mu.Lock()
	if e.current != u {
		// Cancelled while synthesizing.
		e.mu.Unlock()
		u.fire(nil)
		return
	}
	reader := &positionReader{r: bytes.NewReader(pcm)}
	player := e.audioCtx.NewPlayer(reader)
	e.pcm = pcm
	e.player = player
	// A pause issued mid-synthesis holds the audio here until Resume.
	if !e.paused {
		player.Play()
	}
	e.mu.Unlock()

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-u.stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.current != u {
				e.mu.Unlock()
				return
			}
			finished := !e.paused && !player.IsPlaying() && reader.position() >= int64(len(pcm))
			if finished {
				e.clearPlaybackLocked()
				e.current = nil
			}
			e.mu.Unlock()

			if finished {
				u.fire(nil)
				return
			}
		}
	}
}

// synthesize runs the piper subprocess and returns raw PCM. Rate maps to
// piper's length_scale, which stretches phoneme durations, so it is the
// inverse of the speed multiplier.
func (e *Engine) synthesize(ctx context.Context, text string, rate float64) ([]byte, error) {
	lengthScale := 1.0 / rate

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary,
		"--model", e.modelPath,
		"--output_raw",
		"--length_scale", fmt.Sprintf("%.2f", lengthScale),
	)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(errOut.String()))
	}

	pcm := out.Bytes()
	if len(pcm) < bytesPerSample {
		return nil, fmt.Errorf("piper produced no audio")
	}
	// Drop a trailing odd byte rather than feed a misaligned sample to
	// the device.
	pcm = pcm[:len(pcm)/bytesPerSample*bytesPerSample]
	return pcm, nil
}

// Cancel stops synthesis and playback for the current utterance.
func (e *Engine) Cancel() {
	e.mu.Lock()
	u := e.current
	e.stopLocked()
	e.mu.Unlock()

	if u != nil {
		go u.fire(nil)
	}
}

// Pause suspends playback, keeping the device and buffer in place. The
// player may not exist yet while synthesis runs; recording the pause
// anyway keeps run from starting audio the user already stopped.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	e.paused = true
	if e.player != nil {
		e.player.Pause()
	}
	return nil
}

// Resume continues paused playback. A no-op when nothing is paused.
// Clearing the flag before the player exists lets a synthesis still in
// flight start playing on completion.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.paused {
		return nil
	}
	e.paused = false
	if e.player != nil {
		e.player.Play()
	}
	return nil
}

// Speaking reports whether an utterance is live, including one still in
// synthesis.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Paused reports whether playback is suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Shutdown stops everything and suspends the audio device. The oto
// context has no close; suspend is the deepest teardown it offers.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	u := e.current
	e.stopLocked()
	e.shutdown = true
	audioCtx := e.audioCtx
	e.mu.Unlock()

	if u != nil {
		go u.fire(nil)
	}
	if audioCtx != nil {
		if err := audioCtx.Suspend(); err != nil {
			log.Debug("suspending audio context failed", "err", err)
		}
	}
	return nil
}

// stopLocked tears down the current utterance: synthesis is cancelled,
// the monitor told to exit, the device player closed.
func (e *Engine) stopLocked() {
	if e.cancelSynt != nil {
		e.cancelSynt()
		e.cancelSynt = nil
	}
	if e.current != nil {
		close(e.current.stop)
		e.current = nil
	}
	e.clearPlaybackLocked()
}

func (e *Engine) clearPlaybackLocked() {
	if e.player != nil {
		if err := e.player.Close(); err != nil {
			log.Debug("closing audio player failed", "err", err)
		}
		e.player = nil
	}
	e.pcm = nil
	e.paused = false
}
