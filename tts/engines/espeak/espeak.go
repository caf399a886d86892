//go:build !windows

// Package espeak drives a command-line speech synthesizer (espeak-ng,
// espeak, or the macOS say command) one utterance per process.
package espeak

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/audiotext/audiotext/tts"
)

// baseWordsPerMinute is the synthesizer speed at rate 1.0.
const baseWordsPerMinute = 175

// utterance tracks one child process. once keeps the completion callback
// from double-firing when a kill races the natural exit.
type utterance struct {
	cmd  *exec.Cmd
	done func(err error)
	once sync.Once
}

func (u *utterance) fire(err error) {
	u.once.Do(func() {
		if u.done != nil {
			u.done(err)
		}
	})
}

// Engine speaks by running a synthesizer subprocess per chunk. Pause and
// resume map to SIGSTOP and SIGCONT on the child.
type Engine struct {
	mu       sync.Mutex
	binary   string
	isSay    bool
	current  *utterance
	paused   bool
	shutdown bool
}

// New locates a usable synthesizer binary. It returns
// ErrEngineUnavailable when none is installed.
func New() (*Engine, error) {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(name); err == nil {
			return &Engine{binary: path}, nil
		}
	}
	if path, err := exec.LookPath("say"); err == nil {
		return &Engine{binary: path, isSay: true}, nil
	}
	return nil, fmt.Errorf("%w: no espeak-ng, espeak, or say binary in PATH", tts.ErrEngineUnavailable)
}

// Speak starts a synthesizer process for the text. done fires from the
// process waiter goroutine when the child exits for any reason.
func (e *Engine) Speak(text string, rate float64, done func(err error)) error {
	if rate <= 0 {
		rate = 1
	}
	wpm := int(baseWordsPerMinute * rate)

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return tts.ErrEngineShutdown
	}
	e.killLocked()

	var cmd *exec.Cmd
	if e.isSay {
		cmd = exec.Command(e.binary, "-r", fmt.Sprint(wpm), text)
	} else {
		cmd = exec.Command(e.binary, "-s", fmt.Sprint(wpm), text)
	}

	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("starting synthesizer: %w", err)
	}

	u := &utterance{cmd: cmd, done: done}
	e.current = u
	e.paused = false
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		e.mu.Lock()
		if e.current == u {
			e.current = nil
			e.paused = false
		}
		e.mu.Unlock()

		// A kill from Cancel surfaces as an exit error; the caller tells
		// the two apart, not us.
		u.fire(err)
	}()

	return nil
}

// Cancel kills the current synthesizer process, if any.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.killLocked()
	e.mu.Unlock()
}

// Pause suspends the synthesizer process mid-utterance.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.current.cmd.Process == nil {
		return nil
	}
	if err := e.current.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("suspending synthesizer: %w", err)
	}
	e.paused = true
	return nil
}

// Resume continues a suspended synthesizer process. A no-op when nothing
// is paused.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.paused || e.current == nil || e.current.cmd.Process == nil {
		return nil
	}
	if err := e.current.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("resuming synthesizer: %w", err)
	}
	e.paused = false
	return nil
}

// Speaking reports whether a synthesizer process is live.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Paused reports whether the synthesizer process is suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Shutdown kills any live process and refuses further speech.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	e.killLocked()
	e.shutdown = true
	e.mu.Unlock()
	return nil
}

// killLocked terminates the current process. A suspended child must be
// continued first or the kill never delivers.
func (e *Engine) killLocked() {
	if e.current == nil || e.current.cmd.Process == nil {
		e.current = nil
		e.paused = false
		return
	}
	if e.paused {
		_ = e.current.cmd.Process.Signal(syscall.SIGCONT)
	}
	if err := e.current.cmd.Process.Kill(); err != nil {
		log.Debug("failed to kill synthesizer process", "err", err)
	}
	e.current = nil
	e.paused = false
}
