package tts

// Status represents the playback state machine's current state.
type Status int

const (
	// StatusIdle indicates no session exists.
	StatusIdle Status = iota
	// StatusExtracting indicates the session is awaiting content.
	StatusExtracting
	// StatusPaused indicates a session exists and is not advancing.
	StatusPaused
	// StatusPlaying indicates the session is actively speaking.
	StatusPlaying
	// StatusFinished indicates playback ran to natural completion; the
	// session is kept with the index reset so it can replay.
	StatusFinished
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusExtracting:
		return "extracting"
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// IsActive returns true when a resumable session exists.
func (s Status) IsActive() bool {
	return s == StatusPlaying || s == StatusPaused || s == StatusFinished
}

// CanPlay returns true when Play may start or resume speech.
func (s Status) CanPlay() bool {
	return s == StatusPaused || s == StatusFinished
}

// CanPause returns true when Pause has anything to do.
func (s Status) CanPause() bool {
	return s == StatusPlaying
}

// Machine validates playback state transitions. Every transition the
// player performs must be present in the table; self-transitions are
// always allowed (seek while playing, a second ProcessURL while one is
// still extracting).
type Machine struct {
	current     Status
	transitions map[Status][]Status
}

// NewMachine creates a state machine starting at StatusIdle.
func NewMachine() *Machine {
	return &Machine{
		current: StatusIdle,
		transitions: map[Status][]Status{
			// Paused from Idle covers snapshot restore at startup.
			StatusIdle:       {StatusExtracting, StatusPlaying, StatusPaused},
			StatusExtracting: {StatusPlaying, StatusIdle},
			StatusPlaying:    {StatusPaused, StatusFinished, StatusExtracting, StatusIdle},
			StatusPaused:     {StatusPlaying, StatusExtracting, StatusIdle},
			StatusFinished:   {StatusPlaying, StatusExtracting, StatusIdle},
		},
	}
}

// Transition attempts to move to the given status and reports whether the
// move was legal. Illegal moves leave the machine unchanged.
func (m *Machine) Transition(to Status) bool {
	if to == m.current {
		return true
	}
	for _, s := range m.transitions[m.current] {
		if s == to {
			m.current = to
			return true
		}
	}
	return false
}

// Current returns the current status.
func (m *Machine) Current() Status {
	return m.current
}
