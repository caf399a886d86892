package tts

import "testing"

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusExtracting, "extracting"},
		{StatusPaused, "paused"},
		{StatusPlaying, "playing"},
		{StatusFinished, "finished"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   Status
		isActive bool
		canPlay  bool
		canPause bool
	}{
		{StatusIdle, false, false, false},
		{StatusExtracting, false, false, false},
		{StatusPlaying, true, false, true},
		{StatusPaused, true, true, false},
		{StatusFinished, true, true, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsActive(); got != tt.isActive {
			t.Errorf("%v.IsActive() = %v, want %v", tt.status, got, tt.isActive)
		}
		if got := tt.status.CanPlay(); got != tt.canPlay {
			t.Errorf("%v.CanPlay() = %v, want %v", tt.status, got, tt.canPlay)
		}
		if got := tt.status.CanPause(); got != tt.canPause {
			t.Errorf("%v.CanPause() = %v, want %v", tt.status, got, tt.canPause)
		}
	}
}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []Status
		want bool
	}{
		{
			name: "full playback lifecycle",
			path: []Status{StatusExtracting, StatusPlaying, StatusPaused, StatusPlaying, StatusFinished},
			want: true,
		},
		{
			name: "restore straight to paused",
			path: []Status{StatusPaused},
			want: true,
		},
		{
			name: "new url while playing",
			path: []Status{StatusExtracting, StatusPlaying, StatusExtracting},
			want: true,
		},
		{
			name: "replay after finish",
			path: []Status{StatusExtracting, StatusPlaying, StatusFinished, StatusPlaying},
			want: true,
		},
		{
			name: "idle cannot finish",
			path: []Status{StatusFinished},
			want: false,
		},
		{
			name: "extracting cannot pause",
			path: []Status{StatusExtracting, StatusPaused},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			got := true
			for _, s := range tt.path {
				got = m.Transition(s)
			}
			if got != tt.want {
				t.Errorf("final Transition() = %v, want %v (at %v)", got, tt.want, m.Current())
			}
		})
	}
}

func TestMachineSelfTransition(t *testing.T) {
	m := NewMachine()
	m.Transition(StatusExtracting)
	m.Transition(StatusPlaying)

	if !m.Transition(StatusPlaying) {
		t.Error("self-transition while playing rejected")
	}
	if m.Current() != StatusPlaying {
		t.Errorf("Current() = %v after self-transition, want playing", m.Current())
	}
}

func TestMachineIllegalMoveLeavesStateUnchanged(t *testing.T) {
	m := NewMachine()
	if m.Transition(StatusFinished) {
		t.Error("idle -> finished allowed")
	}
	if m.Current() != StatusIdle {
		t.Errorf("Current() = %v after rejected transition, want idle", m.Current())
	}
}
