package tts_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/audiotext/audiotext/content"
	"github.com/audiotext/audiotext/snapshot"
	"github.com/audiotext/audiotext/tts"
	"github.com/audiotext/audiotext/tts/engines/mock"
)

// fakeExtractor returns canned content, optionally blocking until released
// so tests can interleave a competing session mid-extraction.
type fakeExtractor struct {
	content *content.ExtractedContent
	err     error
	block   chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*content.ExtractedContent, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type progressCall struct {
	itemID  string
	percent int
}

type fakeReporter struct {
	mu    sync.Mutex
	calls []progressCall
}

func (f *fakeReporter) UpdateProgress(ctx context.Context, itemID string, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, progressCall{itemID, percent})
	return nil
}

func (f *fakeReporter) snapshot() []progressCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progressCall(nil), f.calls...)
}

type fakeSnapshotStore struct {
	mu    sync.Mutex
	saved *snapshot.Snapshot
}

func (f *fakeSnapshotStore) Save(s *snapshot.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = s
	return nil
}

func (f *fakeSnapshotStore) Load() (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

// tenChunkContent builds body text that segments into exactly n chunks of
// 30 words each, so the estimated duration is n*10 seconds.
func chunkedContent(n int) *content.ExtractedContent {
	sentence := strings.Repeat("word ", 29) + "word."
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = sentence
	}
	return &content.ExtractedContent{
		Content:  strings.Join(sentences, " "),
		Platform: "web",
	}
}

func newTestPlayer(engine *mock.Engine, extractor content.Extractor) *tts.Player {
	return tts.NewPlayer(tts.NewAdapter(engine), extractor, 1.0)
}

func TestPlayContentStartsFromChunkZero(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(3), tts.PlayOptions{SourceURL: "https://example.com/a"})

	st := p.State()
	if st.Status != tts.StatusPlaying {
		t.Fatalf("Status = %v, want playing", st.Status)
	}
	if st.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d, want 0", st.ChunkIndex)
	}
	if len(st.Chunks) != 3 {
		t.Fatalf("len(Chunks) = %d, want 3", len(st.Chunks))
	}
	if engine.SpeakCount() != 1 {
		t.Errorf("SpeakCount() = %d, want 1", engine.SpeakCount())
	}
}

func TestPlayContentResumesAtSavedProgress(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	// 10 chunks: 30% saved progress maps to chunk 3.
	p.PlayContent(chunkedContent(10), tts.PlayOptions{ItemID: "item-9", ResumePercent: 30})

	st := p.State()
	if st.Status != tts.StatusPlaying {
		t.Fatalf("Status = %v, want playing", st.Status)
	}
	if st.ChunkIndex != 3 {
		t.Errorf("ChunkIndex = %d, want 3", st.ChunkIndex)
	}
	if engine.SpeakCount() != 1 {
		t.Errorf("SpeakCount() = %d, want 1", engine.SpeakCount())
	}
}

func TestPlayContentTreatsFinishedProgressAsReplay(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(10), tts.PlayOptions{ItemID: "item-9", ResumePercent: 100})

	if idx := p.State().ChunkIndex; idx != 0 {
		t.Errorf("ChunkIndex = %d, want 0", idx)
	}
}

func TestSeekLandsOnChunkBoundary(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	// 10 chunks at 10s each: total 100s, so 55s falls in chunk 5.
	p.PlayContent(chunkedContent(10), tts.PlayOptions{})
	if d := p.State().Duration; d != 100 {
		t.Fatalf("Duration = %v, want 100", d)
	}

	p.Seek(55)

	st := p.State()
	if st.ChunkIndex != 5 {
		t.Errorf("ChunkIndex = %d, want 5", st.ChunkIndex)
	}
	if st.Status != tts.StatusPlaying {
		t.Errorf("Status = %v, want playing", st.Status)
	}
	// The ticker may have nudged the cursor past the boundary already.
	if st.Elapsed < 50 || st.Elapsed > 51 {
		t.Errorf("Elapsed = %v, want ~50 (chunk 5 boundary)", st.Elapsed)
	}
}

func TestSeekResumesFromPaused(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(10), tts.PlayOptions{})
	p.Pause()
	if st := p.State(); st.Status != tts.StatusPaused {
		t.Fatalf("Status = %v after Pause, want paused", st.Status)
	}

	p.Seek(25)

	if st := p.State(); st.Status != tts.StatusPlaying {
		t.Errorf("Status = %v after Seek from paused, want playing", st.Status)
	}
}

func TestSeekClampsOutOfRange(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)
	p.PlayContent(chunkedContent(10), tts.PlayOptions{})

	p.Seek(-50)
	if idx := p.State().ChunkIndex; idx != 0 {
		t.Errorf("ChunkIndex after Seek(-50) = %d, want 0", idx)
	}

	p.Seek(1e9)
	if idx := p.State().ChunkIndex; idx != 9 {
		t.Errorf("ChunkIndex after huge seek = %d, want 9", idx)
	}
}

func TestStaleExtractionIsDiscarded(t *testing.T) {
	first := &fakeExtractor{
		content: &content.ExtractedContent{Title: "Slow Article", Content: "Slow body here."},
		block:   make(chan struct{}),
	}
	engine := mock.New()
	p := newTestPlayer(engine, first)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.ProcessURL(context.Background(), "https://example.com/slow")
		errCh <- err
	}()

	waitFor(t, func() bool { return p.State().Status == tts.StatusExtracting }, "never entered extracting")

	// A second session takes over while the first extraction is in flight.
	fresh := chunkedContent(2)
	fresh.Title = "Fresh Article"
	p.PlayContent(fresh, tts.PlayOptions{SourceURL: "https://example.com/fresh"})

	close(first.block)

	select {
	case err := <-errCh:
		if !errors.Is(err, tts.ErrSessionReplaced) {
			t.Errorf("ProcessURL err = %v, want ErrSessionReplaced", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessURL never returned")
	}

	st := p.State()
	if st.Content == nil || st.Content.Title != "Fresh Article" {
		t.Errorf("late extraction overwrote the live session: %+v", st.Content)
	}
	if st.Status != tts.StatusPlaying {
		t.Errorf("Status = %v, want playing", st.Status)
	}
}

func TestProcessURLFailureReturnsToIdle(t *testing.T) {
	boom := errors.New("upstream exploded")
	engine := mock.New()
	p := newTestPlayer(engine, &fakeExtractor{err: boom})

	_, err := p.ProcessURL(context.Background(), "https://example.com/bad")
	if !errors.Is(err, boom) {
		t.Fatalf("ProcessURL err = %v, want %v", err, boom)
	}

	st := p.State()
	if st.Status != tts.StatusIdle {
		t.Errorf("Status = %v after failed extraction, want idle", st.Status)
	}
	if st.Err == nil {
		t.Error("State.Err = nil, want extraction error retained")
	}
}

func TestNaturalCompletionReportsOnce(t *testing.T) {
	engine := mock.New()
	reporter := &fakeReporter{}
	p := newTestPlayer(engine, nil)
	p.SetProgressReporter(reporter)

	p.PlayContent(chunkedContent(2), tts.PlayOptions{ItemID: "item-1"})

	engine.Finish()
	waitFor(t, func() bool { return p.State().ChunkIndex == 1 }, "never advanced to chunk 1")

	engine.Finish()
	waitFor(t, func() bool { return p.State().Status == tts.StatusFinished }, "never finished")

	st := p.State()
	if st.Playing() {
		t.Error("Playing() = true after completion")
	}
	if st.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d after completion, want 0 for replay", st.ChunkIndex)
	}

	waitFor(t, func() bool { return len(reporter.snapshot()) == 1 }, "completion progress never reported")
	calls := reporter.snapshot()
	if calls[0].itemID != "item-1" || calls[0].percent != 100 {
		t.Errorf("progress call = %+v, want {item-1 100}", calls[0])
	}

	// No second report may trickle in.
	time.Sleep(50 * time.Millisecond)
	if n := len(reporter.snapshot()); n != 1 {
		t.Errorf("progress reported %d times, want exactly 1", n)
	}
}

func TestPauseReportsFractionalProgress(t *testing.T) {
	engine := mock.New()
	reporter := &fakeReporter{}
	p := newTestPlayer(engine, nil)
	p.SetProgressReporter(reporter)

	p.PlayContent(chunkedContent(10), tts.PlayOptions{ItemID: "item-2"})
	p.Seek(35) // chunk 3 of 10
	p.Pause()

	waitFor(t, func() bool { return len(reporter.snapshot()) == 1 }, "pause progress never reported")
	call := reporter.snapshot()[0]
	if call.itemID != "item-2" || call.percent != 30 {
		t.Errorf("progress call = %+v, want {item-2 30}", call)
	}
}

func TestPauseAndPlayKeepChunkIndex(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(10), tts.PlayOptions{})
	p.Seek(45)
	idx := p.State().ChunkIndex

	p.Pause()
	if got := p.State().ChunkIndex; got != idx {
		t.Errorf("ChunkIndex changed on Pause: %d -> %d", idx, got)
	}

	p.Play()
	st := p.State()
	if st.ChunkIndex != idx {
		t.Errorf("ChunkIndex changed on Play: %d -> %d", idx, st.ChunkIndex)
	}
	if st.Status != tts.StatusPlaying {
		t.Errorf("Status = %v, want playing", st.Status)
	}
}

func TestTransportOpsWithoutSessionAreNoOps(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.Play()
	p.Pause()
	p.TogglePlay()
	p.Seek(30)
	p.SetSpeed(2.0)
	p.Reset()

	st := p.State()
	if st.Status != tts.StatusIdle {
		t.Errorf("Status = %v after no-op transport calls, want idle", st.Status)
	}
	if engine.SpeakCount() != 0 {
		t.Errorf("SpeakCount() = %d, want 0", engine.SpeakCount())
	}
}

func TestSetSpeedClampsAndPersists(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	var reported []float64
	p.OnSpeedChange(func(s float64) { reported = append(reported, s) })

	p.SetSpeed(10)
	if got := p.Speed(); got != 2.5 {
		t.Errorf("Speed() = %v after SetSpeed(10), want 2.5", got)
	}
	p.SetSpeed(0.1)
	if got := p.Speed(); got != 0.5 {
		t.Errorf("Speed() = %v after SetSpeed(0.1), want 0.5", got)
	}
	if len(reported) != 2 || reported[0] != 2.5 || reported[1] != 0.5 {
		t.Errorf("speed change hook got %v, want [2.5 0.5]", reported)
	}

	// Speed survives the pause/play cycle.
	p.PlayContent(chunkedContent(4), tts.PlayOptions{})
	p.SetSpeed(1.5)
	p.Pause()
	p.Play()
	if got := p.State().Speed; got != 1.5 {
		t.Errorf("Speed = %v after pause/play, want 1.5", got)
	}
	if got := engine.LastRate(); got != 1.5 {
		t.Errorf("engine LastRate() = %v, want 1.5", got)
	}
}

func TestSetSpeedWhilePlayingRestartsChunk(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(4), tts.PlayOptions{})
	before := engine.SpeakCount()
	idx := p.State().ChunkIndex

	p.SetSpeed(2.0)

	if got := engine.SpeakCount(); got != before+1 {
		t.Errorf("SpeakCount() = %d, want %d (chunk restart)", got, before+1)
	}
	if got := p.State().ChunkIndex; got != idx {
		t.Errorf("ChunkIndex = %d after speed change, want %d", got, idx)
	}
}

func TestElapsedAdvancesWhilePlaying(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(10), tts.PlayOptions{})

	waitFor(t, func() bool { return p.State().Elapsed > 0 }, "elapsed never advanced")

	p.Pause()
	frozen := p.State().Elapsed
	time.Sleep(250 * time.Millisecond)
	if got := p.State().Elapsed; got != frozen {
		t.Errorf("Elapsed advanced while paused: %v -> %v", frozen, got)
	}
}

func TestResetClearsSession(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(3), tts.PlayOptions{SourceURL: "https://example.com"})
	p.Reset()

	st := p.State()
	if st.Status != tts.StatusIdle {
		t.Errorf("Status = %v after Reset, want idle", st.Status)
	}
	if st.Content != nil || len(st.Chunks) != 0 || st.SourceURL != "" {
		t.Error("session data survived Reset")
	}
}

func TestRestoreLoadsPaused(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	c := chunkedContent(10)
	snap := &snapshot.Snapshot{
		SourceURL:         "https://example.com/restored",
		Content:           c,
		Chunks:            []string{"one.", "two.", "three."},
		CurrentChunkIndex: 2,
		ElapsedTime:       20,
		TotalDuration:     30,
		Speed:             2.0,
		LibraryItemID:     "item-3",
	}

	p.Restore(snap)

	st := p.State()
	if st.Status != tts.StatusPaused {
		t.Fatalf("Status = %v after Restore, want paused", st.Status)
	}
	if st.ChunkIndex != 2 || st.Elapsed != 20 || st.Duration != 30 {
		t.Errorf("restored position = (%d, %v, %v), want (2, 20, 30)", st.ChunkIndex, st.Elapsed, st.Duration)
	}
	if st.Speed != 2.0 {
		t.Errorf("restored Speed = %v, want 2.0", st.Speed)
	}
	if engine.SpeakCount() != 0 {
		t.Error("Restore started speech; restored sessions must load paused")
	}

	// Play picks up from the restored chunk.
	p.Play()
	if got := p.State().ChunkIndex; got != 2 {
		t.Errorf("ChunkIndex = %d after Play, want 2", got)
	}
	if engine.SpeakCount() != 1 {
		t.Errorf("SpeakCount() = %d after Play, want 1", engine.SpeakCount())
	}
}

func TestRestoreRejectsEmptySnapshot(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.Restore(nil)
	p.Restore(&snapshot.Snapshot{Content: &content.ExtractedContent{Title: "t"}})

	if st := p.State(); st.Status != tts.StatusIdle {
		t.Errorf("Status = %v after rejecting empty snapshots, want idle", st.Status)
	}
}

func TestSnapshotWrittenAfterDebounce(t *testing.T) {
	engine := mock.New()
	store := &fakeSnapshotStore{}
	p := newTestPlayer(engine, nil)
	p.SetSnapshotStore(store)

	p.PlayContent(chunkedContent(3), tts.PlayOptions{SourceURL: "https://example.com/s"})

	waitFor(t, func() bool {
		s, _ := store.Load()
		return s != nil
	}, "snapshot never written")

	s, _ := store.Load()
	if s.SourceURL != "https://example.com/s" {
		t.Errorf("snapshot SourceURL = %q", s.SourceURL)
	}
	if len(s.Chunks) != 3 {
		t.Errorf("snapshot chunks = %d, want 3", len(s.Chunks))
	}
}

func TestTogglePlayFlipsState(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(3), tts.PlayOptions{})

	p.TogglePlay()
	if st := p.State(); st.Status != tts.StatusPaused {
		t.Fatalf("Status = %v after first toggle, want paused", st.Status)
	}
	p.TogglePlay()
	if st := p.State(); st.Status != tts.StatusPlaying {
		t.Fatalf("Status = %v after second toggle, want playing", st.Status)
	}
}

func TestReplayAfterFinish(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	p.PlayContent(chunkedContent(1), tts.PlayOptions{})
	engine.Finish()
	waitFor(t, func() bool { return p.State().Status == tts.StatusFinished }, "never finished")

	p.Play()
	st := p.State()
	if st.Status != tts.StatusPlaying {
		t.Errorf("Status = %v on replay, want playing", st.Status)
	}
	if st.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d on replay, want 0", st.ChunkIndex)
	}
}

func TestOnChangeObserverSeesTransitions(t *testing.T) {
	engine := mock.New()
	p := newTestPlayer(engine, nil)

	var mu sync.Mutex
	var seen []tts.Status
	p.OnChange(func(s tts.State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	p.PlayContent(chunkedContent(2), tts.PlayOptions{})
	p.Pause()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("observer saw %d transitions, want at least 2", len(seen))
	}
	if seen[0] != tts.StatusPlaying {
		t.Errorf("first observed status = %v, want playing", seen[0])
	}
	if seen[len(seen)-1] != tts.StatusPaused {
		t.Errorf("last observed status = %v, want paused", seen[len(seen)-1])
	}
}

func ExamplePlayer() {
	engine := mock.New()
	p := tts.NewPlayer(tts.NewAdapter(engine), nil, 1.0)

	p.PlayContent(&content.ExtractedContent{
		Title:   "Example",
		Content: "First sentence. Second sentence.",
	}, tts.PlayOptions{})

	fmt.Println(p.State().Status)
	// Output: playing
}
