package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/audiotext/audiotext/content"
	"github.com/audiotext/audiotext/tts"
	"github.com/audiotext/audiotext/tts/segment"
)

const (
	seekStep     = 15.0 // seconds per arrow key press
	speedStep    = 0.25
	chunkContext = 2 // chunks shown around the current one
)

// playerModel is the playback screen. It has two modes: the follow view
// that highlights the chunk being spoken, and a transcript view that
// renders the whole article with glamour for reading along.
type playerModel struct {
	common *commonModel
	state  tts.State

	bar        progress.Model
	transcript viewport.Model
	showFull   bool
	keys       playerKeyMap
	help       help.Model

	// rendered remembers which content the transcript was built from so
	// resizes and new sessions trigger a re-render.
	rendered    *content.ExtractedContent
	savedItemID string
}

func newPlayerModel(common *commonModel) playerModel {
	bar := progress.New(progress.WithGradient("#5A56E0", "#EE6FF8"))
	bar.ShowPercentage = false

	return playerModel{
		common:     common,
		bar:        bar,
		transcript: viewport.New(80, 20),
		keys:       newPlayerKeyMap(),
		help:       help.New(),
	}
}

func (m *playerModel) setSize(width, height int) {
	m.bar.Width = max(10, width-8)
	m.transcript.Width = width
	m.transcript.Height = max(3, height-10)
	m.help.Width = width
	m.rendered = nil
}

// setContent resets per-session view state for freshly extracted content.
func (m *playerModel) setContent(*content.ExtractedContent) tea.Cmd {
	m.savedItemID = ""
	m.rendered = nil
	return nil
}

func (m playerModel) update(msg tea.Msg, appState *state) (playerModel, tea.Cmd) {
	player := m.common.deps.Player

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.PlayPause):
			player.TogglePlay()
		case key.Matches(msg, m.keys.SeekBack):
			player.Seek(m.state.Elapsed - seekStep)
		case key.Matches(msg, m.keys.SeekAhead):
			player.Seek(m.state.Elapsed + seekStep)
		case key.Matches(msg, m.keys.SpeedUp):
			player.SetSpeed(player.Speed() + speedStep)
		case key.Matches(msg, m.keys.SpeedDown):
			player.SetSpeed(player.Speed() - speedStep)
		case key.Matches(msg, m.keys.Save):
			if m.state.Content != nil && m.itemID() == "" {
				return m, saveToLibraryCmd(m.common.deps.Library, m.state.Content, m.state.SourceURL)
			}
		case key.Matches(msg, m.keys.Favorite):
			if id := m.itemID(); id != "" {
				return m, toggleFavoriteCmd(m.common.deps.Library, id)
			}
		case key.Matches(msg, m.keys.CopyLink):
			if m.state.SourceURL != "" {
				if err := clipboard.WriteAll(m.state.SourceURL); err != nil {
					log.Debug("clipboard write failed", "err", err)
				}
			}
		case key.Matches(msg, m.keys.Transcript):
			m.showFull = !m.showFull
		case key.Matches(msg, m.keys.NewLink):
			player.Reset()
			*appState = stateHome
		case key.Matches(msg, m.keys.Library):
			*appState = stateLibrary
		default:
			switch msg.String() {
			case "?":
				m.help.ShowAll = !m.help.ShowAll
			case "esc":
				*appState = stateHome
			}
		}
	}

	if m.showFull {
		if m.rendered != m.state.Content && m.state.Content != nil {
			m.transcript.SetContent(m.renderMarkdown())
			m.transcript.GotoTop()
			m.rendered = m.state.Content
		}
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m playerModel) itemID() string {
	if m.savedItemID != "" {
		return m.savedItemID
	}
	return m.state.LibraryItemID
}

func (m playerModel) view() string {
	st := m.state
	if st.Extracting() {
		return "\n  " + subtleStyle.Render("Extracting "+st.SourceURL+"…") + "\n"
	}
	if st.Content == nil {
		return "\n  " + subtleStyle.Render("Nothing playing.") + "\n"
	}

	var b strings.Builder
	title := runewidth.Truncate(st.Content.Title, max(20, m.common.width-4), "…")
	b.WriteString("\n  " + titleStyle.Render(title) + "\n")
	if st.Content.Author != "" {
		b.WriteString("  " + authorStyle.Render("by "+st.Content.Author) + "\n")
	}
	b.WriteString("\n")

	if m.showFull {
		b.WriteString(m.transcript.View() + "\n")
	} else {
		b.WriteString(m.followView())
	}

	b.WriteString("\n" + m.transportView() + "\n")
	b.WriteString("  " + m.help.View(m.keys) + "\n")
	return b.String()
}

// followView shows the chunks around the one being spoken. Meta chunks
// are spoken but not worth displaying.
func (m playerModel) followView() string {
	st := m.state
	width := max(20, m.common.width-4)

	spoken := make([]int, 0, len(st.Chunks))
	for i, chunk := range st.Chunks {
		if segment.IsMeta(chunk) {
			continue
		}
		spoken = append(spoken, i)
	}
	if len(spoken) == 0 {
		return ""
	}

	pos := len(spoken) - 1
	for i, idx := range spoken {
		if idx >= st.ChunkIndex {
			pos = i
			break
		}
	}

	lo := max(0, pos-chunkContext)
	hi := min(len(spoken), pos+chunkContext+1)

	var b strings.Builder
	for i := lo; i < hi; i++ {
		text := wordwrap.String(strings.TrimSpace(st.Chunks[spoken[i]]), width)
		style := chunkStyle
		if spoken[i] == st.ChunkIndex {
			style = currentChunkStyle
		}
		for _, line := range strings.Split(text, "\n") {
			b.WriteString("  " + style.Render(line) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown renders the article through glamour, falling back to the
// raw text if the renderer cannot be built.
func (m *playerModel) renderMarkdown() string {
	c := m.state.Content
	width := int(m.common.cfg.GlamourMaxWidth)
	if width == 0 || width > m.common.width {
		width = max(20, m.common.width-2)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.common.cfg.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Debug("glamour renderer unavailable", "err", err)
		return c.Content
	}

	var md strings.Builder
	md.WriteString("# " + c.Title + "\n\n")
	if c.Author != "" {
		md.WriteString("_by " + c.Author + "_\n\n")
	}
	md.WriteString(c.Content)

	out, err := r.Render(md.String())
	if err != nil {
		log.Debug("glamour render failed", "err", err)
		return c.Content
	}
	return out
}

// transportView is the progress bar, clock, and playback indicators.
func (m playerModel) transportView() string {
	st := m.state

	ratio := 0.0
	if st.Duration > 0 {
		ratio = st.Elapsed / st.Duration
	}

	icon := "▶"
	switch st.Status {
	case tts.StatusPaused:
		icon = "⏸"
	case tts.StatusFinished:
		icon = "✓"
	}

	clock := fmt.Sprintf("%s / %s", formatTime(st.Elapsed), formatTime(st.Duration))
	speed := speedStyle.Render(fmt.Sprintf("%.2gx", st.Speed))
	chunk := subtleStyle.Render(fmt.Sprintf("chunk %d/%d", st.ChunkIndex+1, len(st.Chunks)))

	saved := ""
	if m.itemID() != "" {
		saved = " " + favoriteStyle.Render("●")
	}

	return "  " + icon + " " + m.bar.ViewAs(ratio) + "\n" +
		"  " + subtleStyle.Render(clock) + "  " + speed + "  " + chunk + saved
}

// formatTime renders seconds as m:ss, or h:mm:ss past the hour.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	mn := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mn, s)
	}
	return fmt.Sprintf("%d:%02d", mn, s)
}
