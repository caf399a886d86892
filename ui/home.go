package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/audiotext/audiotext/library"
	"github.com/audiotext/audiotext/tts"
)

// maxRecentItems caps the library preview under the URL prompt.
const maxRecentItems = 3

// homeModel is the URL prompt screen.
type homeModel struct {
	common  *commonModel
	input   textinput.Model
	spinner spinner.Model
	busy    bool
	err     error
	recent  []*library.Item
}

func newHomeModel(common *commonModel) homeModel {
	ti := textinput.New()
	ti.Placeholder = "https://example.com/article"
	ti.Prompt = "│ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(indigo)
	ti.CharLimit = 2048
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	return homeModel{common: common, input: ti, spinner: sp}
}

func (m homeModel) init() tea.Cmd {
	return textinput.Blink
}

func (m *homeModel) setSize(width, _ int) {
	m.input.Width = width - 6
}

func (m homeModel) update(msg tea.Msg, appState *state) (homeModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			url := strings.TrimSpace(m.input.Value())
			if url == "" {
				return m, nil
			}
			m.err = nil
			m.busy = true
			return m, tea.Batch(
				m.spinner.Tick,
				processURLCmd(m.common.deps.Player, url),
			)
		case "ctrl+l":
			*appState = stateLibrary
			return m, nil
		case "esc":
			if m.common.deps.Player.State().Status.IsActive() {
				*appState = statePlayer
				return m, nil
			}
		}

	case playerStateMsg:
		st := tts.State(msg)
		m.busy = st.Extracting()
		if st.Err != nil {
			m.err = st.Err
		}

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m homeModel) view() string {
	var b strings.Builder

	b.WriteString("\n  " + logoStyle.Render("Audiotext") + "\n\n")
	b.WriteString("  " + subtleStyle.Render("Paste a link to listen to it.") + "\n\n")
	b.WriteString("  " + m.input.View() + "\n\n")

	if m.busy {
		b.WriteString("  " + m.spinner.View() + " Extracting content…\n")
	}
	if m.err != nil {
		b.WriteString("  " + errorStyle.Render("✗ "+m.err.Error()) + "\n")
	}

	if len(m.recent) > 0 {
		b.WriteString("\n  " + subtleStyle.Render("Recently saved") + "\n")
		width := uint(max(24, m.common.width-24)) //nolint:gosec
		for _, item := range m.recent[:min(maxRecentItems, len(m.recent))] {
			title := truncate.StringWithTail(item.Title, width, "…")
			meta := humanize.Time(item.SavedAt)
			if item.Progress > 0 {
				meta = fmt.Sprintf("%s · %d%%", meta, item.Progress)
			}
			b.WriteString("  " + chunkStyle.Render(title) + "  " + subtleStyle.Render(meta) + "\n")
		}
	}

	b.WriteString("\n  " + helpStyle.Render("enter: listen • ctrl+l: library • ctrl+c: quit") + "\n")
	return b.String()
}
