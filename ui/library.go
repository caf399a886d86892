package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"

	"github.com/audiotext/audiotext/library"
	"github.com/audiotext/audiotext/tts"
)

// libraryModel is the saved-items screen.
type libraryModel struct {
	common *commonModel

	items     []*library.Item
	visible   []*library.Item
	cursor    int
	filter    textinput.Model
	filtering bool
}

func newLibraryModel(common *commonModel) libraryModel {
	fi := textinput.New()
	fi.Prompt = "/"
	fi.CharLimit = 64

	return libraryModel{common: common, filter: fi}
}

func (m *libraryModel) setSize(width, _ int) {
	m.filter.Width = width - 4
}

func (m *libraryModel) setItems(items []*library.Item) {
	m.items = items
	m.applyFilter()
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

// applyFilter narrows the visible items with fuzzy matching over title
// and author.
func (m *libraryModel) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		m.visible = m.items
		return
	}

	haystack := make([]string, len(m.items))
	for i, item := range m.items {
		haystack[i] = item.Title + " " + item.Author
	}

	matches := fuzzy.Find(query, haystack)
	visible := make([]*library.Item, 0, len(matches))
	for _, match := range matches {
		visible = append(visible, m.items[match.Index])
	}
	m.visible = visible
}

func (m libraryModel) selected() *library.Item {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.visible[m.cursor]
}

func (m libraryModel) update(msg tea.Msg, appState *state) (libraryModel, tea.Cmd) {
	if m.filtering {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter.Blur()
				if msg.String() == "esc" {
					m.filter.SetValue("")
					m.applyFilter()
				}
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		m.cursor = 0
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		case "/":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		case "enter":
			if item := m.selected(); item != nil {
				m.common.deps.Player.PlayContent(item.Extracted(), tts.PlayOptions{
					ItemID:        item.ID,
					SourceURL:     item.SourceURL,
					ResumePercent: item.Progress,
				})
				*appState = statePlayer
			}
		case "f":
			if item := m.selected(); item != nil {
				return m, toggleFavoriteCmd(m.common.deps.Library, item.ID)
			}
		case "x", "delete":
			if item := m.selected(); item != nil {
				return m, deleteItemCmd(m.common.deps.Library, item.ID)
			}
		case "esc":
			*appState = stateHome
		}
	}
	return m, nil
}

func (m libraryModel) view() string {
	var b strings.Builder
	b.WriteString("\n  " + logoStyle.Render("Library") + "\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("  " + m.filter.View() + "\n\n")
	}

	if len(m.visible) == 0 {
		if len(m.items) == 0 {
			b.WriteString("  " + subtleStyle.Render("Nothing saved yet. Press s while listening to keep an article.") + "\n")
		} else {
			b.WriteString("  " + subtleStyle.Render("No matches.") + "\n")
		}
	}

	width := uint(max(20, m.common.width-30))
	for i, item := range m.visible {
		cursor := "  "
		titleLine := truncate.StringWithTail(item.Title, width, "…")
		style := chunkStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		fav := " "
		if item.Favorite {
			fav = favoriteStyle.Render("♥")
		}

		meta := fmt.Sprintf("%s · %d%% · %s",
			humanize.Time(item.SavedAt), item.Progress, item.Platform)

		b.WriteString("  " + cursor + fav + " " + style.Render(titleLine) + "\n")
		b.WriteString("      " + subtleStyle.Render(meta) + "\n")
	}

	b.WriteString("\n  " + dividerStyle.Render(strings.Repeat("─", max(10, m.common.width-4))) + "\n")
	b.WriteString("  " + helpStyle.Render("enter: listen • /: filter • f: favorite • x: delete • esc: back • q: quit") + "\n")
	return b.String()
}
