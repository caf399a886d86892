// Package ui provides the terminal interface for audiotext.
package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"

	"github.com/audiotext/audiotext/content"
	"github.com/audiotext/audiotext/library"
	"github.com/audiotext/audiotext/tts"
)

const statusMessageTimeout = 3 * time.Second

// Deps carries the application collaborators the UI drives.
type Deps struct {
	Player  *tts.Player
	Library library.Store
}

// NewProgram returns the Tea program for the full-screen app.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("starting audiotext", "engine", cfg.Engine, "speed", cfg.Speed)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(newModel(cfg, deps), opts...)

	// The player notifies from its own goroutines; Send is the one safe
	// way into the Tea loop.
	deps.Player.OnChange(func(st tts.State) {
		p.Send(playerStateMsg(st))
	})
	return p
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	playerStateMsg          tts.State
	contentReadyMsg         struct{ content *content.ExtractedContent }
	libraryLoadedMsg        []*library.Item
	itemSavedMsg            struct{ item *library.Item }
	itemDeletedMsg          struct{ id string }
	favoriteToggledMsg      struct{ id string }
	statusMessageTimeoutMsg struct{}
)

// state is the top-level application state.
type state int

const (
	stateHome state = iota
	statePlayer
	stateLibrary
)

func (s state) String() string {
	return map[state]string{
		stateHome:    "home",
		statePlayer:  "player",
		stateLibrary: "library",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	deps   Deps
	width  int
	height int
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	// Sub-models
	home    homeModel
	player  playerModel
	library libraryModel

	statusMessage string
}

func newModel(cfg Config, deps Deps) tea.Model {
	if cfg.GlamourStyle == "" || cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}

	common := commonModel{cfg: cfg, deps: deps}
	return model{
		common:  &common,
		state:   stateHome,
		home:    newHomeModel(&common),
		player:  newPlayerModel(&common),
		library: newLibraryModel(&common),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.home.init(), loadLibraryCmd(m.common.deps.Library)}
	if m.common.cfg.StartURL != "" {
		cmds = append(cmds, processURLCmd(m.common.deps.Player, m.common.cfg.StartURL))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// The library filter and the URL prompt both type the letter.
			if !m.capturingInput() {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.home.setSize(msg.Width, msg.Height)
		m.player.setSize(msg.Width, msg.Height)
		m.library.setSize(msg.Width, msg.Height)

	case playerStateMsg:
		st := tts.State(msg)
		m.player.state = st
		// Extraction and playback pull the player view forward.
		if m.state == stateHome && (st.Status == tts.StatusPlaying || st.Extracting()) {
			m.state = statePlayer
		}
		if st.Status == tts.StatusIdle && st.Err != nil && m.state == statePlayer {
			m.state = stateHome
			m.home.err = st.Err
		}

	case contentReadyMsg:
		m.state = statePlayer
		cmds = append(cmds, m.player.setContent(msg.content))

	case errMsg:
		log.Error("ui error", "err", msg.err)
		if m.state == stateHome || m.state == statePlayer {
			m.home.err = msg.err
			m.state = stateHome
		}

	case libraryLoadedMsg:
		m.library.setItems(msg)
		m.home.recent = msg

	case itemSavedMsg:
		m.common.deps.Player.AttachItem(msg.item.ID)
		m.player.savedItemID = msg.item.ID
		m.statusMessage = "Saved to library"
		cmds = append(cmds,
			loadLibraryCmd(m.common.deps.Library),
			statusTimeoutCmd())

	case itemDeletedMsg, favoriteToggledMsg:
		cmds = append(cmds, loadLibraryCmd(m.common.deps.Library))

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
	}

	switch m.state {
	case stateHome:
		home, cmd := m.home.update(msg, &m.state)
		m.home = home
		cmds = append(cmds, cmd)
	case statePlayer:
		player, cmd := m.player.update(msg, &m.state)
		m.player = player
		cmds = append(cmds, cmd)
	case stateLibrary:
		lib, cmd := m.library.update(msg, &m.state)
		m.library = lib
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorStyle.Render("Fatal error: "+m.fatalErr.Error()) + "\n"
	}

	var view string
	switch m.state {
	case statePlayer:
		view = m.player.view()
	case stateLibrary:
		view = m.library.view()
	default:
		view = m.home.view()
	}

	if m.statusMessage != "" {
		view += "\n" + statusStyle.Render(m.statusMessage)
	}
	return view
}

// capturingInput reports whether a text field currently owns the
// keyboard.
func (m model) capturingInput() bool {
	switch m.state {
	case stateHome:
		return m.home.input.Focused()
	case stateLibrary:
		return m.library.filtering
	}
	return false
}

// --- commands ---

func processURLCmd(p *tts.Player, url string) tea.Cmd {
	return func() tea.Msg {
		c, err := p.ProcessURL(context.Background(), url)
		if err != nil {
			if errors.Is(err, tts.ErrSessionReplaced) {
				// A newer session took over; nothing to show.
				return nil
			}
			return errMsg{err}
		}
		return contentReadyMsg{c}
	}
}

func loadLibraryCmd(store library.Store) tea.Cmd {
	return func() tea.Msg {
		items, err := store.List(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return libraryLoadedMsg(items)
	}
}

func saveToLibraryCmd(store library.Store, c *content.ExtractedContent, sourceURL string) tea.Cmd {
	return func() tea.Msg {
		item, err := store.Add(context.Background(), c, sourceURL)
		if err != nil {
			return errMsg{err}
		}
		return itemSavedMsg{item}
	}
}

func deleteItemCmd(store library.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if err := store.Delete(context.Background(), id); err != nil {
			return errMsg{err}
		}
		return itemDeletedMsg{id}
	}
}

func toggleFavoriteCmd(store library.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := store.ToggleFavorite(context.Background(), id); err != nil {
			return errMsg{err}
		}
		return favoriteToggledMsg{id}
	}
}

func statusTimeoutCmd() tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}
