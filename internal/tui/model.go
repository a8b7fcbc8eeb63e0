package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"gorm.io/gorm"
)

type tickMsg time.Time

// Engine is the surface the console needs from the relay engine.
type Engine interface {
	NodeID() string
	Label() string
	Publish(kind, destID, payload string) (store.Message, error)
}

type model struct {
	db       *gorm.DB
	engine   Engine
	peers    *discovery.Tracker
	viewport viewport.Model
	textInput textinput.Model
	history  string
	status   string
	ready    bool
}

func initialModel(db *gorm.DB, eng Engine, peers *discovery.Tracker) model {
	ti := textinput.New()
	ti.Placeholder = "/send SOS <text>  |  /send ALERT@node <text>  |  plain text"
	ti.Focus()
	ti.CharLimit = 512

	history, _ := buildHistory(db, eng.NodeID())
	if history == "" {
		history = "ResQ mesh console. Messages will appear here.\n"
	}

	return model{
		db:      db,
		engine:  eng,
		peers:   peers,
		textInput: ti,
		history: history,
		status:  fmt.Sprintf("node %s (%s)", shortID(eng.NodeID()), eng.Label()),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tickMsg:
		newHistory, err := buildHistory(m.db, m.engine.NodeID())
		if err == nil && newHistory != m.history {
			m.history = newHistory
			m.viewport.SetContent(m.history)
			m.viewport.GotoBottom()
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				break
			}
			if input == "/quit" {
				return m, tea.Quit
			}
			m.status = m.execute(input)
			m.textInput.Reset()
		}

	case tea.WindowSizeMsg:
		footerHeight := 2 // status + input
		if !m.ready {
			m.viewport = viewport.New(msg.Width-sidebarStyle.GetWidth(), msg.Height-footerHeight)
			m.viewport.SetContent(m.history)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - sidebarStyle.GetWidth()
			m.viewport.Height = msg.Height - footerHeight
		}
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// execute runs one console command and returns the status line.
func (m model) execute(input string) string {
	kind, dest, text, err := parseInput(input)
	if err != nil {
		return err.Error()
	}
	msg, err := m.engine.Publish(kind, dest, text)
	if err != nil {
		return fmt.Sprintf("send failed: %v", err)
	}
	target := "<broadcast>"
	if dest != "" {
		target = dest
	}
	return fmt.Sprintf("sent %s %s to %s", kind, shortID(msg.ID), target)
}

// parseInput understands the console grammar: "/send KIND text",
// "/send KIND@node text", or bare text for a generic broadcast.
func parseInput(input string) (kind, dest, text string, err error) {
	if !strings.HasPrefix(input, "/") {
		return store.KindText, "", input, nil
	}
	rest, ok := strings.CutPrefix(input, "/send ")
	if !ok {
		return "", "", "", fmt.Errorf("unknown command (try /send or /quit)")
	}
	rest = strings.TrimSpace(rest)
	head, body, ok := strings.Cut(rest, " ")
	if !ok || strings.TrimSpace(body) == "" {
		return "", "", "", fmt.Errorf("usage: /send KIND <text> or /send KIND@node <text>")
	}
	if k, d, ok := strings.Cut(head, "@"); ok {
		kind, dest = strings.ToUpper(k), strings.TrimSpace(d)
	} else {
		kind = strings.ToUpper(head)
	}
	return kind, dest, strings.TrimSpace(body), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// StartTUI initializes and runs the console program.
func StartTUI(db *gorm.DB, eng Engine, peers *discovery.Tracker) error {
	p := tea.NewProgram(initialModel(db, eng, peers), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
