package tui

import (
	"fmt"
	"strings"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/charmbracelet/lipgloss"
	"gorm.io/gorm"
)

var (
	colorGreen = lipgloss.Color("2")
	colorGray  = lipgloss.Color("240")
	colorRed   = lipgloss.Color("196")
	colorWhite = lipgloss.Color("231")

	sosStyle = lipgloss.NewStyle().
			Background(colorRed).
			Foreground(colorWhite).
			Bold(true)

	ackedStyle = lipgloss.NewStyle().Foreground(colorGreen)

	activePeerStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	inactivePeerStyle = lipgloss.NewStyle().Foreground(colorGray)

	sidebarStyle = lipgloss.NewStyle().
			Width(26).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorGreen).
			PaddingLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	viewportStyle = lipgloss.NewStyle().PaddingLeft(1)
)

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	chatView := viewportStyle.Render(m.viewport.View())
	sidebar := m.renderSidebar()
	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, chatView, sidebar)

	return lipgloss.JoinVertical(lipgloss.Left,
		mainArea,
		statusStyle.Render(m.status),
		m.textInput.View(),
	)
}

func (m model) renderSidebar() string {
	var s strings.Builder
	s.WriteString("PEERS\n-----\n")
	for _, p := range m.peers.List() {
		label := p.Label
		if label == "" {
			label = shortID(p.ID)
		}
		if p.Active {
			s.WriteString(activePeerStyle.Render(label) + "\n")
		} else {
			s.WriteString(inactivePeerStyle.Render(label) + "\n")
		}
	}
	return sidebarStyle.Render(s.String())
}

// buildHistory renders the message stream, oldest first.
func buildHistory(db *gorm.DB, nodeID string) (string, error) {
	msgs, err := store.ListMessages(db, 50)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		sb.WriteString(formatMessage(msgs[i], nodeID) + "\n")
	}
	return sb.String(), nil
}

func formatMessage(msg store.Message, nodeID string) string {
	from := msg.OriginLabel
	if msg.OriginID == nodeID {
		from = "you"
	} else if from == "" {
		from = shortID(msg.OriginID)
	}

	var flags []string
	if msg.Acknowledged {
		flags = append(flags, "ack")
	}
	if msg.Forwarded {
		flags = append(flags, "fwd")
	}
	flagStr := ""
	if len(flags) > 0 {
		flagStr = " [" + strings.Join(flags, ",") + "]"
	}

	line := fmt.Sprintf("[%s] [%s] [hop %d/%d]%s %s: %s",
		msg.ReceivedAt.Local().Format("15:04:05"),
		msg.Kind, msg.Hops, msg.TTL, flagStr, from, msg.Payload)

	if msg.Kind == store.KindSOS {
		if msg.Acknowledged {
			return ackedStyle.Render(line)
		}
		return sosStyle.Render(line)
	}
	return line
}
