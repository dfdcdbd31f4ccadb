package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maildeck/maildeck/internal/domain"
)

// messageSelectedMsg is sent when the user opens a message row.
type messageSelectedMsg struct {
	index int
}

// listModel displays the message summaries for the active account.
type listModel struct {
	messages []domain.Message
	cursor   int
	offset   int
	width    int
	height   int
	focused  bool
}

func newList() listModel {
	return listModel{}
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.messages)-1 {
				m.cursor++
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Enter):
			if len(m.messages) == 0 {
				return m, nil
			}
			idx := m.cursor
			return m, func() tea.Msg {
				return messageSelectedMsg{index: idx}
			}
		}
	}

	return m, nil
}

func (m listModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if len(m.messages) == 0 {
		return mutedTextStyle.Render("No messages")
	}

	visible := m.height
	if visible < 1 {
		visible = 1
	}

	var b strings.Builder
	end := m.offset + visible
	if end > len(m.messages) {
		end = len(m.messages)
	}
	for i := m.offset; i < end; i++ {
		if i > m.offset {
			b.WriteByte('\n')
		}
		line := m.renderRow(i)
		if i == m.cursor && m.focused {
			line = selectedStyle.Width(m.width).Render(line)
		}
		b.WriteString(line)
	}
	return b.String()
}

// SetMessages replaces the list contents and clamps the cursor.
func (m *listModel) SetMessages(messages []domain.Message) {
	m.messages = messages
	if len(messages) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(messages) {
		m.cursor = len(messages) - 1
	}
	m.adjustScroll()
}

// SetSize updates the dimensions available for rendering.
func (m *listModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.adjustScroll()
}

func (m *listModel) adjustScroll() {
	visible := m.height
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m listModel) renderRow(idx int) string {
	msg := m.messages[idx]

	from := domain.SenderName(msg.From())
	if from == "" {
		from = "Unknown"
	}
	subject := msg.Subject()
	if subject == "" {
		subject = "(no subject)"
	}
	date := relativeDate(msg.Date())

	fromWidth := 18
	dateWidth := len(date)
	subjectWidth := m.width - fromWidth - dateWidth - 4 // two "  " gaps
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	fromCol := lipgloss.NewStyle().Width(fromWidth).Render(truncate(from, fromWidth))
	subjectCol := lipgloss.NewStyle().Width(subjectWidth).Render(truncate(subject, subjectWidth))
	dateCol := mutedTextStyle.Width(dateWidth).Render(date)

	return fromCol + "  " + subjectCol + "  " + dateCol
}

// --- utility functions ---

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func relativeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
