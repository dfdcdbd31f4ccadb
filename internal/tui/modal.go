package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// modalKind distinguishes simple alerts from yes/no confirmations.
type modalKind int

const (
	modalAlert modalKind = iota
	modalConfirm
)

// modalConfirmedMsg is sent when the user answers a confirm modal.
type modalConfirmedMsg struct {
	id string
	ok bool
}

// modalDismissedMsg is sent when an alert modal is closed.
type modalDismissedMsg struct {
	id string
}

// modalModel renders a centered overlay box on top of the workspace.
type modalModel struct {
	kind    modalKind
	id      string
	title   string
	body    string
	width   int
	height  int
	visible bool
}

func newModal() modalModel {
	return modalModel{}
}

// Alert opens a dismissable message box.
func (m *modalModel) Alert(id, title, body string) {
	m.kind = modalAlert
	m.id = id
	m.title = title
	m.body = body
	m.visible = true
}

// Confirm opens a yes/no prompt.
func (m *modalModel) Confirm(id, title, body string) {
	m.kind = modalConfirm
	m.id = id
	m.title = title
	m.body = body
	m.visible = true
}

func (m *modalModel) Close() {
	m.visible = false
}

func (m modalModel) IsVisible() bool {
	return m.visible
}

func (m *modalModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m modalModel) Update(msg tea.Msg) (modalModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	id := m.id
	switch m.kind {
	case modalAlert:
		switch keyMsg.String() {
		case "enter", "esc", "x":
			m.visible = false
			return m, func() tea.Msg { return modalDismissedMsg{id: id} }
		}

	case modalConfirm:
		switch keyMsg.String() {
		case "y", "Y", "enter":
			m.visible = false
			return m, func() tea.Msg { return modalConfirmedMsg{id: id, ok: true} }
		case "n", "N", "esc":
			m.visible = false
			return m, func() tea.Msg { return modalConfirmedMsg{id: id, ok: false} }
		}
	}

	return m, nil
}

func (m modalModel) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := m.width / 2
	if boxWidth < 30 {
		boxWidth = 30
	}
	innerWidth := boxWidth - 8 // border + padding

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(wrap(m.body, innerWidth))
	b.WriteString("\n\n")
	if m.kind == modalConfirm {
		b.WriteString(mutedTextStyle.Render("y:yes  n:no"))
	} else {
		b.WriteString(mutedTextStyle.Render("enter:ok"))
	}

	box := modalStyle.Width(boxWidth).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
