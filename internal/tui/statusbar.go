package tui

import "github.com/charmbracelet/lipgloss"

type statusBar struct {
	message        string
	width          int
	isError        bool
	connected      bool
	detailVisible  bool
	composeVisible bool
}

func newStatusBar() statusBar {
	return statusBar{message: "Ready"}
}

func (s *statusBar) setMessage(msg string) {
	s.message = msg
	s.isError = false
}

func (s *statusBar) setError(msg string) {
	s.message = msg
	s.isError = true
}

func (s statusBar) View() string {
	msgStyle := statusBarStyle
	if s.isError {
		msgStyle = msgStyle.Foreground(errorColor)
	}

	left := s.message
	shortcuts := s.shortcuts()

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(shortcuts) - 2
	if gap < 0 {
		gap = 0
	}

	content := left + lipgloss.NewStyle().Width(gap).Render("") + mutedTextStyle.Render(shortcuts)
	return msgStyle.Width(s.width).Render(content)
}

func (s statusBar) shortcuts() string {
	switch {
	case s.composeVisible:
		return "tab:fields  ctrl+s:send  esc:cancel"
	case s.detailVisible:
		return "j/k:scroll  esc:back  c:compose"
	case !s.connected:
		return "g:connect gmail  tab:accounts  q:quit"
	default:
		return "j/k:nav  enter:open  c:compose  r:refresh  D:disconnect"
	}
}
