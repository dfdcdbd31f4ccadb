package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maildeck/maildeck/internal/domain"
)

// closeDetailMsg is sent when the user leaves the detail view.
type closeDetailMsg struct{}

// detailModel renders a single selected message.
type detailModel struct {
	message      *domain.Message
	content      string
	scrollOffset int
	maxScroll    int
	width        int
	height       int
	focused      bool
}

func newDetail() detailModel {
	return detailModel{}
}

func (d detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	if !d.focused || d.message == nil {
		return d, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if d.scrollOffset > 0 {
				d.scrollOffset--
			}
		case key.Matches(msg, keys.Down):
			if d.scrollOffset < d.maxScroll {
				d.scrollOffset++
			}
		case key.Matches(msg, keys.Back):
			return d, func() tea.Msg { return closeDetailMsg{} }
		}
	}
	return d, nil
}

func (d detailModel) View() string {
	if d.message == nil || d.width == 0 || d.height == 0 {
		return ""
	}

	lines := strings.Split(d.content, "\n")
	visible := d.height
	if visible < 1 {
		visible = 1
	}
	start := d.scrollOffset
	if start > len(lines) {
		start = len(lines)
	}
	end := start + visible
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// Show displays a message in the detail pane.
func (d *detailModel) Show(msg *domain.Message) {
	d.message = msg
	d.scrollOffset = 0
	d.render()
}

// Close clears the detail pane.
func (d *detailModel) Close() {
	d.message = nil
	d.content = ""
	d.scrollOffset = 0
	d.maxScroll = 0
}

// SetSize updates the pane dimensions and reflows the content.
func (d *detailModel) SetSize(w, h int) {
	d.width = w
	d.height = h
	if d.message != nil {
		d.render()
	}
}

func (d *detailModel) render() {
	msg := d.message
	var b strings.Builder

	writeHeader := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(mutedTextStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	writeHeader("From:    ", msg.From())
	writeHeader("To:      ", msg.Header(domain.HeaderTo))
	if t := msg.Date(); !t.IsZero() {
		writeHeader("Date:    ", t.Format("Jan 2, 2006 3:04 PM"))
	}
	writeHeader("Subject: ", msg.Subject())

	sepWidth := d.width
	if sepWidth < 20 {
		sepWidth = 20
	}
	b.WriteString(mutedTextStyle.Render(strings.Repeat("─", sepWidth)))
	b.WriteString("\n\n")

	// The backend's metadata projection carries only the snippet.
	if msg.Snippet != "" {
		b.WriteString(wrap(msg.Snippet, sepWidth))
	} else {
		b.WriteString(mutedTextStyle.Render("(no preview available)"))
	}

	d.content = b.String()

	lines := strings.Count(d.content, "\n") + 1
	visible := d.height
	if visible < 1 {
		visible = 1
	}
	d.maxScroll = lines - visible
	if d.maxScroll < 0 {
		d.maxScroll = 0
	}
	if d.scrollOffset > d.maxScroll {
		d.scrollOffset = d.maxScroll
	}
}

// wrap breaks text into lines no wider than width, on word boundaries.
func wrap(s string, width int) string {
	if width < 10 {
		width = 10
	}
	words := strings.Fields(s)
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}
