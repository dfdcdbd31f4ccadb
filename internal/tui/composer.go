package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maildeck/maildeck/internal/domain"
)

// Messages emitted by composerModel.

type sendMsg struct {
	draft domain.Draft
}

type cancelComposeMsg struct{}

// Field indices within the compose form.
const (
	fieldTo      = 0
	fieldSubject = 1
	fieldBody    = 2
	fieldCount   = 3
)

// composerModel is a Bubble Tea sub-model for drafting an outgoing email.
type composerModel struct {
	toInput      textinput.Model
	subjectInput textinput.Model
	bodyInput    textarea.Model

	activeField int

	width   int
	height  int
	visible bool
}

// newComposer creates a composerModel with its inputs configured.
func newComposer() composerModel {
	to := textinput.New()
	to.Placeholder = "recipient@example.com"
	to.CharLimit = 500
	to.Prompt = ""

	subject := textinput.New()
	subject.Placeholder = "Subject"
	subject.CharLimit = 200
	subject.Prompt = ""

	body := textarea.New()
	body.Placeholder = "Write your message..."
	body.SetWidth(40)
	body.SetHeight(6)
	body.CharLimit = 0

	return composerModel{
		toInput:      to,
		subjectInput: subject,
		bodyInput:    body,
	}
}

// Update handles key events for the compose form.
func (c composerModel) Update(msg tea.Msg) (composerModel, tea.Cmd) {
	if !c.visible {
		return c, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			c.activeField = (c.activeField + 1) % fieldCount
			c.updateFocus()
			return c, nil

		case "esc":
			return c, func() tea.Msg { return cancelComposeMsg{} }

		case "ctrl+s":
			draft := c.Draft()
			return c, func() tea.Msg { return sendMsg{draft: draft} }
		}
	}

	// Delegate to the active input component.
	var cmd tea.Cmd
	switch c.activeField {
	case fieldTo:
		c.toInput, cmd = c.toInput.Update(msg)
	case fieldSubject:
		c.subjectInput, cmd = c.subjectInput.Update(msg)
	case fieldBody:
		c.bodyInput, cmd = c.bodyInput.Update(msg)
	}

	return c, cmd
}

// View renders the compose form inside a bordered box.
func (c composerModel) View() string {
	if !c.visible {
		return ""
	}

	innerWidth := c.width - 4 // border + padding
	if innerWidth < 20 {
		innerWidth = 20
	}

	labelWidth := 10
	inputWidth := innerWidth - labelWidth
	if inputWidth < 10 {
		inputWidth = 10
	}

	c.toInput.Width = inputWidth
	c.subjectInput.Width = inputWidth
	c.bodyInput.SetWidth(innerWidth)

	// Height minus border(2) padding(2) fields(2) separator(1) help(1) spacing(1).
	bodyHeight := c.height - 9
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	c.bodyInput.SetHeight(bodyHeight)

	toLabel := mutedTextStyle.Render(fmt.Sprintf("%-9s", "To:"))
	subjectLabel := mutedTextStyle.Render(fmt.Sprintf("%-9s", "Subject:"))

	separator := mutedTextStyle.Render(strings.Repeat("─", innerWidth))
	helpText := mutedTextStyle.Render("Tab:fields  Ctrl+S:send  Esc:cancel")

	rows := []string{
		toLabel + c.toInput.View(),
		subjectLabel + c.subjectInput.View(),
		separator,
		c.bodyInput.View(),
		"",
		helpText,
	}
	content := strings.Join(rows, "\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(0, 1).
		Width(c.width - 2)

	header := titleStyle.Render(" Compose ")
	return header + "\n" + boxStyle.Render(content)
}

// Open shows the composer. Any field values from an earlier failed send
// are kept so the user does not lose the draft.
func (c *composerModel) Open() {
	c.visible = true
	c.activeField = fieldTo
	c.updateFocus()
}

// Close hides the composer and clears all fields.
func (c *composerModel) Close() {
	c.visible = false
	c.clearFields()
}

// Hide hides the composer without clearing the fields.
func (c *composerModel) Hide() {
	c.visible = false
}

// SetSize updates the available dimensions for the composer.
func (c *composerModel) SetSize(w, h int) {
	c.width = w
	c.height = h
}

// IsVisible reports whether the composer is currently displayed.
func (c composerModel) IsVisible() bool {
	return c.visible
}

// Draft builds a domain.Draft from the current field values.
func (c composerModel) Draft() domain.Draft {
	return domain.Draft{
		To:      strings.TrimSpace(c.toInput.Value()),
		Subject: strings.TrimSpace(c.subjectInput.Value()),
		Body:    c.bodyInput.Value(),
	}
}

func (c *composerModel) clearFields() {
	c.toInput.SetValue("")
	c.subjectInput.SetValue("")
	c.bodyInput.SetValue("")
}

func (c *composerModel) updateFocus() {
	c.toInput.Blur()
	c.subjectInput.Blur()
	c.bodyInput.Blur()

	switch c.activeField {
	case fieldTo:
		c.toInput.Focus()
	case fieldSubject:
		c.subjectInput.Focus()
	case fieldBody:
		c.bodyInput.Focus()
	}
}
