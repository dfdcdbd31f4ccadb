package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maildeck/maildeck/internal/domain"
)

// accountSelectedMsg is sent when the user picks an account via Enter.
type accountSelectedMsg struct {
	accountID string
}

// accountsModel displays the connected Gmail accounts in the sidebar.
type accountsModel struct {
	accounts []domain.Account
	cursor   int
	activeID string
	width    int
	height   int
	focused  bool
}

func newAccounts() accountsModel {
	return accountsModel{}
}

// SetAccounts updates the account list, keeping the cursor in range.
func (a *accountsModel) SetAccounts(accounts []domain.Account) {
	a.accounts = accounts
	if a.cursor >= len(accounts) {
		a.cursor = 0
	}
}

// SetActive marks which account is currently in use.
func (a *accountsModel) SetActive(id string) {
	a.activeID = id
}

// SetSize updates the sidebar dimensions.
func (a *accountsModel) SetSize(w, h int) {
	a.width = w
	a.height = h
}

// Update handles key events for account navigation.
func (a accountsModel) Update(msg tea.Msg) (accountsModel, tea.Cmd) {
	if !a.focused || len(a.accounts) == 0 {
		return a, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			a.cursor--
			if a.cursor < 0 {
				a.cursor = len(a.accounts) - 1
			}
		case key.Matches(msg, keys.Down):
			a.cursor++
			if a.cursor >= len(a.accounts) {
				a.cursor = 0
			}
		case key.Matches(msg, keys.Enter):
			acct := a.accounts[a.cursor]
			return a, func() tea.Msg {
				return accountSelectedMsg{accountID: acct.ID}
			}
		}
	}

	return a, nil
}

// View renders the account sidebar.
func (a accountsModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("maildeck"))
	b.WriteString("\n\n")
	b.WriteString(mutedTextStyle.Render("Accounts:"))
	b.WriteString("\n")

	if len(a.accounts) == 0 {
		b.WriteString(mutedTextStyle.Render("  (none connected)"))
		return b.String()
	}

	for i, acct := range a.accounts {
		b.WriteString(a.renderLine(acct, i))
		b.WriteString("\n")
	}

	return b.String()
}

func (a accountsModel) renderLine(acct domain.Account, idx int) string {
	prefix := "  "
	if acct.ID == a.activeID {
		prefix = activeMarkStyle.Render("▶ ")
	}

	name := acct.DisplayName()
	if !acct.Connected() {
		name = name + " (pending)"
	}

	line := prefix + truncate(name, max(a.width-2, 8))
	padded := lipgloss.NewStyle().Width(max(a.width, 10)).Render(line)

	if a.focused && idx == a.cursor {
		return selectedStyle.Render(padded)
	}
	return padded
}
