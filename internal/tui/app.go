package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"github.com/maildeck/maildeck/internal/api"
	"github.com/maildeck/maildeck/internal/connect"
	"github.com/maildeck/maildeck/internal/domain"
	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/store"
)

type pane int

const (
	paneAccounts pane = iota
	paneList
	paneDetail
)

// Backend is the slice of the bridge client the workspace needs.
type Backend interface {
	AuthURL(ctx context.Context) (*api.AuthGrant, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListMessages(ctx context.Context, accountID string, max int) ([]domain.Message, error)
	Send(ctx context.Context, draft domain.Draft) (string, error)
	Disconnect(ctx context.Context, accountID string) error
}

// SessionSource reports who is signed in right now.
type SessionSource interface {
	CurrentUser() *identity.User
}

// --- async result messages ---

type restoredAccountMsg struct {
	accountID string
}

type accountsLoadedMsg struct {
	accounts []domain.Account
}

type accountsLoadFailedMsg struct {
	err error
}

type messagesLoadedMsg struct {
	gen      int
	messages []domain.Message
}

type messagesLoadFailedMsg struct {
	gen int
	err error
}

type authGrantMsg struct {
	grant *api.AuthGrant
}

type authGrantFailedMsg struct {
	err error
}

type gmailConnectedMsg struct {
	accountID string
}

type connectExpiredMsg struct{}

type sentMsg struct {
	id string
}

type sendFailedMsg struct {
	err error
}

type disconnectDoneMsg struct {
	err error
}

type sessionChangedMsg struct {
	user *identity.User
}

// Modal identifiers.
const (
	modalIDSignIn     = "sign_in_required"
	modalIDDisconnect = "disconnect"
	modalIDSendFailed = "send_failed"
)

// Deps carries everything the workspace model needs.
type Deps struct {
	Backend  Backend
	Sessions SessionSource
	Settings store.Store
	Logger   *slog.Logger

	// SessionEvents delivers sign-in state changes from the session guard.
	// A nil user means the session was invalidated and the UI must exit.
	SessionEvents <-chan *identity.User

	// MaxMessages is the page size for message list requests.
	MaxMessages int

	// OpenURL opens the Gmail consent page. Defaults to the system browser.
	OpenURL func(url string) error

	// ConnectInterval and ConnectTimeout tune the post-consent poll.
	ConnectInterval time.Duration
	ConnectTimeout  time.Duration
}

// Model is the root workspace model.
type Model struct {
	deps Deps

	accountsPane accountsModel
	list         listModel
	detail       detailModel
	composer     composerModel
	modal        modalModel
	statusBar    statusBar

	activePane pane

	initializing   bool
	restoreDone    bool
	accountsDone   bool
	accountsFailed bool

	connected bool
	loading   bool
	errBanner string

	activeAccountID string
	accounts        []domain.Account
	messages        []domain.Message
	selected        *domain.Message

	// msgGen invalidates in-flight message loads. Only responses tagged
	// with the current generation are applied.
	msgGen int

	width  int
	height int
}

// NewModel creates the workspace model.
func NewModel(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.OpenURL == nil {
		deps.OpenURL = browser.OpenURL
	}
	if deps.MaxMessages <= 0 {
		deps.MaxMessages = api.DefaultMaxResults
	}
	if deps.ConnectInterval <= 0 {
		deps.ConnectInterval = connect.DefaultInterval
	}
	if deps.ConnectTimeout <= 0 {
		deps.ConnectTimeout = connect.DefaultTimeout
	}

	list := newList()
	list.focused = true

	return Model{
		deps:         deps,
		accountsPane: newAccounts(),
		list:         list,
		detail:       newDetail(),
		composer:     newComposer(),
		modal:        newModal(),
		statusBar:    newStatusBar(),
		activePane:   paneList,
		initializing: true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.restoreAccountCmd(),
		m.loadAccountsCmd(),
	}
	if m.deps.SessionEvents != nil {
		cmds = append(cmds, m.waitSessionCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.width = msg.Width
		m.modal.SetSize(msg.Width, msg.Height)
		m.resizeSubModels()
		return m, nil

	case sessionChangedMsg:
		if msg.user == nil {
			return m, tea.Quit
		}
		return m, m.waitSessionCmd()

	case restoredAccountMsg:
		m.restoreDone = true
		if m.activeAccountID == "" {
			m.activeAccountID = msg.accountID
		}
		return m.maybeFinishInit()

	case accountsLoadedMsg:
		m.accountsDone = true
		m.accountsFailed = false
		m.accounts = msg.accounts
		m.accountsPane.SetAccounts(msg.accounts)
		if m.initializing {
			return m.maybeFinishInit()
		}
		return m, nil

	case accountsLoadFailedMsg:
		m.accountsDone = true
		m.accountsFailed = true
		m.deps.Logger.Warn("failed to load accounts", "error", msg.err)
		if m.initializing {
			return m.maybeFinishInit()
		}
		return m, nil

	case messagesLoadedMsg:
		if msg.gen != m.msgGen {
			return m, nil
		}
		m.loading = false
		m.errBanner = ""
		m.connected = true
		m.statusBar.connected = true
		m.messages = msg.messages
		m.list.SetMessages(msg.messages)
		// The first message becomes the current one on every fresh load.
		if len(m.messages) > 0 {
			m.selected = &m.messages[0]
			m.detail.Show(m.selected)
		} else {
			m.selected = nil
			m.detail.Close()
		}
		m.resizeSubModels()
		m.statusBar.setMessage(fmt.Sprintf("Loaded %d messages", len(msg.messages)))
		return m, nil

	case messagesLoadFailedMsg:
		if msg.gen != m.msgGen {
			return m, nil
		}
		// A failed load means the account is not usable right now.
		m.loading = false
		m.connected = false
		m.statusBar.connected = false
		m.errBanner = msg.err.Error()
		if api.IsUnauthorized(msg.err) {
			m.statusBar.setError("Backend rejected the session")
		} else {
			m.statusBar.setError("Failed to load messages")
		}
		return m, nil

	case authGrantMsg:
		// Persist the provisional id right away so the connection survives
		// a restart while the consent flow is still in the browser.
		m.activeAccountID = msg.grant.AccountID
		m.accountsPane.SetActive(msg.grant.AccountID)
		m.statusBar.setMessage("Waiting for Gmail authorization in your browser...")
		if err := m.deps.OpenURL(msg.grant.URL); err != nil {
			m.deps.Logger.Warn("failed to open browser", "error", err)
			m.statusBar.setMessage("Open this URL to authorize: " + msg.grant.URL)
		}
		return m, tea.Batch(
			m.persistAccountCmd(msg.grant.AccountID),
			m.watchConnectCmd(msg.grant.AccountID),
		)

	case authGrantFailedMsg:
		m.errBanner = msg.err.Error()
		m.statusBar.setError("Failed to start Gmail connection")
		return m, nil

	case gmailConnectedMsg:
		m.connected = true
		m.errBanner = ""
		m.activeAccountID = msg.accountID
		m.accountsPane.SetActive(msg.accountID)
		m.statusBar.setMessage("Gmail connected")
		return m, tea.Batch(
			m.persistAccountCmd(msg.accountID),
			m.loadAccountsCmd(),
			m.reloadMessages(),
		)

	case connectExpiredMsg:
		m.statusBar.setError("Gmail authorization timed out")
		return m, nil

	case sentMsg:
		m.composer.Close()
		m.statusBar.setMessage("Email sent")
		m.setFocus(paneList)
		return m, m.reloadMessages()

	case sendFailedMsg:
		// Keep the composer contents so the draft is not lost.
		m.modal.Alert(modalIDSendFailed, "Send failed", msg.err.Error())
		return m, nil

	case disconnectDoneMsg:
		// The workspace resets whether or not the backend call succeeded.
		if msg.err != nil {
			m.deps.Logger.Warn("disconnect request failed", "error", msg.err)
			m.errBanner = msg.err.Error()
		}
		m.msgGen++ // any in-flight load is now stale
		m.connected = false
		m.messages = nil
		m.selected = nil
		m.list.SetMessages(nil)
		m.detail.Close()
		m.composer.Open()
		m.activeAccountID = ""
		m.accountsPane.SetActive("")
		m.setFocus(paneList)
		m.statusBar.setMessage("Account disconnected")
		return m, tea.Batch(
			m.forgetAccountCmd(),
			m.loadAccountsCmd(),
		)

	// --- sub-model emitted messages ---

	case messageSelectedMsg:
		if msg.index < 0 || msg.index >= len(m.messages) {
			return m, nil
		}
		m.selected = &m.messages[msg.index]
		m.detail.Show(m.selected)
		m.setFocus(paneDetail)
		m.resizeSubModels()
		return m, nil

	case closeDetailMsg:
		m.selected = nil
		m.detail.Close()
		m.setFocus(paneList)
		m.resizeSubModels()
		return m, nil

	case accountSelectedMsg:
		return m.switchAccount(msg.accountID)

	case sendMsg:
		if m.deps.Sessions == nil || m.deps.Sessions.CurrentUser() == nil {
			m.modal.Alert(modalIDSignIn, "Sign in required", "Run `maildeck login` before sending email.")
			return m, nil
		}
		if err := msg.draft.Validate(); err != nil {
			m.modal.Alert(modalIDSendFailed, "Send failed", err.Error())
			return m, nil
		}
		m.statusBar.setMessage("Sending...")
		return m, m.sendCmd(msg.draft)

	case cancelComposeMsg:
		m.composer.Close()
		m.setFocus(paneList)
		return m, nil

	case modalDismissedMsg:
		return m, nil

	case modalConfirmedMsg:
		if msg.id == modalIDDisconnect && msg.ok {
			m.statusBar.setMessage("Disconnecting...")
			return m, m.disconnectCmd(m.activeAccountID)
		}
		return m, nil

	// --- key events ---

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal captures everything while visible.
	if m.modal.IsVisible() {
		var cmd tea.Cmd
		m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}

	// Composer gets all key events when visible, except quit.
	if m.composer.IsVisible() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Compose):
		// Compose replaces the detail view; the selection does not survive.
		m.selected = nil
		m.detail.Close()
		m.composer.Open()
		m.statusBar.composeVisible = true
		m.resizeComposer()
		return m, nil

	case key.Matches(msg, keys.Connect):
		if m.deps.Sessions == nil || m.deps.Sessions.CurrentUser() == nil {
			m.modal.Alert(modalIDSignIn, "Sign in required", "Run `maildeck login` before connecting a Gmail account.")
			return m, nil
		}
		m.statusBar.setMessage("Requesting authorization URL...")
		return m, m.authURLCmd()

	case key.Matches(msg, keys.Disconnect):
		if m.activeAccountID == "" {
			m.statusBar.setMessage("No account to disconnect")
			return m, nil
		}
		m.modal.Confirm(modalIDDisconnect, "Disconnect account",
			"Disconnect "+m.accountLabel(m.activeAccountID)+"? Stored credentials are removed from the backend.")
		return m, nil

	case key.Matches(msg, keys.Refresh):
		if m.activeAccountID == "" {
			return m, nil
		}
		m.statusBar.setMessage("Refreshing...")
		return m, m.reloadMessages()

	case key.Matches(msg, keys.Dismiss):
		m.errBanner = ""
		return m, nil

	case key.Matches(msg, keys.Tab):
		if m.activePane == paneAccounts {
			if m.selected != nil {
				m.setFocus(paneDetail)
			} else {
				m.setFocus(paneList)
			}
		} else {
			m.setFocus(paneAccounts)
		}
		return m, nil
	}

	// Delegate to focused sub-model.
	var cmd tea.Cmd
	switch m.activePane {
	case paneAccounts:
		m.accountsPane, cmd = m.accountsPane.Update(msg)
	case paneList:
		m.list, cmd = m.list.Update(msg)
	case paneDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

// switchAccount activates another connected account. The stored active id
// is updated right away; the message list is cleared and only reloaded
// immediately when no account was connected yet.
func (m Model) switchAccount(accountID string) (tea.Model, tea.Cmd) {
	if accountID == m.activeAccountID {
		m.setFocus(paneList)
		return m, nil
	}

	wasConnected := m.connected
	m.msgGen++ // drop loads still in flight for the previous account
	m.activeAccountID = accountID
	m.accountsPane.SetActive(accountID)
	m.connected = m.accountConnected(accountID)
	m.messages = nil
	m.selected = nil
	m.list.SetMessages(nil)
	m.detail.Close()
	m.setFocus(paneList)
	m.statusBar.setMessage("Switched to " + m.accountLabel(accountID))

	cmds := []tea.Cmd{m.persistAccountCmd(accountID)}
	if !wasConnected && m.connected {
		cmds = append(cmds, m.reloadMessages())
	}
	return m, tea.Batch(cmds...)
}

// maybeFinishInit leaves the initializing state once both the stored
// account restore and the first account list have arrived.
func (m Model) maybeFinishInit() (tea.Model, tea.Cmd) {
	if !m.restoreDone || !m.accountsDone {
		return m, nil
	}
	m.initializing = false

	// Prefer the stored account when it is still connected; otherwise fall
	// back to the first connected one. When the account list itself failed
	// to load the stored id cannot be verified, so it is kept as-is and
	// the message load is attempted anyway: the two mount loads are
	// independent, and an unusable account fails on the load path.
	if !m.accountsFailed && !m.accountConnected(m.activeAccountID) {
		m.activeAccountID = ""
		for _, a := range m.accounts {
			if a.Connected() {
				m.activeAccountID = a.ID
				break
			}
		}
	}
	m.accountsPane.SetActive(m.activeAccountID)

	if m.activeAccountID == "" {
		m.connected = false
		m.composer.Open()
		m.setFocus(paneList)
		m.statusBar.setMessage("No Gmail account connected. Press g to connect.")
		return m, nil
	}

	m.connected = m.accountConnected(m.activeAccountID)
	m.setFocus(paneList)
	return m, m.reloadMessages()
}

func (m Model) accountConnected(id string) bool {
	if id == "" {
		return false
	}
	for _, a := range m.accounts {
		if a.ID == id {
			return a.Connected()
		}
	}
	return false
}

func (m Model) accountLabel(id string) string {
	for _, a := range m.accounts {
		if a.ID == id {
			return a.DisplayName()
		}
	}
	return id
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.initializing {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			titleStyle.Render("maildeck")+"\n\n"+mutedTextStyle.Render("Connecting..."))
	}
	if m.modal.IsVisible() {
		return m.modal.View()
	}

	sidebarWidth, contentWidth := m.layoutWidths()
	contentHeight := m.contentHeight()

	sidebarView := sidebarStyle.
		Width(sidebarWidth).
		Height(contentHeight).
		Render(m.accountsPane.View())

	var contentView string
	switch {
	case m.composer.IsVisible():
		contentView = lipgloss.NewStyle().
			Width(contentWidth).
			Height(contentHeight).
			Render(m.composer.View())

	case m.selected != nil:
		listHeight := contentHeight / 2
		detailHeight := contentHeight - listHeight

		listView := listStyle.
			Width(contentWidth).
			Height(listHeight).
			Render(m.list.View())
		detailView := contentStyle.
			Width(contentWidth).
			Height(detailHeight).
			Render(m.detail.View())
		contentView = lipgloss.JoinVertical(lipgloss.Left, listView, detailView)

	default:
		body := m.list.View()
		if !m.connected {
			body = mutedTextStyle.Render("No Gmail account connected.\nPress g to connect one.")
		} else if m.loading && len(m.messages) == 0 {
			body = mutedTextStyle.Render("Loading messages...")
		}
		contentView = listStyle.
			Width(contentWidth).
			Height(contentHeight).
			Render(body)
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebarView, contentView)

	rows := []string{main}
	if m.errBanner != "" {
		rows = append(rows, bannerStyle.Width(m.width).Render("✗ "+m.errBanner+"  (x to dismiss)"))
	}
	rows = append(rows, m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// --- focus and layout ---

func (m *Model) setFocus(p pane) {
	m.activePane = p
	m.accountsPane.focused = p == paneAccounts
	m.list.focused = p == paneList
	m.detail.focused = p == paneDetail
	m.statusBar.connected = m.connected
	m.statusBar.detailVisible = p == paneDetail
	m.statusBar.composeVisible = m.composer.IsVisible()
}

func (m Model) layoutWidths() (sidebarWidth, contentWidth int) {
	sidebarWidth = m.width / 5
	if sidebarWidth < 20 {
		sidebarWidth = 20
	}
	contentWidth = m.width - sidebarWidth - 2
	return
}

func (m Model) contentHeight() int {
	h := m.height - 3
	if m.errBanner != "" {
		h--
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) resizeSubModels() {
	sidebarWidth, contentWidth := m.layoutWidths()
	contentHeight := m.contentHeight()

	m.accountsPane.SetSize(sidebarWidth-4, contentHeight-4)

	if m.selected != nil {
		listHeight := contentHeight / 2
		detailHeight := contentHeight - listHeight
		m.list.SetSize(contentWidth-4, listHeight-2)
		m.detail.SetSize(contentWidth-6, detailHeight-4)
	} else {
		m.list.SetSize(contentWidth-4, contentHeight-2)
	}

	m.resizeComposer()
}

func (m *Model) resizeComposer() {
	_, contentWidth := m.layoutWidths()
	m.composer.SetSize(contentWidth, m.contentHeight())
}

// --- async commands ---

func (m Model) restoreAccountCmd() tea.Cmd {
	settings := m.deps.Settings
	logger := m.deps.Logger
	return func() tea.Msg {
		if settings == nil {
			return restoredAccountMsg{}
		}
		id, err := settings.Setting(context.Background(), store.KeyActiveAccount)
		if err != nil && !errors.Is(err, store.ErrNoSetting) {
			logger.Warn("failed to restore active account", "error", err)
		}
		return restoredAccountMsg{accountID: id}
	}
}

func (m Model) persistAccountCmd(accountID string) tea.Cmd {
	settings := m.deps.Settings
	logger := m.deps.Logger
	return func() tea.Msg {
		if settings == nil {
			return nil
		}
		if err := settings.SetSetting(context.Background(), store.KeyActiveAccount, accountID); err != nil {
			logger.Warn("failed to persist active account", "error", err)
		}
		return nil
	}
}

func (m Model) forgetAccountCmd() tea.Cmd {
	settings := m.deps.Settings
	logger := m.deps.Logger
	return func() tea.Msg {
		if settings == nil {
			return nil
		}
		if err := settings.DeleteSetting(context.Background(), store.KeyActiveAccount); err != nil {
			logger.Warn("failed to clear active account", "error", err)
		}
		return nil
	}
}

func (m Model) loadAccountsCmd() tea.Cmd {
	backend := m.deps.Backend
	return func() tea.Msg {
		accounts, err := backend.ListAccounts(context.Background())
		if err != nil {
			return accountsLoadFailedMsg{err: err}
		}
		return accountsLoadedMsg{accounts: accounts}
	}
}

// reloadMessages bumps the generation and starts a load for the active
// account. Responses from earlier generations are dropped on arrival.
// Without an active account there is nothing to load.
func (m *Model) reloadMessages() tea.Cmd {
	if m.activeAccountID == "" {
		m.loading = false
		return nil
	}
	m.msgGen++
	m.loading = true
	gen := m.msgGen
	accountID := m.activeAccountID
	max := m.deps.MaxMessages
	backend := m.deps.Backend
	return func() tea.Msg {
		messages, err := backend.ListMessages(context.Background(), accountID, max)
		if err != nil {
			return messagesLoadFailedMsg{gen: gen, err: err}
		}
		return messagesLoadedMsg{gen: gen, messages: messages}
	}
}

func (m Model) authURLCmd() tea.Cmd {
	backend := m.deps.Backend
	return func() tea.Msg {
		grant, err := backend.AuthURL(context.Background())
		if err != nil {
			return authGrantFailedMsg{err: err}
		}
		return authGrantMsg{grant: grant}
	}
}

// watchConnectCmd polls the backend until the provisional account reports
// an email address, then announces the connection.
func (m Model) watchConnectCmd(accountID string) tea.Cmd {
	backend := m.deps.Backend
	logger := m.deps.Logger
	interval := m.deps.ConnectInterval
	timeout := m.deps.ConnectTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
		defer cancel()

		events := connect.Watch(ctx, backend, accountID, interval, timeout, logger)
		ev, ok := <-events
		if !ok {
			return connectExpiredMsg{}
		}
		return gmailConnectedMsg{accountID: ev.AccountID}
	}
}

func (m Model) sendCmd(draft domain.Draft) tea.Cmd {
	backend := m.deps.Backend
	return func() tea.Msg {
		id, err := backend.Send(context.Background(), draft)
		if err != nil {
			return sendFailedMsg{err: err}
		}
		return sentMsg{id: id}
	}
}

func (m Model) disconnectCmd(accountID string) tea.Cmd {
	backend := m.deps.Backend
	return func() tea.Msg {
		return disconnectDoneMsg{err: backend.Disconnect(context.Background(), accountID)}
	}
}

func (m Model) waitSessionCmd() tea.Cmd {
	events := m.deps.SessionEvents
	return func() tea.Msg {
		user, ok := <-events
		if !ok {
			return sessionChangedMsg{user: nil}
		}
		return sessionChangedMsg{user: user}
	}
}

// Run starts the workspace under a Bubble Tea program.
func Run(deps Deps) error {
	prog := tea.NewProgram(NewModel(deps), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
