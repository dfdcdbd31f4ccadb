package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maildeck/maildeck/internal/domain"
)

// printJSON emits v on stdout; every command routes --json output
// through here so the format stays uniform.
func printJSON(v any) error {
	return encodeJSON(os.Stdout, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Account JSON types (accounts)
// ---------------------------------------------------------------------------

type jsonAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Connected bool   `json:"connected"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for _, a := range accounts {
		j := jsonAccount{
			ID:        a.ID,
			Email:     a.Email,
			Name:      a.Name,
			Connected: a.Connected(),
		}
		if t := a.Created(); !t.IsZero() {
			j.CreatedAt = t.Format(time.RFC3339)
		}
		out = append(out, j)
	}
	return out
}

// ---------------------------------------------------------------------------
// Message JSON type (messages)
// ---------------------------------------------------------------------------

type jsonMessage struct {
	ID      string `json:"id"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	Date    string `json:"date,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

func toJSONMessages(messages []domain.Message) []jsonMessage {
	out := make([]jsonMessage, 0, len(messages))
	for _, m := range messages {
		j := jsonMessage{
			ID:      m.ID,
			From:    m.From(),
			Subject: m.Subject(),
			Snippet: m.Snippet,
		}
		if t := m.Date(); !t.IsZero() {
			j.Date = t.Format(time.RFC3339)
		}
		out = append(out, j)
	}
	return out
}

// ---------------------------------------------------------------------------
// Action JSON type (login, logout, connect, disconnect, send)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK        bool   `json:"ok"`
	Action    string `json:"action"`
	MessageID string `json:"message_id,omitempty"`
	Email     string `json:"email,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}
