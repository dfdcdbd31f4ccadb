package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/maildeck/maildeck/internal/domain"
)

func TestToJSONAccounts(t *testing.T) {
	accounts := []domain.Account{
		{
			ID:        "acc-1",
			Email:     "user@example.com",
			Name:      "User",
			CreatedAt: "2026-01-15T10:00:00Z",
		},
		{
			ID: "acc-2", // provisional, OAuth not finished
		},
	}

	got := toJSONAccounts(accounts)

	if len(got) != 2 {
		t.Fatalf("got %d accounts, want 2", len(got))
	}
	if got[0].ID != "acc-1" {
		t.Errorf("got ID %q, want %q", got[0].ID, "acc-1")
	}
	if !got[0].Connected {
		t.Error("got connected=false for acc-1, want true")
	}
	if got[0].CreatedAt != "2026-01-15T10:00:00Z" {
		t.Errorf("got created_at %q, want %q", got[0].CreatedAt, "2026-01-15T10:00:00Z")
	}
	if got[1].Connected {
		t.Error("got connected=true for pending account, want false")
	}

	// Verify JSON round-trip.
	var buf bytes.Buffer
	if err := encodeJSON(&buf, got); err != nil {
		t.Fatalf("encodeJSON() error = %v", err)
	}
	var parsed []jsonAccount
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if parsed[0].Email != "user@example.com" {
		t.Errorf("round-trip: got email %q, want %q", parsed[0].Email, "user@example.com")
	}
}

func TestToJSONAccounts_Empty(t *testing.T) {
	got := toJSONAccounts(nil)
	if len(got) != 0 {
		t.Errorf("got %d accounts for nil input, want 0", len(got))
	}

	var buf bytes.Buffer
	if err := encodeJSON(&buf, got); err != nil {
		t.Fatalf("encodeJSON() error = %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("got %q, want %q", got, "[]\n")
	}
}

func TestToJSONMessages(t *testing.T) {
	messages := []domain.Message{
		{
			ID: "msg-1",
			Headers: map[string]string{
				"From":    "Alice <alice@example.com>",
				"Subject": "Hello World",
				"Date":    "Mon, 02 Mar 2026 14:30:00 +0000",
			},
			Snippet: "Hey there...",
		},
		{
			ID: "msg-2", // header-less summary
		},
	}

	got := toJSONMessages(messages)

	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].From != "Alice <alice@example.com>" {
		t.Errorf("got from %q, want %q", got[0].From, "Alice <alice@example.com>")
	}
	if got[0].Subject != "Hello World" {
		t.Errorf("got subject %q, want %q", got[0].Subject, "Hello World")
	}
	if got[0].Date == "" {
		t.Error("got empty date, want RFC3339 timestamp")
	}
	if got[1].From != "" || got[1].Subject != "" {
		t.Errorf("header-less message should have empty fields, got %+v", got[1])
	}

	// Fields are omitted when empty.
	var buf bytes.Buffer
	if err := encodeJSON(&buf, got[1]); err != nil {
		t.Fatalf("encodeJSON() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	for _, field := range []string{"from", "subject", "date", "snippet"} {
		if _, ok := raw[field]; ok {
			t.Errorf("field %q should be omitted when empty", field)
		}
	}
	if _, ok := raw["id"]; !ok {
		t.Error("id field should always be present")
	}
}

func TestJSONAction_RoundTrip(t *testing.T) {
	actions := []struct {
		name  string
		input jsonAction
	}{
		{
			name:  "login",
			input: jsonAction{OK: true, Action: "login", Email: "user@example.com"},
		},
		{
			name:  "logout",
			input: jsonAction{OK: true, Action: "logout"},
		},
		{
			name:  "connect",
			input: jsonAction{OK: true, Action: "connect", AccountID: "acc-1"},
		},
		{
			name:  "disconnect",
			input: jsonAction{OK: true, Action: "disconnect", AccountID: "acc-1"},
		},
		{
			name:  "send",
			input: jsonAction{OK: true, Action: "send", MessageID: "msg-123"},
		},
	}

	for _, tc := range actions {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encodeJSON(&buf, tc.input); err != nil {
				t.Fatalf("encodeJSON() error = %v", err)
			}

			var got jsonAction
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("failed to parse JSON: %v", err)
			}
			if !got.OK {
				t.Error("got ok=false, want true")
			}
			if got.Action != tc.input.Action {
				t.Errorf("got action %q, want %q", got.Action, tc.input.Action)
			}
			if got.MessageID != tc.input.MessageID {
				t.Errorf("got message_id %q, want %q", got.MessageID, tc.input.MessageID)
			}
			if got.Email != tc.input.Email {
				t.Errorf("got email %q, want %q", got.Email, tc.input.Email)
			}
			if got.AccountID != tc.input.AccountID {
				t.Errorf("got account_id %q, want %q", got.AccountID, tc.input.AccountID)
			}
		})
	}
}

func TestJSONAction_OmitsEmpty(t *testing.T) {
	input := jsonAction{OK: true, Action: "logout"}

	var buf bytes.Buffer
	if err := encodeJSON(&buf, input); err != nil {
		t.Fatalf("encodeJSON() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	omittedFields := []string{"message_id", "email", "account_id"}
	for _, field := range omittedFields {
		if _, ok := raw[field]; ok {
			t.Errorf("field %q should be omitted when empty, got %s", field, string(raw[field]))
		}
	}

	requiredFields := []string{"ok", "action"}
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			t.Errorf("field %q should always be present", field)
		}
	}
}
