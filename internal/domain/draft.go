package domain

import (
	"errors"
	"strings"
)

// Draft is the compose form: an outgoing email before it is handed to the
// backend. It is ephemeral and cleared only on a successful send.
type Draft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ErrDraftIncomplete is returned when a draft is missing a required field.
var ErrDraftIncomplete = errors.New("to, subject and body are required")

// Validate checks the same required-field rule the backend enforces.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.To) == "" ||
		strings.TrimSpace(d.Subject) == "" ||
		strings.TrimSpace(d.Body) == "" {
		return ErrDraftIncomplete
	}
	return nil
}

// Empty reports whether every field of the draft is blank.
func (d Draft) Empty() bool {
	return d.To == "" && d.Subject == "" && d.Body == ""
}
