package domain

import "time"

// Account is one Gmail account connected through the bridge backend.
// The ID correlates the account with the OAuth credentials the backend
// holds; the client never sees those credentials.
type Account struct {
	ID        string `json:"accountId"`
	Email     string `json:"emailAddress"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Connected reports whether the backend has completed the OAuth exchange
// for this account. The backend only records an email address once the
// callback has stored a refresh token.
func (a Account) Connected() bool {
	return a.Email != ""
}

// DisplayName returns the best human-readable name for the account.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// Created parses the backend's RFC 3339 creation timestamp. The zero
// time is returned when the field is absent or malformed.
func (a Account) Created() time.Time {
	t, err := time.Parse(time.RFC3339, a.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
