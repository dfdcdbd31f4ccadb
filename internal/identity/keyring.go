package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	serviceName = "maildeck"
	sessionKey  = "session"
)

// Session is what survives restarts: the user the refresh token belongs to
// and the token itself (including any still-valid access token).
type Session struct {
	User  User          `json:"user"`
	Token *oauth2.Token `json:"token"`
}

// KeyringSessionStore persists the identity session in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type KeyringSessionStore struct{}

// NewKeyringSessionStore returns a new KeyringSessionStore.
func NewKeyringSessionStore() *KeyringSessionStore {
	return &KeyringSessionStore{}
}

// Save stores the session in the OS keyring.
func (k *KeyringSessionStore) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := keyring.Set(serviceName, sessionKey, string(data)); err != nil {
		return fmt.Errorf("failed to save session to keyring: %w", err)
	}
	return nil
}

// Load retrieves the session from the OS keyring. A missing entry returns
// (nil, nil): no session is not an error.
func (k *KeyringSessionStore) Load() (*Session, error) {
	data, err := keyring.Get(serviceName, sessionKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session from keyring: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes the session from the OS keyring. Deleting an absent
// session is not an error.
func (k *KeyringSessionStore) Delete() error {
	if err := keyring.Delete(serviceName, sessionKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete session from keyring: %w", err)
	}
	return nil
}
