package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned when an operation needs a signed-in user and
// none exists.
var ErrNoSession = errors.New("not signed in; run 'maildeck login' first")

// SessionStore persists the identity session across restarts.
type SessionStore interface {
	Save(*Session) error
	Load() (*Session, error)
	Delete() error
}

// TokenService is the concrete identity client. It exchanges the stored
// refresh token for short-lived bearer tokens against the provider's token
// endpoint and keeps the session in a SessionStore.
type TokenService struct {
	conf  *oauth2.Config
	store SessionStore

	mu      sync.Mutex
	session *Session // cached copy of the stored session
}

// NewTokenService creates a TokenService for the given token endpoint and
// OAuth client id.
func NewTokenService(tokenURL, clientID string, store SessionStore) *TokenService {
	return &TokenService{
		conf: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{TokenURL: tokenURL},
		},
		store: store,
	}
}

// Establish signs in with a refresh token: it mints a first access token,
// derives the user from the token claims, and persists the session.
func (t *TokenService) Establish(ctx context.Context, refreshToken string) (*User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tok, err := t.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to exchange refresh token: %w", err)
	}

	user, err := userFromClaims(tok.AccessToken)
	if err != nil {
		return nil, err
	}

	session := &Session{User: *user, Token: tok}
	if err := t.store.Save(session); err != nil {
		return nil, err
	}
	t.session = session
	return user, nil
}

// CurrentUser returns the signed-in user, or nil when no session exists.
func (t *TokenService) CurrentUser(ctx context.Context) (*User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.loadLocked()
	if err != nil || s == nil {
		return nil, err
	}
	u := s.User
	return &u, nil
}

// Refresh forces a new access token. A failed exchange means the session
// is invalid.
func (t *TokenService) Refresh(ctx context.Context) error {
	_, err := t.token(ctx, true)
	return err
}

// BearerToken returns a valid access token for the current session,
// refreshing it if expired. It satisfies the backend client's TokenSource.
func (t *TokenService) BearerToken(ctx context.Context) (string, error) {
	return t.token(ctx, false)
}

// SignOut discards the stored session. It is safe to call when already
// signed out.
func (t *TokenService) SignOut(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.session = nil
	return t.store.Delete()
}

func (t *TokenService) token(ctx context.Context, force bool) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.loadLocked()
	if err != nil {
		return "", err
	}
	if s == nil || s.Token == nil || s.Token.RefreshToken == "" {
		return "", ErrNoSession
	}

	seed := s.Token
	if force {
		// Drop the cached access token so the token source has to hit
		// the provider.
		seed = &oauth2.Token{RefreshToken: s.Token.RefreshToken}
	}

	tok, err := t.conf.TokenSource(ctx, seed).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh session token: %w", err)
	}

	if tok.AccessToken != s.Token.AccessToken {
		if tok.RefreshToken == "" {
			tok.RefreshToken = s.Token.RefreshToken
		}
		s.Token = tok
		if err := t.store.Save(s); err != nil {
			return "", err
		}
	}
	return tok.AccessToken, nil
}

// loadLocked returns the cached session, reading through to the store the
// first time. Callers must hold t.mu.
func (t *TokenService) loadLocked() (*Session, error) {
	if t.session != nil {
		return t.session, nil
	}
	s, err := t.store.Load()
	if err != nil {
		return nil, err
	}
	t.session = s
	return s, nil
}

// userFromClaims decodes the identity claims carried in a JWT access
// token. The provider puts the stable user id in user_id (falling back to
// sub) and the address in email.
func userFromClaims(accessToken string) (*User, error) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("access token is not a JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}
	var claims struct {
		UserID string `json:"user_id"`
		Sub    string `json:"sub"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	uid := claims.UserID
	if uid == "" {
		uid = claims.Sub
	}
	if uid == "" {
		return nil, fmt.Errorf("token claims carry no user id")
	}
	return &User{UID: uid, Email: claims.Email}, nil
}
