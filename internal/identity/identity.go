// Package identity wraps the hosted identity provider that vouches for the
// signed-in user. The durable credential is a refresh token kept in the OS
// keyring; short-lived bearer tokens are minted from it on demand and
// attached to every backend request.
package identity

import "context"

// User is the signed-in identity as asserted by the provider's tokens.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Provider exposes the current session to the rest of the application.
type Provider interface {
	// CurrentUser returns the signed-in user, or nil when there is no
	// session.
	CurrentUser(ctx context.Context) (*User, error)

	// Refresh forces a new short-lived token to be minted. An error means
	// the session is no longer valid.
	Refresh(ctx context.Context) error

	// SignOut ends the session with the provider and discards the stored
	// credential.
	SignOut(ctx context.Context) error
}
