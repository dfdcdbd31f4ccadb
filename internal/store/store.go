package store

import (
	"context"
	"errors"
)

// KeyActiveAccount is the single durable UI key: the id of the last
// selected Gmail account, restored on the next launch.
const KeyActiveAccount = "active_account"

// ErrNoSetting is returned when a setting has never been written.
var ErrNoSetting = errors.New("setting not found")

// Store is the durable client-side state. Messages and accounts are never
// cached here; the backend is the source of truth for both.
type Store interface {
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// Reset clears all durable state. Forced logout calls this.
	Reset(ctx context.Context) error

	Close() error
}
