// Package connect signals OAuth completion. The browser-side consent flow
// finishes against the backend, out of this process; the only observable
// effect is that the provisional account eventually reports a connected
// email address. The watcher polls for that and delivers a single event,
// the terminal counterpart of the web client's one-shot GMAIL_CONNECTED
// window message.
package connect

import (
	"context"
	"log/slog"
	"time"

	"github.com/maildeck/maildeck/internal/domain"
)

const (
	// DefaultInterval is the poll cadence while waiting for the user to
	// finish the consent flow in the browser.
	DefaultInterval = 2 * time.Second

	// DefaultTimeout bounds the wait; past it the user can still refresh
	// manually.
	DefaultTimeout = 3 * time.Minute
)

// AccountLister is the one backend call the watcher needs.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// Event reports a completed Gmail connection.
type Event struct {
	AccountID string
}

// Watch polls the backend until the account with the given id is
// connected, then delivers exactly one Event and closes the channel. The
// channel closes without an event when the timeout elapses or ctx is
// cancelled. List failures are logged and retried on the next tick; they
// never abort the watch.
func Watch(ctx context.Context, lister AccountLister, accountID string, interval, timeout time.Duration, logger *slog.Logger) <-chan Event {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan Event, 1)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				logger.Info("gave up waiting for gmail connection", "account_id", accountID)
				return
			case <-ticker.C:
				if id, ok := connected(ctx, lister, accountID, logger); ok {
					ch <- Event{AccountID: id}
					return
				}
			}
		}
	}()
	return ch
}

// connected checks whether the watched account has completed OAuth. When
// the backend reports exactly one connected account under a different id
// (it reuses existing account documents), that id is adopted.
func connected(ctx context.Context, lister AccountLister, accountID string, logger *slog.Logger) (string, bool) {
	accounts, err := lister.ListAccounts(ctx)
	if err != nil {
		logger.Debug("account poll failed", "err", err)
		return "", false
	}
	for _, acc := range accounts {
		if acc.ID == accountID && acc.Connected() {
			return acc.ID, true
		}
	}
	if len(accounts) == 1 && accounts[0].Connected() {
		return accounts[0].ID, true
	}
	return "", false
}
