// Package session owns the process-wide identity session: who is signed
// in, whether the token still refreshes, and the forced logout path when
// it does not.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/store"
)

// DefaultValidateInterval is how often an active session is revalidated
// by force-refreshing its token.
const DefaultValidateInterval = 5 * time.Minute

// Guard tracks the authenticated user. At most one session is active at a
// time; everything downstream reads the session through the guard.
type Guard struct {
	provider identity.Provider
	store    store.Store
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	user     *identity.User
	handlers []func(*identity.User)
	stopCh   chan struct{}
}

// NewGuard creates a Guard. interval <= 0 uses DefaultValidateInterval.
func NewGuard(p identity.Provider, s store.Store, interval time.Duration, logger *slog.Logger) *Guard {
	if interval <= 0 {
		interval = DefaultValidateInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		provider: p,
		store:    s,
		interval: interval,
		logger:   logger,
	}
}

// OnChange subscribes to session changes. The callback receives the new
// user, or nil when the session ended.
func (g *Guard) OnChange(fn func(*identity.User)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, fn)
}

// Start resolves the stored session and, when one exists, validates it by
// force-refreshing the token. A refresh failure is treated as an invalid
// session: the guard signs out and clears all durable state. While a
// session is active a background ticker repeats the validation.
func (g *Guard) Start(ctx context.Context) (*identity.User, error) {
	user, err := g.provider.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if err := g.provider.Refresh(ctx); err != nil {
		g.logger.Warn("session token refresh failed, signing out", "err", err)
		g.forceLogout(ctx)
		return nil, nil
	}

	g.mu.Lock()
	g.user = user
	g.stopCh = make(chan struct{})
	stop := g.stopCh
	g.mu.Unlock()

	g.notify(user)
	go g.validateLoop(stop)
	return user, nil
}

// CurrentUser returns the active user, or nil when signed out.
func (g *Guard) CurrentUser() *identity.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

// Logout ends the session. It is idempotent and never fails: provider
// sign-out errors are logged, and durable state is cleared regardless.
func (g *Guard) Logout(ctx context.Context) {
	g.forceLogout(ctx)
}

// Stop halts the background validation without ending the session.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Guard) stopLocked() {
	if g.stopCh != nil {
		close(g.stopCh)
		g.stopCh = nil
	}
}

// validateLoop force-refreshes the token on a fixed interval for as long
// as the session lives.
func (g *Guard) validateLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := g.provider.Refresh(ctx)
			cancel()
			if err != nil {
				g.logger.Warn("periodic session validation failed, signing out", "err", err)
				g.forceLogout(context.Background())
				return
			}
		}
	}
}

// forceLogout signs out of the provider (best effort), clears all durable
// client-side state, drops the user, and notifies subscribers.
func (g *Guard) forceLogout(ctx context.Context) {
	if err := g.provider.SignOut(ctx); err != nil {
		g.logger.Warn("identity sign-out failed", "err", err)
	}
	if g.store != nil {
		if err := g.store.Reset(ctx); err != nil {
			g.logger.Warn("failed to clear local state on logout", "err", err)
		}
	}

	g.mu.Lock()
	wasActive := g.user != nil
	g.user = nil
	g.stopLocked()
	g.mu.Unlock()

	if wasActive {
		g.notify(nil)
	}
}

func (g *Guard) notify(user *identity.User) {
	g.mu.Lock()
	handlers := make([]func(*identity.User), len(g.handlers))
	copy(handlers, g.handlers)
	g.mu.Unlock()

	for _, fn := range handlers {
		fn(user)
	}
}
