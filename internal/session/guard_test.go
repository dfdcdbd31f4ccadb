package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/store"
)

// fakeProvider is a controllable identity.Provider.
type fakeProvider struct {
	mu         sync.Mutex
	user       *identity.User
	refreshErr error
	signOutErr error
	signedOut  bool
	refreshes  int
}

func (f *fakeProvider) CurrentUser(ctx context.Context) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, nil
}

func (f *fakeProvider) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = true
	f.user = nil
	return f.signOutErr
}

func (f *fakeProvider) failRefresh(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshErr = err
}

// fakeStore records whether Reset was called.
type fakeStore struct {
	mu       sync.Mutex
	settings map[string]string
	resets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: map[string]string{"active_account": "acc-1"}}
}

func (f *fakeStore) Setting(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.settings[key]
	if !ok {
		return "", store.ErrNoSetting
	}
	return v, nil
}

func (f *fakeStore) SetSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = value
	return nil
}

func (f *fakeStore) DeleteSetting(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.settings, key)
	return nil
}

func (f *fakeStore) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.settings = map[string]string{}
	return nil
}

func (f *fakeStore) Close() error { return nil }

func TestGuard_StartWithValidSession(t *testing.T) {
	p := &fakeProvider{user: &identity.User{UID: "u1", Email: "u@example.com"}}
	s := newFakeStore()
	g := NewGuard(p, s, time.Hour, nil)
	defer g.Stop()

	var notified *identity.User
	g.OnChange(func(u *identity.User) { notified = u })

	user, err := g.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if user == nil || user.UID != "u1" {
		t.Fatalf("Start() user = %+v, want u1", user)
	}
	if p.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1 (validated on start)", p.refreshes)
	}
	if notified == nil || notified.UID != "u1" {
		t.Errorf("OnChange received %+v, want u1", notified)
	}
	if got := g.CurrentUser(); got == nil || got.UID != "u1" {
		t.Errorf("CurrentUser() = %+v, want u1", got)
	}
}

func TestGuard_StartWithNoSession(t *testing.T) {
	g := NewGuard(&fakeProvider{}, newFakeStore(), time.Hour, nil)
	user, err := g.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if user != nil {
		t.Errorf("Start() = %+v, want nil user", user)
	}
}

func TestGuard_StartRefreshFailureForcesLogout(t *testing.T) {
	p := &fakeProvider{
		user:       &identity.User{UID: "u1"},
		refreshErr: errors.New("invalid_grant"),
	}
	s := newFakeStore()
	g := NewGuard(p, s, time.Hour, nil)

	user, err := g.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if user != nil {
		t.Errorf("Start() = %+v, want nil after failed validation", user)
	}
	if !p.signedOut {
		t.Error("provider not signed out")
	}
	if s.resets != 1 {
		t.Errorf("store resets = %d, want 1", s.resets)
	}
}

func TestGuard_LogoutIdempotentAndClearsStorage(t *testing.T) {
	p := &fakeProvider{
		user:       &identity.User{UID: "u1"},
		signOutErr: errors.New("provider unreachable"),
	}
	s := newFakeStore()
	g := NewGuard(p, s, time.Hour, nil)
	defer g.Stop()

	if _, err := g.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Sign-out error must not propagate; storage is cleared anyway.
	g.Logout(context.Background())
	if g.CurrentUser() != nil {
		t.Error("user should be nil after Logout")
	}
	if s.resets != 1 {
		t.Errorf("store resets = %d, want 1", s.resets)
	}
	if len(s.settings) != 0 {
		t.Errorf("settings not cleared: %v", s.settings)
	}

	// Second logout is safe.
	g.Logout(context.Background())
	if g.CurrentUser() != nil {
		t.Error("user should stay nil")
	}
}

func TestGuard_PeriodicValidationSignsOutOnFailure(t *testing.T) {
	p := &fakeProvider{user: &identity.User{UID: "u1"}}
	s := newFakeStore()
	g := NewGuard(p, s, 10*time.Millisecond, nil)

	ended := make(chan struct{})
	g.OnChange(func(u *identity.User) {
		if u == nil {
			close(ended)
		}
	})

	if _, err := g.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Let the next tick fail.
	p.failRefresh(errors.New("token revoked"))

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forced logout")
	}
	if g.CurrentUser() != nil {
		t.Error("user should be nil after forced logout")
	}
}
