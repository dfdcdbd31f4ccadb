package connect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maildeck/maildeck/internal/domain"
)

// scriptedLister returns one canned response per call, repeating the last.
type scriptedLister struct {
	mu        sync.Mutex
	responses [][]domain.Account
	errs      []error
	calls     int
}

func (s *scriptedLister) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func TestWatch_DeliversEventWhenConnected(t *testing.T) {
	lister := &scriptedLister{responses: [][]domain.Account{
		{{ID: "acc-1"}},
		{{ID: "acc-1"}},
		{{ID: "acc-1", Email: "user@gmail.com"}},
	}}

	ch := Watch(context.Background(), lister, "acc-1", time.Millisecond, time.Second, nil)

	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without event")
		}
		if ev.AccountID != "acc-1" {
			t.Errorf("AccountID = %q, want acc-1", ev.AccountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	// One-shot: channel closes after the event.
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after the event")
	}
}

func TestWatch_AdoptsSoleConnectedAccount(t *testing.T) {
	// The backend reused an existing account doc under a different id.
	lister := &scriptedLister{responses: [][]domain.Account{
		{{ID: "acc-existing", Email: "user@gmail.com"}},
	}}

	ch := Watch(context.Background(), lister, "acc-provisional", time.Millisecond, time.Second, nil)

	select {
	case ev := <-ch:
		if ev.AccountID != "acc-existing" {
			t.Errorf("AccountID = %q, want acc-existing", ev.AccountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatch_TimesOutWithoutEvent(t *testing.T) {
	lister := &scriptedLister{responses: [][]domain.Account{
		{{ID: "acc-1"}},
	}}

	ch := Watch(context.Background(), lister, "acc-1", time.Millisecond, 20*time.Millisecond, nil)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected close without event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed")
	}
}

func TestWatch_SurvivesListFailures(t *testing.T) {
	lister := &scriptedLister{
		responses: [][]domain.Account{
			nil,
			{{ID: "acc-1", Email: "user@gmail.com"}},
		},
		errs: []error{errors.New("backend down")},
	}

	ch := Watch(context.Background(), lister, "acc-1", time.Millisecond, time.Second, nil)

	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without event")
		}
		if ev.AccountID != "acc-1" {
			t.Errorf("AccountID = %q", ev.AccountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestWatch_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lister := &scriptedLister{responses: [][]domain.Account{{{ID: "acc-1"}}}}

	ch := Watch(ctx, lister, "acc-1", time.Millisecond, time.Minute, nil)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected close without event on cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed after cancel")
	}
}
