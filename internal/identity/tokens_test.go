package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func refreshOnlyToken(rt string) *oauth2.Token {
	return &oauth2.Token{RefreshToken: rt}
}

// memStore is an in-memory SessionStore for tests.
type memStore struct {
	session *Session
}

func (m *memStore) Save(s *Session) error    { m.session = s; return nil }
func (m *memStore) Load() (*Session, error)  { return m.session, nil }
func (m *memStore) Delete() error            { m.session = nil; return nil }

// fakeJWT builds an unsigned JWT carrying the given claims.
func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

// tokenEndpoint serves oauth2 refresh-token exchanges, minting a new
// access token per call.
func tokenEndpoint(t *testing.T, counter *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*counter++
		tok := fakeJWT(t, map[string]any{
			"user_id": "user-1",
			"email":   "user@example.com",
			"n":       *counter,
		})
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": %q, "token_type": "Bearer", "expires_in": 3600}`, tok)
	}))
}

func TestTokenService_EstablishAndCurrentUser(t *testing.T) {
	var calls int
	srv := tokenEndpoint(t, &calls)
	defer srv.Close()

	store := &memStore{}
	svc := NewTokenService(srv.URL, "client-1", store)

	user, err := svc.Establish(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Establish() error: %v", err)
	}
	if user.UID != "user-1" || user.Email != "user@example.com" {
		t.Errorf("user = %+v", user)
	}
	if store.session == nil {
		t.Fatal("session not persisted")
	}

	got, err := svc.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if got == nil || got.UID != "user-1" {
		t.Errorf("CurrentUser() = %+v, want user-1", got)
	}
}

func TestTokenService_BearerToken(t *testing.T) {
	var calls int
	srv := tokenEndpoint(t, &calls)
	defer srv.Close()

	store := &memStore{}
	svc := NewTokenService(srv.URL, "client-1", store)

	if _, err := svc.Establish(context.Background(), "refresh-1"); err != nil {
		t.Fatal(err)
	}
	exchanged := calls

	// A still-valid access token is reused without hitting the endpoint.
	tok1, err := svc.BearerToken(context.Background())
	if err != nil {
		t.Fatalf("BearerToken() error: %v", err)
	}
	if calls != exchanged {
		t.Errorf("BearerToken() hit the endpoint %d extra times", calls-exchanged)
	}

	// Force refresh mints a new token.
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if calls != exchanged+1 {
		t.Errorf("Refresh() exchanges = %d, want %d", calls, exchanged+1)
	}
	tok2, err := svc.BearerToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok1 == tok2 {
		t.Error("expected a different access token after forced refresh")
	}
}

func TestTokenService_NoSession(t *testing.T) {
	svc := NewTokenService("http://unused", "client-1", &memStore{})

	if _, err := svc.BearerToken(context.Background()); err != ErrNoSession {
		t.Errorf("BearerToken() error = %v, want ErrNoSession", err)
	}
	user, err := svc.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Errorf("CurrentUser() = %v, %v; want nil, nil", user, err)
	}
	// SignOut with no session must not fail.
	if err := svc.SignOut(context.Background()); err != nil {
		t.Errorf("SignOut() error: %v", err)
	}
}

func TestTokenService_RefreshFailureIsInvalidSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer srv.Close()

	store := &memStore{session: &Session{
		User:  User{UID: "user-1"},
		Token: refreshOnlyToken("stale"),
	}}
	svc := NewTokenService(srv.URL, "client-1", store)

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error when provider rejects the refresh token")
	}
}

func TestUserFromClaims(t *testing.T) {
	tests := []struct {
		name    string
		claims  map[string]any
		wantUID string
		wantErr bool
	}{
		{"user_id claim", map[string]any{"user_id": "u1", "email": "a@b.c"}, "u1", false},
		{"sub fallback", map[string]any{"sub": "u2"}, "u2", false},
		{"no id", map[string]any{"email": "a@b.c"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := userFromClaims(fakeJWT(t, tt.claims))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && u.UID != tt.wantUID {
				t.Errorf("UID = %q, want %q", u.UID, tt.wantUID)
			}
		})
	}

	if _, err := userFromClaims("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}
