// Package api is the REST client for the mail bridge backend. It is a thin
// wrapper over net/http: every request carries a freshly fetched bearer
// token when one is available, account-scoped requests carry the account id
// header, and failures surface the backend's error message. There are no
// automatic retries; callers re-trigger manually.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maildeck/maildeck/internal/domain"
)

// DefaultMaxResults is how many messages a list request asks for when the
// caller does not say otherwise.
const DefaultMaxResults = 30

// accountIDHeader scopes message requests to one connected Gmail account.
const accountIDHeader = "account_id"

// TokenSource supplies short-lived bearer tokens for the current session.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// Client talks to the bridge backend.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a backend client rooted at baseURL. tokens may be nil,
// in which case requests go out unauthenticated and the backend rejects
// protected routes.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthGrant is the backend's answer to an auth-url request: the Google
// consent URL to open and the provisional account id the backend reserved.
type AuthGrant struct {
	URL       string `json:"url"`
	AccountID string `json:"accountId"`
}

// AuthURL asks the backend for a Gmail authorization URL. The returned
// account id should be persisted immediately; it identifies the connection
// before OAuth completes.
func (c *Client) AuthURL(ctx context.Context) (*AuthGrant, error) {
	var grant AuthGrant
	if err := c.do(ctx, http.MethodGet, "/email/auth-url", nil, nil, &grant); err != nil {
		return nil, err
	}
	if grant.URL == "" {
		return nil, fmt.Errorf("backend returned no authorization URL")
	}
	return &grant, nil
}

// ListAccounts fetches all connected Gmail accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var resp struct {
		Accounts []domain.Account `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/email/accounts", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// ListMessages fetches up to max message summaries for the given account,
// newest first. max is clamped to the backend's 1..100 window; zero means
// DefaultMaxResults.
func (c *Client) ListMessages(ctx context.Context, accountID string, max int) ([]domain.Message, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	path := fmt.Sprintf("/email/messages?maxResults=%d", ClampMaxResults(max))
	headers := map[string]string{accountIDHeader: accountID}

	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, headers, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Send posts a draft for delivery through the user's connected account and
// returns the sent message id.
func (c *Client) Send(ctx context.Context, draft domain.Draft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/email/send", nil, draft, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Disconnect tells the backend to drop the stored credentials for the
// given account.
func (c *Client) Disconnect(ctx context.Context, accountID string) error {
	return c.disconnect(ctx, accountID, false)
}

// AdminDisconnect disconnects any account regardless of owner. It requires
// the session to carry the backend's admin permission.
func (c *Client) AdminDisconnect(ctx context.Context, accountID string) error {
	return c.disconnect(ctx, accountID, true)
}

func (c *Client) disconnect(ctx context.Context, accountID string, admin bool) error {
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	path := "/email/accounts/" + url.PathEscape(accountID) + "/disconnect"
	if admin {
		path = "/email/admin/accounts/" + url.PathEscape(accountID) + "/disconnect"
	}
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// ClampMaxResults bounds a message-list size to the backend's accepted
// window. Zero or negative falls back to DefaultMaxResults.
func ClampMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > 100 {
		return 100
	}
	return n
}

// do builds the request, attaches auth, and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// A fresh token per request: the identity provider's tokens are
	// short-lived, so nothing is cached here.
	if c.tokens != nil {
		if tok, err := c.tokens.BearerToken(ctx); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: backendError(respBody)}
	}

	// The backend occasionally reports failures inside a 200 body.
	if msg := backendError(respBody); msg != "" {
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// backendError extracts the backend's error message from a JSON body,
// returning "" when the body carries none.
func backendError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Error
}
