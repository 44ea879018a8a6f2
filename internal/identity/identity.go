// Package identity is the boundary to the external identity provider.
// Sessions, credentials, and the canonical user directory live there; this
// package consumes it as an opaque service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkwell/internal/users"
)

// Session is the provider's view of an authenticated request.
type Session struct {
	UserID  uint       `json:"userId"`
	ClerkID string     `json:"clerkId"`
	Role    users.Role `json:"role"`
}

// RemoteUser is a user record as the provider reports it.
type RemoteUser struct {
	ClerkID string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no active session")

// ErrUserNotFound is returned when the provider does not know the user.
var ErrUserNotFound = errors.New("identity user not found")

// Provider is the identity service surface this application depends on.
type Provider interface {
	// CurrentSession resolves a session token into a session, or
	// ErrNoSession when the token is absent, expired, or unknown.
	CurrentSession(ctx context.Context, token string) (*Session, error)

	// CreateUser provisions a new identity and returns it.
	CreateUser(ctx context.Context, email string, role users.Role) (*RemoteUser, error)

	// DeleteUser removes an identity. Deleting an unknown identity
	// returns ErrUserNotFound.
	DeleteUser(ctx context.Context, clerkID string) error

	// UpdateRole writes the role claim in the identity's metadata.
	UpdateRole(ctx context.Context, clerkID string, role users.Role) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks JSON over HTTP to the identity provider's backend API.
type Client struct {
	baseURL string
	apiKey  string
	http    httpDoer
}

// NewClient creates a Client for the provider at baseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient swaps the underlying HTTP client, for tests.
func (c *Client) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	c.http = client
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("identity: encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("identity: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("identity: request failed: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("identity: decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// CurrentSession implements Provider.
func (c *Client) CurrentSession(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoSession
	}

	var session Session
	status, err := c.do(ctx, http.MethodGet, "/v1/sessions/"+token, nil, &session)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusOK:
		return &session, nil
	case status == http.StatusNotFound || status == http.StatusUnauthorized:
		return nil, ErrNoSession
	default:
		return nil, fmt.Errorf("identity: session lookup returned status %d", status)
	}
}

// CreateUser implements Provider.
func (c *Client) CreateUser(ctx context.Context, email string, role users.Role) (*RemoteUser, error) {
	payload := map[string]string{"email": email, "role": string(role)}

	var remote RemoteUser
	status, err := c.do(ctx, http.MethodPost, "/v1/users", payload, &remote)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("identity: user creation returned status %d", status)
	}
	return &remote, nil
}

// DeleteUser implements Provider.
func (c *Client) DeleteUser(ctx context.Context, clerkID string) error {
	status, err := c.do(ctx, http.MethodDelete, "/v1/users/"+clerkID, nil, nil)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrUserNotFound
	default:
		return fmt.Errorf("identity: user deletion returned status %d", status)
	}
}

// UpdateRole implements Provider.
func (c *Client) UpdateRole(ctx context.Context, clerkID string, role users.Role) error {
	payload := map[string]string{"role": string(role)}

	status, err := c.do(ctx, http.MethodPatch, "/v1/users/"+clerkID+"/metadata", payload, nil)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrUserNotFound
	default:
		return fmt.Errorf("identity: role update returned status %d", status)
	}
}
