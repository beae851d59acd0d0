// Package apiclient is a Go client of the Projex API.
// The session is injected, so several clients may share it or keep their own.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core/user"
)

// APIError is a non 2xx response.
type APIError struct {
	Code    int
	Message string
	Fields  map[string]string // validation errors, by field
}

func (err *APIError) Error() string {
	if err.Message != "" {
		return fmt.Sprintf("api error %d: %s", err.Code, err.Message)
	}
	return fmt.Sprintf("api error %d: %v", err.Code, err.Fields)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Code == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	store   SessionStore
}

// NewClient restores the session from store; a nil store keeps the session in memory only.
func NewClient(baseURL string, session *Session, store SessionStore) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
		store:   store,
	}
	if store != nil {
		data, err := store.Load()
		if err != nil {
			return nil, errors.Wrap(err, "loading session")
		}
		if data.Token != "" {
			session.Set(data)
		}
	}
	return c, nil
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) setSession(data SessionData) error {
	c.session.Set(data)
	if c.store == nil {
		return nil
	}
	return errors.Wrap(c.store.Save(data), "saving session")
}

func (c *Client) clearSession() error {
	c.session.Clear()
	if c.store == nil {
		return nil
	}
	return errors.Wrap(c.store.Clear(), "clearing session")
}

// Do sends in as JSON and decodes the response into out (when not nil).
// A 401 response clears the session.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized {
			if err := c.clearSession(); err != nil {
				return err
			}
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response")
}

// decodeError reads both {"error": msg} and field map bodies.
func decodeError(code int, data []byte) *APIError {
	apiErr := &APIError{Code: code}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		apiErr.Message = http.StatusText(code)
		return apiErr
	}
	if msg, ok := fields["error"]; ok && len(fields) == 1 {
		apiErr.Message = msg
		return apiErr
	}
	apiErr.Fields = fields
	return apiErr
}

type loginResponse struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

func (c *Client) login(ctx context.Context, path string, creds interface{}) (user.Identity, error) {
	var res loginResponse
	if err := c.Do(ctx, http.MethodPost, path, creds, &res); err != nil {
		return user.Identity{}, err
	}
	if err := c.setSession(SessionData{Token: res.Token, User: res.User}); err != nil {
		return user.Identity{}, err
	}
	return res.User, nil
}

func (c *Client) LoginStudent(ctx context.Context, rollNo, password string) (user.Identity, error) {
	return c.login(ctx, "/v1/auth/student/login", map[string]string{"roll_no": rollNo, "password": password})
}

func (c *Client) LoginTeacher(ctx context.Context, email, password string) (user.Identity, error) {
	return c.login(ctx, "/v1/auth/teacher/login", map[string]string{"email": email, "password": password})
}

func (c *Client) LoginAdmin(ctx context.Context, id, password string) (user.Identity, error) {
	return c.login(ctx, "/v1/auth/admin/login", map[string]string{"admin_id": id, "password": password})
}

// Refresh swaps the session token for a fresh one.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.login(ctx, "/v1/auth/token-refresh", nil)
	return err
}

// Logout revokes the token server side. The local session is cleared even when that fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	if cerr := c.clearSession(); cerr != nil && err == nil {
		err = cerr
	}
	if IsUnauthorized(err) {
		return nil
	}
	return err
}
