// Package client is the field-worker side of the mission API: an HTTP client,
// the persisted login session, interactive prompts and a mission watcher.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldops/missiond/internal/middleware"
	"github.com/fieldops/missiond/internal/models"
	api "github.com/fieldops/missiond/internal/server/handler/http"
)

// ErrNotLoggedIn is returned by calls that need a token before Login.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	// CurrentStatus is set on 409 answers to an open request.
	CurrentStatus models.Status
}

func (e *APIError) Error() string {
	if e.CurrentStatus != "" {
		return fmt.Sprintf("%s (status %d, mission is %s)", e.Message, e.StatusCode, e.CurrentStatus)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsConflict reports whether err is a 409 answer.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client calls the mission API on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// New returns a Client for baseURL. session may carry a token from an
// earlier login; it is updated in place by Login.
func New(baseURL string, httpClient *http.Client, session *Session) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if session == nil {
		session = &Session{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
	}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", false,
		api.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.session.Token = resp.Token
	c.session.UserID = resp.User.ID
	c.session.Username = resp.User.Username
	return &resp, nil
}

// ListMine fetches one page of the caller's missions. A zero page or limit
// leaves the server default in place.
func (c *Client) ListMine(ctx context.Context, page, limit int, status models.Status) (*models.MissionPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if status != "" {
		q.Set("status", string(status))
	}
	path := "/api/missions/mine"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result models.MissionPage
	if err := c.do(ctx, http.MethodGet, path, true, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches one mission.
func (c *Client) Get(ctx context.Context, missionID string) (*models.Mission, error) {
	var m models.Mission
	if err := c.do(ctx, http.MethodGet, "/api/missions/"+url.PathEscape(missionID), true, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Open starts an unopened mission.
func (c *Client) Open(ctx context.Context, missionID string) (*models.Mission, error) {
	var m models.Mission
	path := "/api/missions/" + url.PathEscape(missionID) + "/open"
	if err := c.do(ctx, http.MethodPost, path, true, struct{}{}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update sends completion flags and the comment of a mission.
func (c *Client) Update(ctx context.Context, missionID string, upd *models.MissionUpdate) (*models.Mission, error) {
	var m models.Mission
	path := "/api/missions/" + url.PathEscape(missionID) + "/update"
	if err := c.do(ctx, http.MethodPost, path, true, upd, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RegisterPushToken adds token to the logged-in user's devices.
func (c *Client) RegisterPushToken(ctx context.Context, token string) (int, error) {
	return c.pushToken(ctx, http.MethodPost, token)
}

// RemovePushToken drops token from the logged-in user's devices.
func (c *Client) RemovePushToken(ctx context.Context, token string) (int, error) {
	return c.pushToken(ctx, http.MethodDelete, token)
}

func (c *Client) pushToken(ctx context.Context, method, token string) (int, error) {
	if c.session.UserID == "" {
		return 0, ErrNotLoggedIn
	}
	var resp api.PushTokenResponse
	path := "/api/users/" + url.PathEscape(c.session.UserID) + "/push-token"
	if err := c.do(ctx, method, path, true, api.PushTokenRequest{Token: token}, &resp); err != nil {
		return 0, err
	}
	return resp.TokenCount, nil
}

func (c *Client) do(ctx context.Context, method, path string, authenticated bool, body, out any) error {
	if authenticated && c.session.Token == "" {
		return ErrNotLoggedIn
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error         string `json:"error"`
		CurrentStatus string `json:"currentStatus"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.CurrentStatus = models.Status(body.CurrentStatus)
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
