package client

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/internal/middleware"
	"github.com/fieldops/missiond/internal/models"
)

// roundTripperFunc lets a plain function stand in for the HTTP transport.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(session *Session, fn roundTripperFunc) *Client {
	return New("http://missiond.test/", &http.Client{Transport: fn, Timeout: time.Second}, session)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestLogin_StoresSession(t *testing.T) {
	c := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/api/auth/login", req.URL.Path)
		assert.Empty(t, req.Header.Get("Authorization"))
		assert.NotEmpty(t, req.Header.Get(middleware.RequestIDHeader))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "worker1", body["username"])
		return jsonResponse(http.StatusOK, `{"token":"tok","user":{"id":"u1","username":"worker1"}}`), nil
	})

	resp, err := c.Login(context.Background(), "worker1", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, Session{Token: "tok", UserID: "u1", Username: "worker1"}, *c.Session())
}

func TestListMine_Query(t *testing.T) {
	c := newTestClient(&Session{Token: "tok"}, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/missions/mine", req.URL.Path)
		assert.Equal(t, "2", req.URL.Query().Get("page"))
		assert.Equal(t, "5", req.URL.Query().Get("limit"))
		assert.Equal(t, "unopened", req.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		return jsonResponse(http.StatusOK, `{"missions":[{"missionId":"M-1","status":"unopened"}],"total":6,"page":2,"limit":5,"totalPages":2,"hasNextPage":false,"hasPrevPage":true}`), nil
	})

	page, err := c.ListMine(context.Background(), 2, 5, models.StatusUnopened)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	require.Len(t, page.Missions, 1)
	assert.Equal(t, "M-1", page.Missions[0].MissionID)
	assert.True(t, page.HasPrevPage)
}

func TestOpen_Conflict(t *testing.T) {
	c := newTestClient(&Session{Token: "tok"}, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/missions/M%201/open", req.URL.EscapedPath())
		return jsonResponse(http.StatusConflict, `{"error":"Mission is already opened","currentStatus":"in_progress"}`), nil
	})

	_, err := c.Open(context.Background(), "M 1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.StatusInProgress, apiErr.CurrentStatus)
	assert.Contains(t, err.Error(), "in_progress")
}

func TestUpdate_SendsBody(t *testing.T) {
	c := newTestClient(&Session{Token: "tok"}, func(req *http.Request) (*http.Response, error) {
		var upd models.MissionUpdate
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&upd))
		if assert.NotNil(t, upd.Comment) {
			assert.Equal(t, "all good", *upd.Comment)
		}
		return jsonResponse(http.StatusOK, `{"missionId":"M-1","status":"completed","comment":"all good"}`), nil
	})

	comment := "all good"
	m, err := c.Update(context.Background(), "M-1", &models.MissionUpdate{Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, m.Status)
}

func TestPushToken(t *testing.T) {
	var methods []string
	c := newTestClient(&Session{Token: "tok", UserID: "u1"}, func(req *http.Request) (*http.Response, error) {
		methods = append(methods, req.Method)
		assert.Equal(t, "/api/users/u1/push-token", req.URL.Path)
		return jsonResponse(http.StatusOK, `{"message":"ok","tokenCount":3}`), nil
	})

	n, err := c.RegisterPushToken(context.Background(), "ExponentPushToken[a]")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = c.RemovePushToken(context.Background(), "ExponentPushToken[a]")
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPost, http.MethodDelete}, methods)
}

func TestNotLoggedIn(t *testing.T) {
	c := newTestClient(nil, func(*http.Request) (*http.Response, error) {
		t.Error("no request expected")
		return nil, errors.New("unexpected")
	})

	_, err := c.Get(context.Background(), "M-1")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.RegisterPushToken(context.Background(), "ExponentPushToken[a]")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		err     error
		wantMsg string
	}{
		{"network", nil, errors.New("network down"), "network down"},
		{"json error", jsonResponse(http.StatusNotFound, `{"error":"Mission 'x' not found"}`), nil, "Mission 'x' not found (status 404)"},
		{"plain text", jsonResponse(http.StatusBadGateway, "upstream gone\n"), nil, "upstream gone (status 502)"},
		{"empty body", jsonResponse(http.StatusInternalServerError, ""), nil, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&Session{Token: "tok"}, func(*http.Request) (*http.Response, error) {
				return tt.resp, tt.err
			})
			_, err := c.Get(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewHTTPClient_TrustsCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.crt")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))

	hc, err := NewHTTPClient(caFile, time.Second)
	require.NoError(t, err)
	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	plain, err := NewHTTPClient("", time.Second)
	require.NoError(t, err)
	_, err = plain.Get(srv.URL)
	assert.Error(t, err, "unknown authority")
}

func TestNewHTTPClient_BadCA(t *testing.T) {
	_, err := NewHTTPClient(filepath.Join(t.TempDir(), "missing.crt"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))
	_, err = NewHTTPClient(bad, 0)
	assert.Error(t, err)
}
