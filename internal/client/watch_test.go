package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/internal/models"
)

func TestWatcher_PollReportsUnseenOnce(t *testing.T) {
	bodies := []string{
		`{"missions":[{"missionId":"M-1"},{"missionId":"M-2"}]}`,
		`{"missions":[{"missionId":"M-2"},{"missionId":"M-3"}]}`,
	}
	var calls int
	c := newTestClient(&Session{Token: "tok"}, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "unopened", req.URL.Query().Get("status"))
		body := bodies[calls]
		calls++
		return jsonResponse(http.StatusOK, body), nil
	})
	w := NewWatcher(c, 0)

	first, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "M-3", second[0].MissionID)
}

func TestWatcher_Start(t *testing.T) {
	c := newTestClient(&Session{Token: "tok"}, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"missions":[{"missionId":"M-1"}]}`), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	NewWatcher(c, 10).Start(ctx, 10*time.Millisecond, func(m models.Mission) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m.MissionID)
	}, func(err error) {
		t.Errorf("unexpected error: %v", err)
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"M-1"}, got)
	mu.Unlock()
}
