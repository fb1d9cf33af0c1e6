package client

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/missiond/internal/models"
)

// Watcher polls the caller's unopened missions and reports the ones it has
// not seen before.
type Watcher struct {
	client *Client
	limit  int

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher returns a Watcher that checks up to limit unopened missions per poll.
func NewWatcher(c *Client, limit int) *Watcher {
	if limit <= 0 {
		limit = 50
	}
	return &Watcher{client: c, limit: limit, seen: make(map[string]bool)}
}

// Poll fetches the first page of unopened missions and returns the unseen ones.
func (w *Watcher) Poll(ctx context.Context) ([]models.Mission, error) {
	page, err := w.client.ListMine(ctx, 1, w.limit, models.StatusUnopened)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var fresh []models.Mission
	for _, m := range page.Missions {
		if w.seen[m.MissionID] {
			continue
		}
		w.seen[m.MissionID] = true
		fresh = append(fresh, m)
	}
	return fresh, nil
}

// Start polls every interval until ctx is done, handing new missions to
// onNew and failures to onErr. Polls are skipped while logged out.
func (w *Watcher) Start(ctx context.Context, interval time.Duration, onNew func(models.Mission), onErr func(error)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !w.client.Session().LoggedIn() {
					continue
				}
				missions, err := w.Poll(ctx)
				if err != nil {
					if ctx.Err() == nil {
						onErr(err)
					}
					continue
				}
				for _, m := range missions {
					onNew(m)
				}
			}
		}
	}()
}
