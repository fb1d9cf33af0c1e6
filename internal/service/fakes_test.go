package service_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fieldops/missiond/internal/models"
	"github.com/fieldops/missiond/internal/repository"
)

type mockUsers struct {
	GetUserByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetUserByUsernameFunc       func(ctx context.Context, username string) (*models.User, error)
	CreateUserFunc              func(ctx context.Context, u *models.User) error
	AddPushTokenFunc            func(ctx context.Context, userID, token string) ([]string, error)
	PullPushTokenFunc           func(ctx context.Context, userID, token string) ([]string, error)
	ListUsersWithPushTokensFunc func(ctx context.Context) ([]models.User, error)
}

func (m *mockUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetUserByIDFunc(ctx, id)
}
func (m *mockUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.GetUserByUsernameFunc(ctx, username)
}
func (m *mockUsers) CreateUser(ctx context.Context, u *models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUsers) AddPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return m.AddPushTokenFunc(ctx, userID, token)
}
func (m *mockUsers) PullPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return m.PullPushTokenFunc(ctx, userID, token)
}
func (m *mockUsers) ListUsersWithPushTokens(ctx context.Context) ([]models.User, error) {
	return m.ListUsersWithPushTokensFunc(ctx)
}

// knownUsers answers lookups from a fixed set.
func knownUsers(users ...models.User) *mockUsers {
	find := func(match func(models.User) bool) (*models.User, error) {
		for _, u := range users {
			if match(u) {
				return &u, nil
			}
		}
		return nil, repository.ErrNotFound
	}
	return &mockUsers{
		GetUserByIDFunc: func(_ context.Context, id string) (*models.User, error) {
			return find(func(u models.User) bool { return u.ID == id })
		},
		GetUserByUsernameFunc: func(_ context.Context, name string) (*models.User, error) {
			return find(func(u models.User) bool { return u.Username == name })
		},
		ListUsersWithPushTokensFunc: func(context.Context) ([]models.User, error) {
			return users, nil
		},
	}
}

// memMissions is an in-memory MissionRepository with version checks.
type memMissions struct {
	mu   sync.Mutex
	docs map[string][]byte
	// saveHook runs before every save when set.
	saveHook func(m *models.Mission) error

	listFilter   models.MissionFilter
	listOffset   int
	listLimit    int
	assigneeSize int
}

func newMemMissions() *memMissions {
	return &memMissions{docs: map[string][]byte{}}
}

func (r *memMissions) GetMission(_ context.Context, id string) (*models.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var m models.Mission
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memMissions) put(m *models.Mission) {
	raw, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	r.docs[m.MissionID] = raw
}

func (r *memMissions) CreateMission(_ context.Context, m *models.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[m.MissionID]; ok {
		return repository.ErrAlreadyExists
	}
	m.Version = 1
	r.put(m)
	return nil
}

func (r *memMissions) SaveMission(ctx context.Context, m *models.Mission) error {
	if r.saveHook != nil {
		if err := r.saveHook(m); err != nil {
			return err
		}
	}
	current, err := r.GetMission(ctx, m.MissionID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if current.Version != m.Version {
		return repository.ErrStaleVersion
	}
	m.Version++
	r.put(m)
	return nil
}

func (r *memMissions) ListMissions(_ context.Context, filter models.MissionFilter) ([]models.Mission, error) {
	r.listFilter = filter
	return []models.Mission{}, nil
}

func (r *memMissions) ListMissionsByAssignee(_ context.Context, _ string, filter models.MissionFilter, offset, limit int) ([]models.Mission, error) {
	r.listFilter, r.listOffset, r.listLimit = filter, offset, limit
	n := max(0, min(limit, r.assigneeSize-offset))
	return make([]models.Mission, n), nil
}

func (r *memMissions) CountMissionsByAssignee(context.Context, string, models.MissionFilter) (int, error) {
	return r.assigneeSize, nil
}

// recordingNotifier captures every delivery attempt together with the state
// of its context at call time.
type recordingNotifier struct {
	mu        sync.Mutex
	calls     []string
	errs      []error
	deadlines []bool
	fail      map[string]error
}

func (n *recordingNotifier) NotifyMissionAssigned(ctx context.Context, u *models.User, m *models.Mission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, u.Username+":"+m.MissionID)
	_, hasDeadline := ctx.Deadline()
	n.errs = append(n.errs, ctx.Err())
	n.deadlines = append(n.deadlines, hasDeadline)
	return n.fail[u.Username]
}
