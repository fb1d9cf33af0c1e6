// Package service provides the business logic for missions, users and
// authentication, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/mission"
	"github.com/fieldops/missiond/internal/models"
	"github.com/fieldops/missiond/internal/repository"
)

const (
	// DefaultPage is used when a listing request carries no page.
	DefaultPage = 1
	// DefaultLimit is used when a listing request carries no limit.
	DefaultLimit = 10
	// MaxLimit bounds the page size of a listing request.
	MaxLimit = 100

	defaultNotifyTimeout = 15 * time.Second
	broadcastWorkers     = 8
)

// MissionRepository defines the persistence operations needed by MissionService.
type MissionRepository interface {
	// GetMission returns the mission with usernames resolved, or repository.ErrNotFound.
	GetMission(ctx context.Context, missionID string) (*models.Mission, error)
	// CreateMission inserts m, or returns repository.ErrAlreadyExists.
	CreateMission(ctx context.Context, m *models.Mission) error
	// SaveMission writes m if its version is current, or returns repository.ErrStaleVersion.
	SaveMission(ctx context.Context, m *models.Mission) error
	ListMissions(ctx context.Context, filter models.MissionFilter) ([]models.Mission, error)
	ListMissionsByAssignee(ctx context.Context, userID string, filter models.MissionFilter, offset, limit int) ([]models.Mission, error)
	CountMissionsByAssignee(ctx context.Context, userID string, filter models.MissionFilter) (int, error)
}

// UserRepository defines the persistence operations needed for users.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	// AddPushToken and PullPushToken change the token set in one atomic
	// write and return the resulting set.
	AddPushToken(ctx context.Context, userID, token string) ([]string, error)
	PullPushToken(ctx context.Context, userID, token string) ([]string, error)
	ListUsersWithPushTokens(ctx context.Context) ([]models.User, error)
}

// Notifier delivers the "new mission" push message to a user's devices.
type Notifier interface {
	NotifyMissionAssigned(ctx context.Context, user *models.User, m *models.Mission) error
}

// BroadcastResult counts per-user outcomes of a broadcast.
type BroadcastResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// MissionService implements the mission lifecycle on top of the repositories.
type MissionService struct {
	missions MissionRepository
	users    UserRepository
	notifier Notifier
	log      *zap.Logger

	now           func() time.Time
	notifyTimeout time.Duration

	// pending tracks notification dispatches still in flight.
	pending sync.WaitGroup
}

// MissionOption customizes a MissionService.
type MissionOption func(*MissionService)

// WithClock replaces the wall clock used to stamp missions.
func WithClock(now func() time.Time) MissionOption {
	return func(s *MissionService) { s.now = now }
}

// WithNotifyTimeout bounds each notification dispatch.
func WithNotifyTimeout(d time.Duration) MissionOption {
	return func(s *MissionService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewMissionService constructs a MissionService. notifier may be nil, in
// which case no notifications are sent.
func NewMissionService(
	missions MissionRepository,
	users UserRepository,
	notifier Notifier,
	log *zap.Logger,
	opts ...MissionOption,
) *MissionService {
	s := &MissionService{
		missions:      missions,
		users:         users,
		notifier:      notifier,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and normalizes in, assigns it to the named user and
// persists it as unopened. The assignee is notified in the background.
func (s *MissionService) Create(ctx context.Context, in *models.CreateMissionInput) (*models.Mission, error) {
	if err := mission.ValidateCreate(in); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("User", username)
	}
	if err != nil {
		return nil, apperror.Upstream("lookup assignee", err)
	}

	m := mission.New(in, user.Ref(), s.now())
	err = s.missions.CreateMission(ctx, m)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return nil, apperror.Conflict("Mission with this ID already exists")
	}
	if err != nil {
		return nil, apperror.Upstream("create mission", err)
	}

	s.dispatch(ctx, user, *m)
	return m, nil
}

// Get returns a single mission.
func (s *MissionService) Get(ctx context.Context, missionID string) (*models.Mission, error) {
	m, err := s.missions.GetMission(ctx, missionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Mission", missionID)
	}
	if err != nil {
		return nil, apperror.Upstream("load mission", err)
	}
	return m, nil
}

// Open moves an unopened mission to in_progress on behalf of actorID.
// An unknown or already opened mission is reported before the actor lookup.
func (s *MissionService) Open(ctx context.Context, missionID, actorID string) (*models.Mission, error) {
	m, err := s.Get(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := mission.CheckOpenable(m); err != nil {
		return nil, err
	}

	actor, err := s.users.GetUserByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("User", actorID)
	}
	if err != nil {
		return nil, apperror.Upstream("lookup actor", err)
	}
	if err := mission.Open(m, actor.Ref(), s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	return s.Get(ctx, missionID)
}

// Update applies completion flags and the comment, then re-derives the status.
func (s *MissionService) Update(ctx context.Context, missionID string, upd *models.MissionUpdate) (*models.Mission, error) {
	if err := mission.ValidateUpdate(upd); err != nil {
		return nil, err
	}

	m, err := s.Get(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := mission.ApplyUpdate(m, upd, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	return s.Get(ctx, missionID)
}

func (s *MissionService) save(ctx context.Context, m *models.Mission) error {
	err := s.missions.SaveMission(ctx, m)
	if errors.Is(err, repository.ErrStaleVersion) {
		return apperror.Conflict("mission was modified concurrently")
	}
	if err != nil {
		return apperror.Upstream("save mission", err)
	}
	return nil
}

// List returns every mission matching filter, unopened first.
func (s *MissionService) List(ctx context.Context, filter models.MissionFilter) ([]models.Mission, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	missions, err := s.missions.ListMissions(ctx, filter)
	if err != nil {
		return nil, apperror.Upstream("list missions", err)
	}
	return missions, nil
}

// ListMine returns one page of the missions assigned to userID, newest first.
// page and limit must both be at least 1; limit is clamped to MaxLimit.
func (s *MissionService) ListMine(ctx context.Context, userID string, page, limit int, filter models.MissionFilter) (*models.MissionPage, error) {
	if page < 1 || limit < 1 {
		return nil, apperror.Validation("page and limit must be positive integers")
	}
	limit = min(limit, MaxLimit)
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	total, err := s.missions.CountMissionsByAssignee(ctx, userID, filter)
	if err != nil {
		return nil, apperror.Upstream("count missions", err)
	}
	missions, err := s.missions.ListMissionsByAssignee(ctx, userID, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, apperror.Upstream("list missions", err)
	}

	totalPages := (total + limit - 1) / limit
	return &models.MissionPage{
		Missions:    missions,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

func validateFilter(filter models.MissionFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return apperror.Validation("unknown status %q", filter.Status)
	}
	return nil
}

// Broadcast sends the "new mission" message for missionID to every user
// holding push tokens. A user counts as failed when delivery to them errors.
func (s *MissionService) Broadcast(ctx context.Context, missionID string) (BroadcastResult, error) {
	if s.notifier == nil {
		return BroadcastResult{}, apperror.Validation("push notifications are not configured")
	}
	m, err := s.Get(ctx, missionID)
	if err != nil {
		return BroadcastResult{}, err
	}
	users, err := s.users.ListUsersWithPushTokens(ctx)
	if err != nil {
		return BroadcastResult{}, apperror.Upstream("list users", err)
	}

	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastWorkers)
	for i := range users {
		u := &users[i]
		g.Go(func() error {
			if err := s.notifier.NotifyMissionAssigned(gctx, u, m); err != nil {
				s.log.Warn("broadcast delivery failed",
					zap.String("missionId", missionID),
					zap.String("username", u.Username),
					zap.Error(err),
				)
				failed.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := BroadcastResult{Successful: int(ok.Load()), Failed: int(failed.Load())}
	s.log.Info("broadcast complete",
		zap.String("missionId", missionID),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// dispatch notifies user about m without holding up the caller. The request
// context only contributes its values; cancellation is replaced by the
// notify timeout.
func (s *MissionService) dispatch(ctx context.Context, user *models.User, m models.Mission) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyMissionAssigned(ctx, user, &m); err != nil {
			s.log.Warn("mission notification failed",
				zap.String("missionId", m.MissionID),
				zap.String("username", user.Username),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every notification dispatch started so far has finished.
func (s *MissionService) Wait() {
	s.pending.Wait()
}
