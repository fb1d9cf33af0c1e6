// Package app assembles the stores, services and HTTP router from the
// resolved configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/auth"
	"github.com/fieldops/missiond/internal/config"
	"github.com/fieldops/missiond/internal/db"
	"github.com/fieldops/missiond/internal/notify"
	"github.com/fieldops/missiond/internal/repository"
	handler "github.com/fieldops/missiond/internal/server/handler/http"
	"github.com/fieldops/missiond/internal/service"
)

// UserStore is everything the application needs from the user backend.
type UserStore interface {
	service.UserRepository
	notify.TokenStore
	db.TokenPruner
}

// Store pairs the user and mission repositories of one backend.
type Store struct {
	Users    UserStore
	Missions service.MissionRepository

	close func(ctx context.Context) error
}

// NewPostgresStore wraps an open PostgreSQL pool. Close closes the pool.
func NewPostgresStore(conn *sql.DB) *Store {
	return &Store{
		Users:    repository.NewPostgresUserRepository(conn),
		Missions: repository.NewPostgresMissionRepository(conn),
		close:    func(context.Context) error { return conn.Close() },
	}
}

// NewMongoStore wraps a MongoDB database. Close disconnects client.
func NewMongoStore(client *mongo.Client, database *mongo.Database) *Store {
	return &Store{
		Users:    repository.NewMongoUserRepository(database),
		Missions: repository.NewMongoMissionRepository(database),
		close:    client.Disconnect,
	}
}

// OpenStore connects to the backend selected by opts.Store.
func OpenStore(ctx context.Context, opts *config.Options) (*Store, error) {
	if err := opts.ValidateStore(); err != nil {
		return nil, err
	}
	switch opts.Store {
	case config.StoreMongo:
		client, database, err := db.InitMongo(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, database), nil
	default:
		conn, err := db.InitPostgres(opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(conn), nil
	}
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// App is the fully wired server.
type App struct {
	Store    *Store
	Missions *service.MissionService
	Users    *service.UserService
	Auth     *service.AuthService
	Handler  http.Handler
}

// NewMissionService builds the mission service with an Expo notifier.
func NewMissionService(store *Store, opts *config.Options, log *zap.Logger) *service.MissionService {
	notifier := notify.NewExpoNotifier(notify.Config{
		URL:         opts.ExpoPushURL,
		AccessToken: opts.ExpoAccessToken,
	}, store.Users, log.Named("expo"))

	return service.NewMissionService(store.Missions, store.Users, notifier, log,
		service.WithNotifyTimeout(opts.NotifyTimeout))
}

// New wires services and the router on top of store.
func New(store *Store, opts *config.Options, log *zap.Logger) (*App, error) {
	issuer, err := auth.NewIssuer(opts.JWTSecret, opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	missions := NewMissionService(store, opts, log)
	users := service.NewUserService(store.Users)
	authSvc := service.NewAuthService(store.Users, issuer)

	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: authSvc, Log: log},
		&handler.MissionHandler{MissionService: missions, Log: log},
		&handler.UserHandler{UserService: users, Log: log},
		issuer,
		log,
	)

	return &App{
		Store:    store,
		Missions: missions,
		Users:    users,
		Auth:     authSvc,
		Handler:  router,
	}, nil
}

// Build opens the configured store, wires the application and starts the
// push token cleaner, which stops with ctx.
func Build(ctx context.Context, opts *config.Options, log *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	a, err := New(store, opts, log)
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	if opts.TokenCleanupInterval > 0 {
		db.StartTokenCleaner(ctx, store.Users, opts.TokenCleanupInterval, log)
	}
	return a, nil
}

// Shutdown waits for in-flight notifications and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.Missions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for notifications: %w", ctx.Err())
	}
	return a.Store.Close(ctx)
}
