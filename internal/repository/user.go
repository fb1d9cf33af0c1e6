package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fieldops/missiond/internal/models"
)

const userColumns = `id, username, password_hash, push_tokens, created_at, updated_at`

// PostgresUserRepository implements user persistence using a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// GetUserByID fetches a user by its identifier.
// Returns ErrNotFound if no user has that id.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByUsername fetches a user by its login name.
// Returns ErrNotFound if no user has that username.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// CreateUser inserts a new user and assigns it a fresh id.
// Returns ErrAlreadyExists if the username is taken.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.PushTokens == nil {
		u.PushTokens = []string{}
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, push_tokens, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (username) DO NOTHING
	`, u.ID, u.Username, u.PasswordHash, pq.Array(u.PushTokens), now)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// AddPushToken appends token to a user's token set unless it is already
// there, and returns the resulting set. Returns ErrNotFound if the user does
// not exist.
func (r *PostgresUserRepository) AddPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return r.updatePushTokens(ctx, "add push token", `
		UPDATE users
		   SET push_tokens = CASE WHEN $2::text = ANY(push_tokens) THEN push_tokens
		                          ELSE array_append(push_tokens, $2::text) END,
		       updated_at = now()
		 WHERE id = $1
		RETURNING push_tokens
	`, userID, token)
}

// PullPushToken removes token from a user's token set and returns the
// resulting set. Returns ErrNotFound if the user does not exist.
func (r *PostgresUserRepository) PullPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return r.updatePushTokens(ctx, "pull push token", `
		UPDATE users
		   SET push_tokens = array_remove(push_tokens, $2::text),
		       updated_at = now()
		 WHERE id = $1
		RETURNING push_tokens
	`, userID, token)
}

func (r *PostgresUserRepository) updatePushTokens(ctx context.Context, op, query, userID, token string) ([]string, error) {
	tokens := []string{}
	err := r.DB.QueryRowContext(ctx, query, userID, token).Scan(pq.Array(&tokens))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tokens, nil
}

// RemovePushTokens filters the given tokens out of a user's token set in one statement.
func (r *PostgresUserRepository) RemovePushTokens(ctx context.Context, userID string, tokens []string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		   SET push_tokens = ARRAY(SELECT t FROM unnest(push_tokens) AS t WHERE NOT (t = ANY($2))),
		       updated_at = now()
		 WHERE id = $1
	`, userID, pq.Array(tokens))
	if err != nil {
		return fmt.Errorf("remove push tokens: %w", err)
	}
	return nil
}

// ListUsersWithPushTokens returns every user holding at least one token.
func (r *PostgresUserRepository) ListUsersWithPushTokens(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE cardinality(push_tokens) > 0 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// PruneInvalidPushTokens drops every token that is not an Expo push token.
// It returns the number of users touched.
func (r *PostgresUserRepository) PruneInvalidPushTokens(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		   SET push_tokens = ARRAY(
		           SELECT t FROM unnest(push_tokens) AS t
		            WHERE t LIKE 'ExponentPushToken[%' OR t LIKE 'ExpoPushToken[%'),
		       updated_at = now()
		 WHERE EXISTS (
		           SELECT 1 FROM unnest(push_tokens) AS t
		            WHERE NOT (t LIKE 'ExponentPushToken[%' OR t LIKE 'ExpoPushToken[%'))
	`)
	if err != nil {
		return 0, fmt.Errorf("prune push tokens: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, pq.Array(&u.PushTokens), &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.PushTokens == nil {
		u.PushTokens = []string{}
	}
	return &u, nil
}
