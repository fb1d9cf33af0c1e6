package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/missiond/internal/models"
)

const (
	missionColumns = `m.mission_id, m.status, m.assigned_to, a.username, m.opened_by, o.username,
		m.payload, m.comment, m.opened_at, m.completed_at, m.created_at, m.updated_at, m.version`
	missionFrom = `FROM missions m
		JOIN users a ON a.id = m.assigned_to
		LEFT JOIN users o ON o.id = m.opened_by`
)

// PostgresMissionRepository stores missions as rows with a JSONB payload document.
type PostgresMissionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresMissionRepository creates a new PostgresMissionRepository using the provided *sql.DB.
func NewPostgresMissionRepository(db *sql.DB) *PostgresMissionRepository {
	return &PostgresMissionRepository{DB: db}
}

// GetMission retrieves a mission by its identifier with assignee and opener
// usernames resolved. Returns ErrNotFound if the mission does not exist.
func (r *PostgresMissionRepository) GetMission(ctx context.Context, missionID string) (*models.Mission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+missionColumns+` `+missionFrom+` WHERE m.mission_id = $1`, missionID)
	return scanMission(row)
}

// CreateMission inserts a new mission at version 1.
// Returns ErrAlreadyExists if the identifier is taken.
func (r *PostgresMissionRepository) CreateMission(ctx context.Context, m *models.Mission) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO missions (mission_id, status, assigned_to, payload, comment, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (mission_id) DO NOTHING
	`, m.MissionID, string(m.Status), m.AssignedTo.ID, payload, m.Comment, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	m.Version = 1
	return nil
}

// SaveMission writes the mutable fields of a loaded mission. The write only
// applies when the stored version still equals m.Version; otherwise
// ErrStaleVersion is returned. On success m.Version is bumped.
func (r *PostgresMissionRepository) SaveMission(ctx context.Context, m *models.Mission) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	var openedBy sql.NullString
	if m.OpenedBy != nil {
		openedBy = sql.NullString{String: m.OpenedBy.ID, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE missions
		   SET status = $1, opened_by = $2, payload = $3, comment = $4,
		       opened_at = $5, completed_at = $6, updated_at = $7, version = version + 1
		 WHERE mission_id = $8 AND version = $9
	`, string(m.Status), openedBy, payload, m.Comment,
		nullTime(m.OpenedAt), nullTime(m.CompletedAt), m.UpdatedAt,
		m.MissionID, m.Version)
	if err != nil {
		return fmt.Errorf("update mission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleVersion
	}
	m.Version++
	return nil
}

// ListMissions returns all missions, unopened first, then by payload date descending.
func (r *PostgresMissionRepository) ListMissions(ctx context.Context, filter models.MissionFilter) ([]models.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionColumns+` `+missionFrom+`
		WHERE ($1 = '' OR m.status = $1)
		ORDER BY CASE m.status WHEN 'unopened' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END,
		         m.payload->>'date' DESC`,
		string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("ListMissions: %w", err)
	}
	return collectMissions(rows)
}

// ListMissionsByAssignee returns one page of a worker's missions, newest first.
func (r *PostgresMissionRepository) ListMissionsByAssignee(
	ctx context.Context,
	userID string,
	filter models.MissionFilter,
	offset, limit int,
) ([]models.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionColumns+` `+missionFrom+`
		WHERE m.assigned_to = $1 AND ($2 = '' OR m.status = $2)
		ORDER BY m.created_at DESC
		LIMIT $3 OFFSET $4`,
		userID, string(filter.Status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListMissionsByAssignee: %w", err)
	}
	return collectMissions(rows)
}

// CountMissionsByAssignee counts a worker's missions matching filter.
func (r *PostgresMissionRepository) CountMissionsByAssignee(ctx context.Context, userID string, filter models.MissionFilter) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM missions m WHERE m.assigned_to = $1 AND ($2 = '' OR m.status = $2)
	`, userID, string(filter.Status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountMissionsByAssignee: %w", err)
	}
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func collectMissions(rows *sql.Rows) ([]models.Mission, error) {
	defer rows.Close()

	missions := []models.Mission{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, *m)
	}
	return missions, rows.Err()
}

func scanMission(row rowScanner) (*models.Mission, error) {
	var (
		m            models.Mission
		status       string
		openedBy     sql.NullString
		openedByName sql.NullString
		payload      []byte
		openedAt     sql.NullTime
		completedAt  sql.NullTime
	)
	err := row.Scan(&m.MissionID, &status, &m.AssignedTo.ID, &m.AssignedTo.Username,
		&openedBy, &openedByName, &payload, &m.Comment, &openedAt, &completedAt,
		&m.CreatedAt, &m.UpdatedAt, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan mission: %w", err)
	}
	if err := json.Unmarshal(payload, &m.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of %s: %w", m.MissionID, err)
	}

	m.Status = models.Status(status)
	if openedBy.Valid {
		m.OpenedBy = &models.UserRef{ID: openedBy.String, Username: openedByName.String}
	}
	if openedAt.Valid {
		m.OpenedAt = &openedAt.Time
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	return &m, nil
}
