package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/db"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

var userColumns = []string{"uid", "display_name", "photo_url", "titles", "created_at", "updated_at"}

func getUser(ctx context.Context, q db.Querier, uid string) (*models.User, error) {
	sql, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var u models.User
	err = q.QueryRow(ctx, sql, args...).Scan(&u.UID, &u.DisplayName, &u.PhotoURL, &u.Titles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &u, nil
}

// GetUser returns the profile of uid
func (s *PostgresStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return getUser(ctx, s.db.Pool, uid)
}

// GetUser returns the profile of uid inside the transaction
func (t *pgTx) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return getUser(ctx, t.q, uid)
}

// SaveUserTitles replaces the award tags of uid, creating the profile row when missing
func (t *pgTx) SaveUserTitles(ctx context.Context, uid string, titles []string) error {
	sql, args, err := psql.Insert("users").
		Columns("uid", "titles").
		Values(uid, nonNil(titles)).
		Suffix("ON CONFLICT (uid) DO UPDATE SET titles = EXCLUDED.titles, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error saving titles for %s: %w", uid, err)
	}
	return nil
}

// UpsertUser creates or updates the editable profile fields. Titles are left untouched.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) error {
	sql, args, err := psql.Insert("users").
		Columns("uid", "display_name", "photo_url").
		Values(user.UID, user.DisplayName, user.PhotoURL).
		Suffix("ON CONFLICT (uid) DO UPDATE SET display_name = EXCLUDED.display_name, photo_url = EXCLUDED.photo_url, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}
	return nil
}

// IsAdmin checks the admin registry
func (s *PostgresStore) IsAdmin(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE uid = $1)`, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking admin registry: %w", err)
	}
	return exists, nil
}

// AddAdmin registers uid as admin; registering twice is a no-op
func (s *PostgresStore) AddAdmin(ctx context.Context, uid string) error {
	if _, err := s.db.Pool.Exec(ctx, `INSERT INTO admins (uid) VALUES ($1) ON CONFLICT (uid) DO NOTHING`, uid); err != nil {
		return fmt.Errorf("error adding admin: %w", err)
	}
	return nil
}

// InsertFeedback stores a new feedback item
func (s *PostgresStore) InsertFeedback(ctx context.Context, f *models.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	sql, args, err := psql.Insert("feedback").
		Columns("id", "uid", "category", "message", "status", "admin_note", "created_at", "updated_at").
		Values(f.ID, f.UID, f.Category, f.Message, f.Status, f.AdminNote, f.CreatedAt, f.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting feedback: %w", err)
	}
	return nil
}

// ListFeedback lists feedback newest first, optionally narrowed to one status
func (s *PostgresStore) ListFeedback(ctx context.Context, status models.FeedbackStatus, limit int) ([]*models.Feedback, error) {
	query := psql.Select("id", "uid", "category", "message", "status", "admin_note", "created_at", "updated_at").
		From("feedback").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if status != "" {
		query = query.Where(squirrel.Eq{"status": status})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	items := []*models.Feedback{}
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.UID, &f.Category, &f.Message, &f.Status, &f.AdminNote, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning feedback: %w", err)
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

// UpdateFeedbackStatus moves a feedback item to status
func (s *PostgresStore) UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus, note string, at time.Time) error {
	sql, args, err := psql.Update("feedback").
		Set("status", status).
		Set("admin_note", note).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := s.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
