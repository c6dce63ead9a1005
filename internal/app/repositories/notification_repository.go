package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/moim/internal/app/models"
)

// InsertNotifications writes items in one batch. Rows whose (uid, dedupe_key) already
// exist are skipped, which makes re-delivery of the same event harmless.
func (s *PostgresStore) InsertNotifications(ctx context.Context, items []*models.Notification) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, n := range items {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO notifications (id, uid, type, title, body, url, dedupe_key, unread, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
			ON CONFLICT ON CONSTRAINT notifications_uid_dedupe_key DO NOTHING`,
			n.ID, n.UID, n.Type, n.Title, n.Body, n.URL, n.DedupeKey, n.CreatedAt)
	}

	results := s.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range items {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("error inserting notification: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListNotifications returns the newest notifications of uid
func (s *PostgresStore) ListNotifications(ctx context.Context, uid string, limit int) ([]*models.Notification, error) {
	sql, args, err := psql.Select("id", "uid", "type", "title", "body", "url", "dedupe_key", "unread", "created_at", "read_at").
		From("notifications").
		Where(squirrel.Eq{"uid": uid}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	items := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UID, &n.Type, &n.Title, &n.Body, &n.URL, &n.DedupeKey, &n.Unread, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

// MarkNotificationsRead marks the given notifications of uid as read. An empty ids marks all.
func (s *PostgresStore) MarkNotificationsRead(ctx context.Context, uid string, ids []string, at time.Time) (int, error) {
	query := psql.Update("notifications").
		Set("unread", false).
		Set("read_at", at).
		Where(squirrel.Eq{"uid": uid, "unread": true})
	if len(ids) > 0 {
		query = query.Where(squirrel.Eq{"id": ids})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := s.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SavePushToken registers a push endpoint; saving it twice is a no-op
func (s *PostgresStore) SavePushToken(ctx context.Context, token *models.PushToken) error {
	sql, args, err := psql.Insert("push_tokens").
		Columns("uid", "token", "created_at").
		Values(token.UID, token.Token, token.CreatedAt).
		Suffix("ON CONFLICT (uid, token) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error saving push token: %w", err)
	}
	return nil
}

// DeletePushToken removes a push endpoint. An empty uid removes the token for every user.
func (s *PostgresStore) DeletePushToken(ctx context.Context, uid, token string) error {
	where := squirrel.Eq{"token": token}
	if uid != "" {
		where["uid"] = uid
	}
	sql, args, err := psql.Delete("push_tokens").Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting push token: %w", err)
	}
	return nil
}

// ListPushTokens returns the endpoints of the given users
func (s *PostgresStore) ListPushTokens(ctx context.Context, uids []string) ([]*models.PushToken, error) {
	if len(uids) == 0 {
		return []*models.PushToken{}, nil
	}
	return s.listPushTokens(ctx, squirrel.Eq{"uid": uids})
}

// ListAllPushTokens returns every registered endpoint
func (s *PostgresStore) ListAllPushTokens(ctx context.Context) ([]*models.PushToken, error) {
	return s.listPushTokens(ctx, nil)
}

func (s *PostgresStore) listPushTokens(ctx context.Context, where squirrel.Sqlizer) ([]*models.PushToken, error) {
	query := psql.Select("uid", "token", "created_at").From("push_tokens").OrderBy("uid", "created_at")
	if where != nil {
		query = query.Where(where)
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

	tokens := []*models.PushToken{}
	for rows.Next() {
		var t models.PushToken
		if err := rows.Scan(&t.UID, &t.Token, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning push token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}
