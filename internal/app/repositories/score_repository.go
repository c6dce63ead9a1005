package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/db"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

var scoreColumns = []string{
	"uid", "total", "created_rooms", "joined_rooms", "no_show_count", "thumbs_count", "hearts_count", "updated_at",
}

func scanScore(row pgx.Row) (*models.Score, error) {
	var s models.Score
	if err := row.Scan(&s.UID, &s.Total, &s.CreatedRooms, &s.JoinedRooms, &s.NoShowCount, &s.ThumbsCount, &s.HeartsCount, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyScoreDelta adds delta onto the ledger of uid, creating the ledger on first use
func (t *pgTx) ApplyScoreDelta(ctx context.Context, uid string, d models.ScoreDelta) error {
	sql, args, err := psql.Insert("scores").
		Columns("uid", "total", "created_rooms", "joined_rooms", "no_show_count", "thumbs_count", "hearts_count").
		Values(uid, d.Total, d.CreatedRooms, d.JoinedRooms, d.NoShowCount, d.ThumbsCount, d.HeartsCount).
		Suffix(`ON CONFLICT (uid) DO UPDATE SET
			total = scores.total + EXCLUDED.total,
			created_rooms = scores.created_rooms + EXCLUDED.created_rooms,
			joined_rooms = scores.joined_rooms + EXCLUDED.joined_rooms,
			no_show_count = scores.no_show_count + EXCLUDED.no_show_count,
			thumbs_count = scores.thumbs_count + EXCLUDED.thumbs_count,
			hearts_count = scores.hearts_count + EXCLUDED.hearts_count,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error applying score delta for %s: %w", uid, err)
	}
	return nil
}

// InsertAudit appends an audit row inside the transaction
func (t *pgTx) InsertAudit(ctx context.Context, audit *models.ScoreAudit) error {
	return insertAudit(ctx, t.q, audit)
}

// InsertAudit appends an audit row
func (s *PostgresStore) InsertAudit(ctx context.Context, audit *models.ScoreAudit) error {
	return insertAudit(ctx, s.db.Pool, audit)
}

func insertAudit(ctx context.Context, q db.Querier, audit *models.ScoreAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	sql, args, err := psql.Insert("score_audit").
		Columns("id", "uid", "delta", "reason", "actor_uid", "created_at").
		Values(audit.ID, audit.UID, audit.Delta, audit.Reason, audit.ActorUID, audit.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting score audit: %w", err)
	}
	return nil
}

// GetScore returns the ledger of uid
func (s *PostgresStore) GetScore(ctx context.Context, uid string) (*models.Score, error) {
	sql, args, err := psql.Select(scoreColumns...).From("scores").Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	score, err := scanScore(s.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching score: %w", err)
	}
	return score, nil
}

// ListTopScores returns the leaderboard
func (s *PostgresStore) ListTopScores(ctx context.Context, limit int) ([]*models.Score, error) {
	sql, args, err := psql.Select(scoreColumns...).From("scores").
		OrderBy("total DESC", "uid ASC").
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

	scores := []*models.Score{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// CountScores counts ledgers
func (s *PostgresStore) CountScores(ctx context.Context) (int, error) {
	var count int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores`).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting scores: %w", err)
	}
	return count, nil
}

// ResetScoresBatch zeroes the next page of ledgers ordered by uid
func (s *PostgresStore) ResetScoresBatch(ctx context.Context, afterUID string, limit int) (string, int, error) {
	lastUID := afterUID
	reset := 0

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		lastUID, reset = afterUID, 0

		rows, err := tx.Query(ctx, `
			UPDATE scores SET
				total = 0, created_rooms = 0, joined_rooms = 0, no_show_count = 0,
				thumbs_count = 0, hearts_count = 0, updated_at = NOW()
			WHERE uid IN (SELECT uid FROM scores WHERE uid > $1 ORDER BY uid LIMIT $2)
			RETURNING uid`, afterUID, limit)
		if err != nil {
			return fmt.Errorf("error resetting scores: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var uid string
			if err := rows.Scan(&uid); err != nil {
				return fmt.Errorf("error scanning row: %w", err)
			}
			if uid > lastUID {
				lastUID = uid
			}
			reset++
		}
		return rows.Err()
	})
	if err != nil {
		return afterUID, 0, err
	}
	return lastUID, reset, nil
}

// ListAudit returns the most recent audit rows
func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]*models.ScoreAudit, error) {
	sql, args, err := psql.Select("id", "uid", "delta", "reason", "actor_uid", "created_at").
		From("score_audit").
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

	audits := []*models.ScoreAudit{}
	for rows.Next() {
		var a models.ScoreAudit
		if err := rows.Scan(&a.ID, &a.UID, &a.Delta, &a.Reason, &a.ActorUID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning audit: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}
