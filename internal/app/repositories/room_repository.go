package repositories

import (
	"context"
	"encoding/json"
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

var roomColumns = []string{
	"id", "title", "location", "content", "type", "chat_url", "creator_uid",
	"start_at", "end_at", "reveal_at", "join_lock_until",
	"capacity", "min_capacity", "participants", "participants_count",
	"closed", "aborted_under_min", "voting_open", "vote_done_uids",
	"closed_at", "aborted_at", "voting_opened_at", "vote_reminder_sent_at", "vote_completed_at", "titles_applied_at",
	"created_at", "updated_at", "version",
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(
		&r.ID, &r.Title, &r.Location, &r.Content, &r.Type, &r.ChatURL, &r.CreatorUID,
		&r.StartAt, &r.EndAt, &r.RevealAt, &r.JoinLockUntil,
		&r.Capacity, &r.MinCapacity, &r.Participants, &r.ParticipantsCount,
		&r.Closed, &r.AbortedUnderMin, &r.VotingOpen, &r.VoteDoneUIDs,
		&r.ClosedAt, &r.AbortedAt, &r.VotingOpenedAt, &r.VoteReminderSentAt, &r.VoteCompletedAt, &r.TitlesAppliedAt,
		&r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func getRoom(ctx context.Context, q db.Querier, id string) (*models.Room, error) {
	// ids are UUID columns; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrNotFound
	}

	sql, args, err := psql.Select(roomColumns...).From("rooms").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	room, err := scanRoom(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching room %s: %w", id, err)
	}
	return room, nil
}

// GetRoom fetches one room outside of a transaction
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return getRoom(ctx, s.db.Pool, id)
}

// GetRoom reads a room inside the transaction
func (t *pgTx) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return getRoom(ctx, t.q, id)
}

// InsertRoom inserts a new room
func (t *pgTx) InsertRoom(ctx context.Context, room *models.Room) error {
	sql, args, err := psql.Insert("rooms").
		Columns(roomColumns...).
		Values(
			room.ID, room.Title, room.Location, room.Content, room.Type, room.ChatURL, room.CreatorUID,
			room.StartAt, room.EndAt, room.RevealAt, room.JoinLockUntil,
			room.Capacity, room.MinCapacity, nonNil(room.Participants), len(room.Participants),
			room.Closed, room.AbortedUnderMin, room.VotingOpen, nonNil(room.VoteDoneUIDs),
			room.ClosedAt, room.AbortedAt, room.VotingOpenedAt, room.VoteReminderSentAt, room.VoteCompletedAt, room.TitlesAppliedAt,
			room.CreatedAt, room.UpdatedAt, 1,
		).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting room: %w", err)
	}
	room.Version = 1
	return nil
}

// SaveRoom writes every mutable column back. The version check turns a lost update
// into ErrConflict even if the isolation level were relaxed.
func (t *pgTx) SaveRoom(ctx context.Context, room *models.Room) error {
	sql, args, err := psql.Update("rooms").
		SetMap(map[string]interface{}{
			"end_at":                room.EndAt,
			"participants":          nonNil(room.Participants),
			"participants_count":    len(room.Participants),
			"closed":                room.Closed,
			"aborted_under_min":     room.AbortedUnderMin,
			"voting_open":           room.VotingOpen,
			"vote_done_uids":        nonNil(room.VoteDoneUIDs),
			"closed_at":             room.ClosedAt,
			"aborted_at":            room.AbortedAt,
			"voting_opened_at":      room.VotingOpenedAt,
			"vote_reminder_sent_at": room.VoteReminderSentAt,
			"vote_completed_at":     room.VoteCompletedAt,
			"titles_applied_at":     room.TitlesAppliedAt,
			"updated_at":            room.UpdatedAt,
			"version":               squirrel.Expr("version + 1"),
		}).
		Where(squirrel.Eq{"id": room.ID, "version": room.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := t.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating room %s: %w", room.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s changed concurrently: %w", room.ID, apperrors.ErrConflict)
	}
	room.Version++
	return nil
}

// ListRooms lists rooms for the public views
func (s *PostgresStore) ListRooms(ctx context.Context, filter RoomFilter) ([]*models.Room, error) {
	query := psql.Select(roomColumns...).From("rooms")
	switch filter.Status {
	case RoomFilterClosed:
		query = query.Where(squirrel.Eq{"closed": true}).OrderBy("start_at DESC")
	case RoomFilterAll:
		query = query.OrderBy("start_at DESC")
	default:
		query = query.Where(squirrel.Eq{"closed": false}).OrderBy("start_at ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
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

	rooms := []*models.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// ListSweepCandidates selects open rooms that started and closed rooms still owing a reminder
func (s *PostgresStore) ListSweepCandidates(ctx context.Context, now time.Time) ([]string, error) {
	sql, args, err := psql.Select("id").From("rooms").
		Where(squirrel.Or{
			squirrel.And{squirrel.Eq{"closed": false}, squirrel.LtOrEq{"start_at": now}},
			squirrel.And{
				squirrel.Eq{"closed": true, "aborted_under_min": false},
				squirrel.Expr("vote_reminder_sent_at IS NULL"),
			},
		}).
		OrderBy("start_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeClosedRooms deletes the oldest limit rooms closed before cutoff; votes and reports cascade
func (s *PostgresStore) PurgeClosedRooms(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	batch, batchArgs, err := squirrel.Select("id").
		From("rooms").
		Where(squirrel.Eq{"closed": true}).
		Where(squirrel.Lt{"closed_at": cutoff}).
		OrderBy("closed_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	sql, args, err := psql.Delete("rooms").
		Where(squirrel.Expr("id IN ("+batch+")", batchArgs...)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := s.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error purging rooms: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteRoom removes a room, archiving a JSON snapshot first when requested
func (s *PostgresStore) DeleteRoom(ctx context.Context, id string, archive bool) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		room, err := getRoom(ctx, tx, id)
		if err != nil {
			return err
		}

		if archive {
			payload, err := json.Marshal(room)
			if err != nil {
				return fmt.Errorf("error encoding room archive: %w", err)
			}
			sql, args, err := psql.Insert("rooms_archive").
				Columns("id", "payload").
				Values(room.ID, payload).
				Suffix("ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, archived_at = NOW()").
				ToSql()
			if err != nil {
				return fmt.Errorf("error building SQL: %w", err)
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("error archiving room: %w", err)
			}
		}

		sql, args, err := psql.Delete("rooms").Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error deleting room: %w", err)
		}
		return nil
	})
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
