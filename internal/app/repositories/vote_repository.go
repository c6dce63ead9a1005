package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/dberrors"
)

// GetVote returns the vote of voterUID for roomID or ErrNotFound
func (t *pgTx) GetVote(ctx context.Context, roomID, voterUID string) (*models.Vote, error) {
	sql, args, err := psql.Select("room_id", "voter_uid", "thumbs_for_uid", "heart_for_uid", "noshow_uid", "created_at").
		From("room_votes").
		Where(squirrel.Eq{"room_id": roomID, "voter_uid": voterUID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var v models.Vote
	err = t.q.QueryRow(ctx, sql, args...).Scan(&v.RoomID, &v.VoterUID, &v.ThumbsForUID, &v.HeartForUID, &v.NoShowUID, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching vote: %w", err)
	}
	return &v, nil
}

// InsertVote records the vote marker
func (t *pgTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	sql, args, err := psql.Insert("room_votes").
		Columns("room_id", "voter_uid", "thumbs_for_uid", "heart_for_uid", "noshow_uid", "created_at").
		Values(vote.RoomID, vote.VoterUID, vote.ThumbsForUID, vote.HeartForUID, vote.NoShowUID, vote.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "room_votes_pkey") {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("error inserting vote: %w", err)
	}
	return nil
}

// InsertNoShowReport appends an accusation
func (t *pgTx) InsertNoShowReport(ctx context.Context, report *models.NoShowReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	sql, args, err := psql.Insert("noshow_reports").
		Columns("id", "room_id", "reporter_uid", "accused_uid", "created_at").
		Values(report.ID, report.RoomID, report.ReporterUID, report.AccusedUID, report.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting no-show report: %w", err)
	}
	return nil
}

// InsertNoShowLedger writes the per (room, uid) guard; a second write yields ErrDuplicate
func (t *pgTx) InsertNoShowLedger(ctx context.Context, entry *models.NoShowLedger) error {
	sql, args, err := psql.Insert("noshow_ledger").
		Columns("room_id", "uid", "applied_by", "created_at").
		Values(entry.RoomID, entry.UID, entry.AppliedBy, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "noshow_ledger_pkey") {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("error inserting no-show ledger: %w", err)
	}
	return nil
}

// ListNoShowReports lists accusations for a room
func (s *PostgresStore) ListNoShowReports(ctx context.Context, roomID string) ([]*models.NoShowReport, error) {
	sql, args, err := psql.Select("id", "room_id", "reporter_uid", "accused_uid", "created_at").
		From("noshow_reports").
		Where(squirrel.Eq{"room_id": roomID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	reports := []*models.NoShowReport{}
	for rows.Next() {
		var r models.NoShowReport
		if err := rows.Scan(&r.ID, &r.RoomID, &r.ReporterUID, &r.AccusedUID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}
