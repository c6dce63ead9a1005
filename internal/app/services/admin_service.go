package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// AdminService defines the interface for moderation operations
type AdminService interface {
	ApplyNoShow(ctx context.Context, adminUID string, req *dto.NoShowRequest) (*dto.NoShowResponse, error)
	ListNoShowReports(ctx context.Context, roomID string) (*dto.NoShowReportsResponse, error)
	ApplyScore(ctx context.Context, adminUID string, req *dto.ApplyScoreRequest) (*models.Score, error)
	ResetScores(ctx context.Context, adminUID string, req *dto.ResetScoresRequest) (*dto.ResetScoresResponse, error)
	ListAudit(ctx context.Context, limit int) (*dto.AuditListResponse, error)
	AwardTitles(ctx context.Context, adminUID string, req *dto.AwardTitlesRequest) (*dto.AwardTitlesResponse, error)
	DeleteRoom(ctx context.Context, adminUID string, req *dto.DeleteRoomRequest) error
}

// adminServiceImpl implements AdminService
type adminServiceImpl struct {
	store  repositories.Store
	clock  helpers.Clock
	logger zerolog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(store repositories.Store, clock helpers.Clock, logger zerolog.Logger) AdminService {
	return &adminServiceImpl{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// ApplyNoShow penalizes the given participants once per room. The call is all or nothing.
func (s *adminServiceImpl) ApplyNoShow(ctx context.Context, adminUID string, req *dto.NoShowRequest) (*dto.NoShowResponse, error) {
	uids := uniqueNonEmpty(req.UIDs)
	if len(uids) == 0 {
		return nil, apperrors.NewBadRequestError("uids must not be empty")
	}

	now := s.clock()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			return mapRoomLookupError(err)
		}

		for _, uid := range uids {
			if !room.HasParticipant(uid) {
				return apperrors.NewBadRequestError(fmt.Sprintf("%s is not a participant of this room", uid))
			}
		}

		for _, uid := range uids {
			err := tx.InsertNoShowLedger(ctx, &models.NoShowLedger{
				RoomID:    room.ID,
				UID:       uid,
				AppliedBy: adminUID,
				CreatedAt: now,
			})
			if err != nil {
				if errors.Is(err, apperrors.ErrDuplicate) {
					return apperrors.ErrNoShowApplied
				}
				return err
			}

			delta := noShowDelta()
			if err := tx.ApplyScoreDelta(ctx, uid, delta); err != nil {
				return err
			}
			err = tx.InsertAudit(ctx, &models.ScoreAudit{
				UID:       uid,
				Delta:     delta.Total,
				Reason:    "no-show in room " + room.ID,
				ActorUID:  adminUID,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("roomId", req.RoomID).Strs("uids", uids).Str("admin", adminUID).Msg("No-show applied")
	return &dto.NoShowResponse{RoomID: req.RoomID, Applied: uids}, nil
}

// ListNoShowReports returns the accusations for a room with a per-accused tally
func (s *adminServiceImpl) ListNoShowReports(ctx context.Context, roomID string) (*dto.NoShowReportsResponse, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, apperrors.NewBadRequestError("roomId is required")
	}

	reports, err := s.store.ListNoShowReports(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list no-show reports: %w", err)
	}

	tally := map[string]int{}
	for _, r := range reports {
		tally[r.AccusedUID]++
	}
	return &dto.NoShowReportsResponse{RoomID: roomID, Reports: reports, Tally: tally}, nil
}

// ApplyScore adds a signed correction to one ledger with an audit row
func (s *adminServiceImpl) ApplyScore(ctx context.Context, adminUID string, req *dto.ApplyScoreRequest) (*models.Score, error) {
	uid := strings.TrimSpace(req.UID)
	reason := strings.TrimSpace(req.Reason)
	switch {
	case uid == "":
		return nil, apperrors.NewBadRequestError("uid is required")
	case req.Delta == 0:
		return nil, apperrors.NewBadRequestError("delta must not be zero")
	case reason == "":
		return nil, apperrors.NewBadRequestError("reason is required")
	}

	now := s.clock()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.ApplyScoreDelta(ctx, uid, models.ScoreDelta{Total: req.Delta}); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, &models.ScoreAudit{
			UID:       uid,
			Delta:     req.Delta,
			Reason:    reason,
			ActorUID:  adminUID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply score: %w", err)
	}

	s.logger.Info().Str("uid", uid).Int("delta", req.Delta).Str("admin", adminUID).Msg("Score adjusted")
	return s.store.GetScore(ctx, uid)
}

// ResetScores zeroes every ledger in bounded batches. An interrupted reset returns
// the progress made together with the error; passing the cursor back resumes it.
func (s *adminServiceImpl) ResetScores(ctx context.Context, adminUID string, req *dto.ResetScoresRequest) (*dto.ResetScoresResponse, error) {
	if req.DryRun {
		count, err := s.store.CountScores(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count scores: %w", err)
		}
		return &dto.ResetScoresResponse{DryRun: true, Affected: count}, nil
	}
	if !req.Confirm {
		return nil, apperrors.NewBadRequestError("confirm must be true to reset scores")
	}

	resp := &dto.ResetScoresResponse{Cursor: req.Cursor}
	for {
		last, n, err := s.store.ResetScoresBatch(ctx, resp.Cursor, ResetBatchSize)
		if err != nil {
			s.logger.Error().Err(err).Str("cursor", resp.Cursor).Int("reset", resp.Reset).Msg("Score reset interrupted")
			custom := &apperrors.CustomError{Err: err, Message: "score reset interrupted"}
			return resp, custom.WithDetails(map[string]interface{}{
				"cursor": resp.Cursor,
				"reset":  resp.Reset,
			})
		}
		resp.Reset += n
		resp.Affected = resp.Reset
		if n == 0 {
			break
		}
		resp.Cursor = last
		if n < ResetBatchSize {
			break
		}
	}
	resp.Complete = true
	resp.Cursor = ""

	err := s.store.InsertAudit(ctx, &models.ScoreAudit{
		UID:       models.AuditUIDAll,
		Delta:     0,
		Reason:    fmt.Sprintf("reset %d ledgers", resp.Reset),
		ActorUID:  adminUID,
		CreatedAt: s.clock(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write reset audit")
	}

	s.logger.Info().Int("reset", resp.Reset).Str("admin", adminUID).Msg("Scores reset")
	return resp, nil
}

// ListAudit returns the newest audit rows
func (s *adminServiceImpl) ListAudit(ctx context.Context, limit int) (*dto.AuditListResponse, error) {
	items, err := s.store.ListAudit(ctx, helpers.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit: %w", err)
	}
	return &dto.AuditListResponse{Items: items}, nil
}

// AwardTitles grants category tags to participants of a finished room, once per room
func (s *adminServiceImpl) AwardTitles(ctx context.Context, adminUID string, req *dto.AwardTitlesRequest) (*dto.AwardTitlesResponse, error) {
	if len(req.Awards) == 0 {
		return nil, apperrors.NewBadRequestError("awards must not be empty")
	}

	categories := make([]string, 0, len(req.Awards))
	for category := range req.Awards {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	now := s.clock()
	resp := &dto.AwardTitlesResponse{RoomID: req.RoomID}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		resp.Granted = map[string][]string{}
		resp.Skipped = []string{}

		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			return mapRoomLookupError(err)
		}
		switch {
		case room.AbortedUnderMin:
			return apperrors.ErrRoomAborted
		case !room.Closed:
			return apperrors.ErrRoomStillActive
		case room.TitlesAppliedAt != nil:
			return apperrors.ErrTitlesApplied
		}

		order := []string{}
		for _, category := range categories {
			tag := strings.TrimSpace(category)
			target := strings.TrimSpace(req.Awards[category])
			if tag == "" || !room.HasParticipant(target) {
				resp.Skipped = append(resp.Skipped, category)
				continue
			}
			if _, seen := resp.Granted[target]; !seen {
				order = append(order, target)
			}
			resp.Granted[target] = appendUnique(resp.Granted[target], tag)
		}
		if len(order) == 0 {
			return apperrors.NewBadRequestError("no award target is a participant of this room")
		}

		for _, uid := range order {
			titles := []string{}
			user, err := tx.GetUser(ctx, uid)
			switch {
			case err == nil:
				titles = user.Titles
			case !errors.Is(err, apperrors.ErrNotFound):
				return err
			}

			profile := &models.User{UID: uid, Titles: titles}
			profile.AddTitles(resp.Granted[uid]...)
			if err := tx.SaveUserTitles(ctx, uid, profile.Titles); err != nil {
				return err
			}
		}

		room.TitlesAppliedAt = timePtr(now)
		room.UpdatedAt = now
		return tx.SaveRoom(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("roomId", req.RoomID).Int("recipients", len(resp.Granted)).Str("admin", adminUID).Msg("Titles awarded")
	return resp, nil
}

// DeleteRoom removes a room, archiving it unless told otherwise
func (s *adminServiceImpl) DeleteRoom(ctx context.Context, adminUID string, req *dto.DeleteRoomRequest) error {
	archive := true
	if req.Archive != nil {
		archive = *req.Archive
	}

	if err := s.store.DeleteRoom(ctx, req.RoomID, archive); err != nil {
		return mapRoomLookupError(err)
	}

	s.logger.Info().Str("roomId", req.RoomID).Bool("archived", archive).Str("admin", adminUID).Msg("Room deleted")
	return nil
}

func uniqueNonEmpty(values []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, item := range list {
		if item == value {
			return list
		}
	}
	return append(list, value)
}
