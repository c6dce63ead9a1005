package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// VoteService defines the interface for post-meetup voting
type VoteService interface {
	Vote(ctx context.Context, uid string, req *dto.VoteRequest) (*dto.VoteResponse, error)
}

// voteServiceImpl implements VoteService
type voteServiceImpl struct {
	store     repositories.Store
	lifecycle LifecycleService
	settings  RoomSettings
	clock     helpers.Clock
	logger    zerolog.Logger
}

// NewVoteService creates a new VoteService
func NewVoteService(
	store repositories.Store,
	lifecycle LifecycleService,
	settings RoomSettings,
	clock helpers.Clock,
	logger zerolog.Logger,
) VoteService {
	return &voteServiceImpl{
		store:     store,
		lifecycle: lifecycle,
		settings:  settings,
		clock:     clock,
		logger:    logger,
	}
}

// Vote records the first vote of uid for a room. Later submissions succeed without effect.
func (s *voteServiceImpl) Vote(ctx context.Context, uid string, req *dto.VoteRequest) (*dto.VoteResponse, error) {
	if _, _, err := s.lifecycle.EnsureFresh(ctx, req.RoomID); err != nil {
		return nil, err
	}

	now := s.clock()
	resp := &dto.VoteResponse{RoomID: req.RoomID}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		resp.Recorded = false
		resp.RoomClosed = false

		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			return mapRoomLookupError(err)
		}
		resp.RoomClosed = room.Closed

		if room.AbortedUnderMin {
			return apperrors.ErrRoomAborted
		}
		// cancelled before the start, voting never opened
		if room.VotingOpenedAt == nil {
			return apperrors.ErrVoteWindow
		}
		if !room.HasParticipant(uid) {
			return apperrors.NewForbiddenError("only participants can vote")
		}
		if !now.After(room.EndAt) || !now.Before(room.EndAt.Add(s.settings.VoteWindow)) {
			return apperrors.ErrVoteWindow
		}

		if room.HasVoted(uid) {
			return nil
		}
		if _, err := tx.GetVote(ctx, room.ID, uid); err == nil {
			return nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		vote := &models.Vote{
			RoomID:    room.ID,
			VoterUID:  uid,
			CreatedAt: now,
		}
		if isPeer(room, uid, req.ThumbsForUID) {
			vote.ThumbsForUID = req.ThumbsForUID
		}
		if isPeer(room, uid, req.HeartForUID) {
			vote.HeartForUID = req.HeartForUID
		}
		if req.NoShowUID != models.NoShowNone && isPeer(room, uid, req.NoShowUID) {
			vote.NoShowUID = req.NoShowUID
		}

		if err := tx.InsertVote(ctx, vote); err != nil {
			return err
		}

		if vote.ThumbsForUID != "" {
			if err := tx.ApplyScoreDelta(ctx, vote.ThumbsForUID, thumbsDelta()); err != nil {
				return err
			}
		}
		if vote.HeartForUID != "" {
			if err := tx.ApplyScoreDelta(ctx, vote.HeartForUID, heartDelta()); err != nil {
				return err
			}
		}
		if vote.NoShowUID != "" {
			err := tx.InsertNoShowReport(ctx, &models.NoShowReport{
				RoomID:      room.ID,
				ReporterUID: uid,
				AccusedUID:  vote.NoShowUID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}

		room.MarkVoted(uid)
		room.UpdatedAt = now
		if room.AllVoted() {
			room.Closed = true
			room.VotingOpen = false
			room.VoteCompletedAt = timePtr(now)
			if room.ClosedAt == nil {
				room.ClosedAt = timePtr(now)
			}
		}
		if err := tx.SaveRoom(ctx, room); err != nil {
			return err
		}

		resp.Recorded = true
		resp.RoomClosed = room.Closed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Recorded {
		s.logger.Info().Str("roomId", req.RoomID).Str("voter", uid).Bool("roomClosed", resp.RoomClosed).Msg("Vote recorded")
	}
	return resp, nil
}

// isPeer reports whether target is another participant of room
func isPeer(room *models.Room, voter, target string) bool {
	return target != "" && target != voter && room.HasParticipant(target)
}
