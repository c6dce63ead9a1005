package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/notify"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// RoomService defines the interface for room operations
type RoomService interface {
	CreateRoom(ctx context.Context, uid string, req *dto.CreateRoomRequest) (*dto.CreateRoomResponse, error)
	JoinRoom(ctx context.Context, uid, roomID string) (*dto.MembershipResponse, error)
	LeaveRoom(ctx context.Context, uid, roomID string) (*dto.MembershipResponse, error)
	// CloseRoom ends a room early. Only the creator may close unless asAdmin is set.
	CloseRoom(ctx context.Context, uid, roomID string, asAdmin bool) (*dto.RoomTransitionResponse, error)
	ListRooms(ctx context.Context, status string, limit int) (*dto.RoomListResponse, error)
	GetRoom(ctx context.Context, roomID string) (*dto.RoomResponse, error)
}

// roomServiceImpl implements RoomService
type roomServiceImpl struct {
	store     repositories.Store
	lifecycle LifecycleService
	notifier  Notifier
	announcer *announcer
	settings  RoomSettings
	clock     helpers.Clock
	logger    zerolog.Logger
}

// NewRoomService creates a new RoomService
func NewRoomService(
	store repositories.Store,
	lifecycle LifecycleService,
	notifier Notifier,
	settings RoomSettings,
	clock helpers.Clock,
	logger zerolog.Logger,
) RoomService {
	return &roomServiceImpl{
		store:     store,
		lifecycle: lifecycle,
		notifier:  notifier,
		announcer: &announcer{notifier: notifier, logger: logger},
		settings:  settings,
		clock:     clock,
		logger:    logger,
	}
}

// CreateRoom validates the request, stores the room and credits the creator in one transaction
func (s *roomServiceImpl) CreateRoom(ctx context.Context, uid string, req *dto.CreateRoomRequest) (*dto.CreateRoomResponse, error) {
	now := s.clock()

	room, err := s.buildRoom(uid, req, now)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		return tx.ApplyScoreDelta(ctx, uid, createRoomDelta(room.Capacity))
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("Failed to create room")
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.Info().Str("roomId", room.ID).Str("creator", uid).Int("capacity", room.Capacity).Msg("Room created")

	if s.notifier != nil {
		report := s.notifier.Broadcast(ctx, notify.Event{
			Type:   models.NotificationRoomCreated,
			RoomID: room.ID,
			Title:  "New meetup",
			Body:   fmt.Sprintf("%s at %s", room.Title, room.Location),
			URL:    roomURL(room.ID),
		})
		s.logger.Debug().Str("roomId", room.ID).Int("sent", report.Sent).Int("failed", report.Failed).Msg("New room broadcast")
	}

	return &dto.CreateRoomResponse{ID: room.ID}, nil
}

func (s *roomServiceImpl) buildRoom(uid string, req *dto.CreateRoomRequest, now time.Time) (*models.Room, error) {
	title := strings.TrimSpace(req.Title)
	location := strings.TrimSpace(req.Location)
	if title == "" {
		return nil, apperrors.NewBadRequestError("title is required")
	}
	if location == "" {
		return nil, apperrors.NewBadRequestError("location is required")
	}

	startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
	if err != nil {
		return nil, apperrors.NewBadRequestError("startAt must be an RFC3339 timestamp")
	}
	startAt = startAt.UTC()
	if startAt.Before(now) {
		return nil, apperrors.NewBadRequestError("startAt must be in the future")
	}

	endAt := startAt.Add(s.settings.DefaultDuration)
	if strings.TrimSpace(req.EndAt) != "" {
		endAt, err = time.Parse(time.RFC3339, strings.TrimSpace(req.EndAt))
		if err != nil {
			return nil, apperrors.NewBadRequestError("endAt must be an RFC3339 timestamp")
		}
		endAt = endAt.UTC()
		if !endAt.After(startAt) {
			return nil, apperrors.NewBadRequestError("endAt must be after startAt")
		}
	}

	if req.Capacity < MinRoomCapacity || req.Capacity > MaxRoomCapacity {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("capacity must be between %d and %d", MinRoomCapacity, MaxRoomCapacity))
	}
	if req.MinCapacity < 0 || req.MinCapacity > req.Capacity {
		return nil, apperrors.NewBadRequestError("minCapacity must be between 0 and capacity")
	}

	return &models.Room{
		ID:            uuid.NewString(),
		Title:         title,
		Location:      location,
		Content:       strings.TrimSpace(req.Content),
		Type:          strings.TrimSpace(req.Type),
		ChatURL:       strings.TrimSpace(req.ChatURL),
		CreatorUID:    uid,
		StartAt:       startAt,
		EndAt:         endAt,
		RevealAt:      startAt.Add(-s.settings.RevealLead),
		JoinLockUntil: now.Add(s.settings.JoinLock),
		Capacity:      req.Capacity,
		MinCapacity:   req.MinCapacity,
		Participants:  []string{},
		VoteDoneUIDs:  []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// JoinRoom adds uid to the room. Joining twice succeeds without a second credit.
func (s *roomServiceImpl) JoinRoom(ctx context.Context, uid, roomID string) (*dto.MembershipResponse, error) {
	if _, _, err := s.lifecycle.EnsureFresh(ctx, roomID); err != nil {
		return nil, err
	}

	now := s.clock()
	resp := &dto.MembershipResponse{RoomID: roomID}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		resp.Changed = false

		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(err)
		}
		resp.ParticipantsCount = len(room.Participants)

		switch {
		case room.Closed:
			return apperrors.ErrRoomClosed
		case !now.Before(room.EndAt):
			return apperrors.ErrRoomEnded
		case room.HasParticipant(uid):
			return nil
		case room.IsFull():
			return apperrors.ErrRoomFull
		}

		room.AddParticipant(uid)
		room.UpdatedAt = now
		if err := tx.SaveRoom(ctx, room); err != nil {
			return err
		}
		if err := tx.ApplyScoreDelta(ctx, uid, joinRoomDelta()); err != nil {
			return err
		}

		resp.Changed = true
		resp.ParticipantsCount = len(room.Participants)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Changed {
		s.logger.Info().Str("roomId", roomID).Str("uid", uid).Int("count", resp.ParticipantsCount).Msg("Joined room")
		if s.notifier != nil {
			s.notifier.SubscribeRoom(ctx, uid, roomID)
		}
	}
	return resp, nil
}

// LeaveRoom removes uid from a room that has not started yet
func (s *roomServiceImpl) LeaveRoom(ctx context.Context, uid, roomID string) (*dto.MembershipResponse, error) {
	now := s.clock()
	resp := &dto.MembershipResponse{RoomID: roomID}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(err)
		}

		switch {
		case room.Closed:
			return apperrors.ErrRoomClosed
		case !now.Before(room.EndAt):
			return apperrors.ErrRoomEnded
		case !now.Before(room.StartAt):
			return apperrors.ErrRoomStarted
		case now.Before(room.JoinLockUntil):
			return apperrors.ErrRoomJoinLocked
		case !room.HasParticipant(uid):
			return apperrors.ErrNotParticipant
		}

		room.RemoveParticipant(uid)
		room.UpdatedAt = now
		if err := tx.SaveRoom(ctx, room); err != nil {
			return err
		}
		if err := tx.ApplyScoreDelta(ctx, uid, leaveRoomDelta()); err != nil {
			return err
		}

		resp.Changed = true
		resp.ParticipantsCount = len(room.Participants)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("roomId", roomID).Str("uid", uid).Int("count", resp.ParticipantsCount).Msg("Left room")
	if s.notifier != nil {
		s.notifier.UnsubscribeRoom(ctx, uid, roomID)
	}
	return resp, nil
}

// CloseRoom ends a room now. Before the start it is a cancellation; afterwards voting opens.
func (s *roomServiceImpl) CloseRoom(ctx context.Context, uid, roomID string, asAdmin bool) (*dto.RoomTransitionResponse, error) {
	if !asAdmin {
		owned, err := s.store.GetRoom(ctx, roomID)
		if err != nil {
			return nil, mapRoomLookupError(err)
		}
		if owned.CreatorUID != uid {
			return nil, apperrors.NewForbiddenError("only the creator can close this room")
		}
	}

	fresh, transition, err := s.lifecycle.EnsureFresh(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if transition != TransitionNone {
		return &dto.RoomTransitionResponse{
			Room:       dto.NewRoomResponse(fresh, s.lifecycle.Revealed(fresh)),
			Transition: string(transition),
		}, nil
	}

	now := s.clock()
	var room *models.Room

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		current, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(err)
		}
		if !asAdmin && current.CreatorUID != uid {
			return apperrors.NewForbiddenError("only the creator can close this room")
		}
		if current.Closed {
			return apperrors.ErrRoomClosed
		}

		transition = closeNow(current, now)
		room = current
		return tx.SaveRoom(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("roomId", roomID).Str("by", uid).Bool("admin", asAdmin).Str("transition", string(transition)).Msg("Room closed manually")
	s.announcer.announce(ctx, room, transition)

	return &dto.RoomTransitionResponse{
		Room:       dto.NewRoomResponse(room, !now.Before(room.RevealAt)),
		Transition: string(transition),
	}, nil
}

// closeNow closes an open room at now
func closeNow(room *models.Room, now time.Time) Transition {
	room.Closed = true
	room.ClosedAt = timePtr(now)
	room.VoteReminderSentAt = timePtr(now)
	room.UpdatedAt = now
	if now.Before(room.EndAt) {
		room.EndAt = now
	}

	if now.Before(room.StartAt) || len(room.Participants) == 0 {
		return TransitionCancelled
	}
	room.VotingOpen = true
	room.VotingOpenedAt = timePtr(now)
	return TransitionClosed
}

// ListRooms lists rooms by status
func (s *roomServiceImpl) ListRooms(ctx context.Context, status string, limit int) (*dto.RoomListResponse, error) {
	filter := repositories.RoomFilter{Limit: helpers.ClampLimit(limit)}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", string(repositories.RoomFilterOpen):
		filter.Status = repositories.RoomFilterOpen
	case string(repositories.RoomFilterClosed):
		filter.Status = repositories.RoomFilterClosed
	case string(repositories.RoomFilterAll):
		filter.Status = repositories.RoomFilterAll
	default:
		return nil, apperrors.NewBadRequestError("status must be one of: open, closed, all")
	}

	rooms, err := s.store.ListRooms(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	now := s.clock()
	resp := &dto.RoomListResponse{Rooms: make([]dto.RoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, dto.NewRoomResponse(room, !now.Before(room.RevealAt)))
	}
	resp.Count = len(resp.Rooms)
	return resp, nil
}

// GetRoom returns one room; participants are hidden until the reveal time
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*dto.RoomResponse, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	resp := dto.NewRoomResponse(room, !s.clock().Before(room.RevealAt))
	return &resp, nil
}
