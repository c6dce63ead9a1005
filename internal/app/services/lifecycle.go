package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/notify"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// Transition is the time driven state change applied to a room
type Transition string

const (
	TransitionNone      Transition = ""
	TransitionAborted   Transition = "ABORTED"
	TransitionClosed    Transition = "CLOSED"
	TransitionReminded  Transition = "REMINDED"
	TransitionCancelled Transition = "CANCELLED"
)

// Advance applies at most one time driven transition to room at now and reports which.
// Every branch is guarded by stored flags, so applying it again to its own result is a no-op.
// The sweep and the single room refresh both go through here.
func Advance(room *models.Room, now time.Time) Transition {
	if !room.Closed {
		if !now.Before(room.StartAt) && room.MinCapacity > 0 && len(room.Participants) < room.MinCapacity {
			room.Closed = true
			room.AbortedUnderMin = true
			room.VotingOpen = false
			room.AbortedAt = timePtr(now)
			room.ClosedAt = timePtr(now)
			room.EndAt = now
			room.UpdatedAt = now
			return TransitionAborted
		}

		if !now.Before(room.EndAt) {
			room.Closed = true
			room.ClosedAt = timePtr(now)
			if len(room.Participants) > 0 {
				room.VotingOpen = true
				room.VotingOpenedAt = timePtr(now)
			}
			room.VoteReminderSentAt = timePtr(now)
			room.UpdatedAt = now
			return TransitionClosed
		}
		return TransitionNone
	}

	if !room.AbortedUnderMin && room.VoteReminderSentAt == nil {
		room.VoteReminderSentAt = timePtr(now)
		room.UpdatedAt = now
		return TransitionReminded
	}
	return TransitionNone
}

// LifecycleService applies time driven transitions
type LifecycleService interface {
	// Sweep advances every room that may be due and purges rooms past retention
	Sweep(ctx context.Context) (*dto.SweepReport, error)
	// EnsureFresh advances a single room with the same rules as Sweep
	EnsureFresh(ctx context.Context, roomID string) (*models.Room, Transition, error)
	// Revealed reports whether the participant list of room may be shown now
	Revealed(room *models.Room) bool
}

// lifecycleServiceImpl implements LifecycleService
type lifecycleServiceImpl struct {
	store     repositories.Store
	announcer *announcer
	retention time.Duration
	purgeSize int
	clock     helpers.Clock
	logger    zerolog.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	store repositories.Store,
	notifier Notifier,
	retention time.Duration,
	clock helpers.Clock,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleServiceImpl{
		store:     store,
		announcer: &announcer{notifier: notifier, logger: logger},
		retention: retention,
		purgeSize: PurgeBatchSize,
		clock:     clock,
		logger:    logger,
	}
}

// EnsureFresh advances one room and announces the transition after commit
func (s *lifecycleServiceImpl) EnsureFresh(ctx context.Context, roomID string) (*models.Room, Transition, error) {
	room, transition, err := s.advanceRoom(ctx, roomID, s.clock())
	if err != nil {
		return nil, TransitionNone, err
	}
	s.announcer.announce(ctx, room, transition)
	return room, transition, nil
}

// Revealed implements LifecycleService
func (s *lifecycleServiceImpl) Revealed(room *models.Room) bool {
	return !s.clock().Before(room.RevealAt)
}

// Sweep scans candidate rooms one transaction per room. A failing room is counted and skipped.
func (s *lifecycleServiceImpl) Sweep(ctx context.Context) (*dto.SweepReport, error) {
	now := s.clock()
	report := &dto.SweepReport{}

	ids, err := s.store.ListSweepCandidates(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep candidates: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		room, transition, err := s.advanceRoom(ctx, id, now)
		if err != nil {
			if errors.Is(err, apperrors.ErrRoomNotFound) {
				continue
			}
			report.Failed++
			s.logger.Error().Err(err).Str("roomId", id).Msg("Sweep failed for room")
			continue
		}

		switch transition {
		case TransitionAborted:
			report.Aborted++
		case TransitionClosed:
			report.Closed++
		case TransitionReminded:
			report.Reminded++
		}
		s.announcer.announce(ctx, room, transition)
	}

	if s.retention > 0 {
		report.Purged = s.purge(ctx, now.Add(-s.retention))
	}

	s.logger.Info().
		Int("scanned", report.Scanned).
		Int("aborted", report.Aborted).
		Int("closed", report.Closed).
		Int("reminded", report.Reminded).
		Int("purged", report.Purged).
		Int("failed", report.Failed).
		Msg("Sweep finished")
	return report, nil
}

// purge deletes expired rooms in bounded batches until a short batch
func (s *lifecycleServiceImpl) purge(ctx context.Context, cutoff time.Time) int {
	total := 0
	for {
		n, err := s.store.PurgeClosedRooms(ctx, cutoff, s.purgeSize)
		total += n
		if err != nil {
			s.logger.Error().Err(err).Int("purged", total).Msg("Failed to purge closed rooms")
			return total
		}
		if n < s.purgeSize {
			return total
		}
	}
}

// advanceRoom runs Advance inside a transaction. The returned room is the committed state.
func (s *lifecycleServiceImpl) advanceRoom(ctx context.Context, roomID string, now time.Time) (*models.Room, Transition, error) {
	var (
		room       *models.Room
		transition Transition
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		current, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(err)
		}

		transition = Advance(current, now)
		room = current
		if transition == TransitionNone {
			return nil
		}
		return tx.SaveRoom(ctx, current)
	})
	if err != nil {
		return nil, TransitionNone, err
	}
	return room, transition, nil
}

// announcer turns committed transitions into notifications
type announcer struct {
	notifier Notifier
	logger   zerolog.Logger
}

func (a *announcer) announce(ctx context.Context, room *models.Room, transition Transition) {
	if a.notifier == nil || room == nil {
		return
	}

	var (
		recipients []string
		ev         notify.Event
	)
	switch transition {
	case TransitionAborted:
		recipients = room.Participants
		ev = notify.Event{
			Type:  models.NotificationRoomAborted,
			Title: "Meetup cancelled",
			Body:  fmt.Sprintf("%s was cancelled because not enough people joined.", room.Title),
		}
	case TransitionClosed:
		recipients = room.Participants
		ev = notify.Event{
			Type:  models.NotificationVoteRequest,
			Title: "How was the meetup?",
			Body:  fmt.Sprintf("%s has ended. Please vote within 24 hours.", room.Title),
		}
	case TransitionReminded:
		recipients = room.PendingVoters()
		ev = notify.Event{
			Type:  models.NotificationVoteReminder,
			Title: "Don't forget to vote",
			Body:  fmt.Sprintf("You have not voted for %s yet.", room.Title),
		}
	case TransitionCancelled:
		recipients = room.Participants
		ev = notify.Event{
			Type:  models.NotificationRoomClosed,
			Title: "Meetup closed",
			Body:  fmt.Sprintf("%s was closed by the organizer.", room.Title),
		}
	default:
		return
	}
	if len(recipients) == 0 {
		return
	}

	ev.RoomID = room.ID
	ev.URL = roomURL(room.ID)
	report := a.notifier.NotifyUsers(ctx, recipients, ev)
	a.logger.Debug().
		Str("roomId", room.ID).
		Str("transition", string(transition)).
		Int("stored", report.Stored).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("Transition announced")
}

func mapRoomLookupError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrRoomNotFound
	}
	return err
}
