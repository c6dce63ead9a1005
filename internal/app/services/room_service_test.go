package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

func TestCreateRoomCreditsCreator(t *testing.T) {
	env := newTestEnv(t)

	env.createRoom(t, "small-host", roomOpts{capacity: 4})
	env.createRoom(t, "big-host", roomOpts{capacity: 8})

	small := env.score(t, "small-host")
	assert.Equal(t, 30, small.Total)
	assert.Equal(t, 1, small.CreatedRooms)

	big := env.score(t, "big-host")
	assert.Equal(t, 40, big.Total)
	assert.Equal(t, 1, big.CreatedRooms)

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	require.Len(t, env.notifier.broadcasts, 2)
	assert.Equal(t, models.NotificationRoomCreated, env.notifier.broadcasts[0].Type)
}

func TestCreateRoomDerivesTimes(t *testing.T) {
	env := newTestEnv(t)

	id := env.createRoom(t, "host", roomOpts{startIn: 3 * time.Hour})
	room := env.room(t, id)

	assert.Equal(t, room.StartAt.Add(2*time.Hour), room.EndAt)
	assert.Equal(t, room.StartAt.Add(-time.Hour), room.RevealAt)
	assert.Equal(t, baseTime.Add(10*time.Minute), room.JoinLockUntil)
	assert.Empty(t, room.Participants, "the creator is not a participant")
	assert.Equal(t, int64(1), room.Version)
}

func TestCreateRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	start := baseTime.Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		req  dto.CreateRoomRequest
	}{
		{"start in the past", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: baseTime.Add(-time.Minute).Format(time.RFC3339), Capacity: 4}},
		{"bad timestamp", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: "tomorrow", Capacity: 4}},
		{"capacity too small", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: start, Capacity: 1}},
		{"capacity too large", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: start, Capacity: 101}},
		{"minimum above capacity", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: start, Capacity: 4, MinCapacity: 5}},
		{"end before start", dto.CreateRoomRequest{Title: "t", Location: "l", StartAt: start, EndAt: baseTime.Format(time.RFC3339), Capacity: 4}},
		{"blank title", dto.CreateRoomRequest{Title: "  ", Location: "l", StartAt: start, Capacity: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := env.rooms.CreateRoom(context.Background(), "host", &req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}

	count, err := env.store.CountScores(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createRoom(t, "host", roomOpts{})

	first, err := env.rooms.JoinRoom(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, 1, first.ParticipantsCount)

	second, err := env.rooms.JoinRoom(ctx, "alice", id)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, second.ParticipantsCount)

	score := env.score(t, "alice")
	assert.Equal(t, 5, score.Total)
	assert.Equal(t, 1, score.JoinedRooms)

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	assert.Equal(t, []string{"alice@" + id}, env.notifier.subscribed)
}

func TestJoinRoomRejectsWhenFull(t *testing.T) {
	env := newTestEnv(t)
	id := env.createRoom(t, "host", roomOpts{capacity: 2})
	env.join(t, id, "alice", "bob")

	_, err := env.rooms.JoinRoom(context.Background(), "carol", id)
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	room := env.room(t, id)
	assert.Equal(t, 2, room.ParticipantsCount)
	assert.Equal(t, 0, env.total(t, "carol"))
}

func TestJoinRoomConcurrentNeverExceedsCapacity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createRoom(t, "host", roomOpts{capacity: 5})

	const joiners = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		joined  int
		full    int
		unknown []error
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			resp, err := env.rooms.JoinRoom(context.Background(), uid, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && resp.Changed:
				joined++
			case errors.Is(err, apperrors.ErrRoomFull):
				full++
			default:
				unknown = append(unknown, err)
			}
		}(fmt.Sprintf("user-%02d", i))
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 5, joined)
	assert.Equal(t, joiners-5, full)

	room := env.room(t, id)
	assert.Len(t, room.Participants, 5)
	assert.Equal(t, 5, room.ParticipantsCount)
}

func TestJoinRoomAfterEndOrClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.createRoom(t, "host", roomOpts{})
	env.join(t, id, "alice")
	env.clock.Advance(5 * time.Hour)

	// The lazy refresh closes the room before the join is evaluated.
	_, err := env.rooms.JoinRoom(ctx, "bob", id)
	assert.ErrorIs(t, err, apperrors.ErrRoomClosed)
	assert.True(t, env.room(t, id).Closed)

	_, err = env.rooms.JoinRoom(ctx, "bob", "missing")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestLeaveRoomRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createRoom(t, "host", roomOpts{startIn: 2 * time.Hour})
	env.join(t, id, "alice", "bob")

	_, err := env.rooms.LeaveRoom(ctx, "alice", id)
	assert.ErrorIs(t, err, apperrors.ErrRoomJoinLocked)

	env.clock.Advance(11 * time.Minute)

	_, err = env.rooms.LeaveRoom(ctx, "carol", id)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	resp, err := env.rooms.LeaveRoom(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, 1, resp.ParticipantsCount)

	alice := env.score(t, "alice")
	assert.Equal(t, 0, alice.Total)
	assert.Equal(t, 0, alice.JoinedRooms)

	env.clock.Set(env.room(t, id).StartAt)
	_, err = env.rooms.LeaveRoom(ctx, "bob", id)
	assert.ErrorIs(t, err, apperrors.ErrRoomStarted)
	assert.Equal(t, 5, env.total(t, "bob"))
}

func TestCloseRoomByCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.createRoom(t, "host", roomOpts{})
	env.join(t, id, "alice")

	_, err := env.rooms.CloseRoom(ctx, "alice", id, false)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	resp, err := env.rooms.CloseRoom(ctx, "host", id, false)
	require.NoError(t, err)
	assert.Equal(t, string(TransitionCancelled), resp.Transition)
	assert.True(t, resp.Room.Closed)
	assert.False(t, resp.Room.VotingOpen)
	assert.False(t, resp.Room.ParticipantsVisible)
	assert.Empty(t, resp.Room.Participants)

	closed := env.notifier.eventsOfType(models.NotificationRoomClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, []string{"alice"}, closed[0].UIDs)

	_, err = env.rooms.CloseRoom(ctx, "host", id, false)
	assert.ErrorIs(t, err, apperrors.ErrRoomClosed)
}

func TestCloseRoomAfterStartOpensVoting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.createRoom(t, "host", roomOpts{})
	env.join(t, id, "alice", "bob")
	env.clock.Advance(3 * time.Hour)

	resp, err := env.rooms.CloseRoom(ctx, "admin", id, true)
	require.NoError(t, err)
	assert.Equal(t, string(TransitionClosed), resp.Transition)
	assert.True(t, resp.Room.VotingOpen)

	room := env.room(t, id)
	assert.Equal(t, env.clock.Now(), room.EndAt)
	require.NotNil(t, room.VoteReminderSentAt)
	assert.Len(t, env.notifier.eventsOfType(models.NotificationVoteRequest), 1)
}

func TestCloseRoomChecksCreatorBeforeRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.createRoom(t, "host", roomOpts{})
	env.join(t, id, "alice")
	env.clock.Advance(4*time.Hour + time.Minute)

	_, err := env.rooms.CloseRoom(ctx, "mallory", id, false)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.False(t, env.room(t, id).Closed)

	_, err = env.rooms.CloseRoom(ctx, "mallory", "missing", false)
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)

	resp, err := env.rooms.CloseRoom(ctx, "host", id, false)
	require.NoError(t, err)
	assert.Equal(t, string(TransitionClosed), resp.Transition)
	assert.True(t, resp.Room.ParticipantsVisible)
}

func TestGetRoomHidesParticipantsBeforeReveal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.createRoom(t, "host", roomOpts{startIn: 3 * time.Hour})
	env.join(t, id, "alice")

	hidden, err := env.rooms.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.False(t, hidden.ParticipantsVisible)
	assert.Empty(t, hidden.Participants)
	assert.Equal(t, 1, hidden.ParticipantsCount)

	env.clock.Advance(2 * time.Hour)
	shown, err := env.rooms.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.True(t, shown.ParticipantsVisible)
	assert.Equal(t, []string{"alice"}, shown.Participants)
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	later := env.createRoom(t, "host", roomOpts{startIn: 5 * time.Hour})
	sooner := env.createRoom(t, "host", roomOpts{startIn: 2 * time.Hour})
	_, err := env.rooms.CloseRoom(ctx, "host", later, false)
	require.NoError(t, err)

	open, err := env.rooms.ListRooms(ctx, "", 10)
	require.NoError(t, err)
	require.Equal(t, 1, open.Count)
	assert.Equal(t, sooner, open.Rooms[0].ID)

	all, err := env.rooms.ListRooms(ctx, "all", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	_, err = env.rooms.ListRooms(ctx, "pending", 10)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
