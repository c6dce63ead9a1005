package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

// finishedRoom returns a room with alice, bob and carol whose end time has just passed
func finishedRoom(t *testing.T, env *testEnv) string {
	t.Helper()
	id := env.createRoom(t, "host", roomOpts{})
	env.join(t, id, "alice", "bob", "carol")
	env.clock.Advance(4*time.Hour + time.Minute)
	return id
}

func TestVoteFirstSubmissionWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := finishedRoom(t, env)

	first, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{
		RoomID:       id,
		ThumbsForUID: "bob",
		HeartForUID:  "carol",
		NoShowUID:    models.NoShowNone,
	})
	require.NoError(t, err)
	assert.True(t, first.Recorded)

	second, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{
		RoomID:       id,
		ThumbsForUID: "carol",
		HeartForUID:  "bob",
		NoShowUID:    "bob",
	})
	require.NoError(t, err)
	assert.False(t, second.Recorded)

	bob := env.score(t, "bob")
	assert.Equal(t, 6, bob.Total)
	assert.Equal(t, 1, bob.ThumbsCount)
	assert.Equal(t, 0, bob.HeartsCount)

	carol := env.score(t, "carol")
	assert.Equal(t, 6, carol.Total)
	assert.Equal(t, 1, carol.HeartsCount)

	reports, err := env.admin.ListNoShowReports(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, reports.Reports)

	room := env.room(t, id)
	assert.Equal(t, []string{"alice"}, room.VoteDoneUIDs)
}

func TestVoteTriggersLazyCloseAndVotingOpen(t *testing.T) {
	env := newTestEnv(t)
	id := finishedRoom(t, env)

	before := env.room(t, id)
	assert.False(t, before.Closed, "no sweep has run yet")

	_, err := env.votes.Vote(context.Background(), "alice", &dto.VoteRequest{RoomID: id})
	require.NoError(t, err)

	after := env.room(t, id)
	assert.True(t, after.Closed)
	assert.True(t, after.VotingOpen)
	assert.Len(t, env.notifier.eventsOfType(models.NotificationVoteRequest), 1)
}

func TestVoteIgnoresSelfAndOutsiders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := finishedRoom(t, env)

	resp, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{
		RoomID:       id,
		ThumbsForUID: "alice",
		HeartForUID:  "outsider",
		NoShowUID:    "alice",
	})
	require.NoError(t, err)
	assert.True(t, resp.Recorded)

	assert.Equal(t, 5, env.total(t, "alice"))
	assert.Equal(t, 0, env.total(t, "outsider"))

	reports, err := env.admin.ListNoShowReports(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, reports.Reports)
}

func TestVoteRecordsNoShowAccusations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := finishedRoom(t, env)

	for _, voter := range []string{"alice", "bob"} {
		_, err := env.votes.Vote(ctx, voter, &dto.VoteRequest{RoomID: id, NoShowUID: "carol"})
		require.NoError(t, err)
	}

	reports, err := env.admin.ListNoShowReports(ctx, id)
	require.NoError(t, err)
	assert.Len(t, reports.Reports, 2)
	assert.Equal(t, map[string]int{"carol": 2}, reports.Tally)
	assert.Equal(t, 5, env.total(t, "carol"), "accusations alone do not change scores")
}

func TestFinalVoteCompletesRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := finishedRoom(t, env)

	for _, voter := range []string{"alice", "bob"} {
		resp, err := env.votes.Vote(ctx, voter, &dto.VoteRequest{RoomID: id})
		require.NoError(t, err)
		assert.True(t, resp.Recorded)
	}
	mid := env.room(t, id)
	assert.True(t, mid.VotingOpen)
	assert.Nil(t, mid.VoteCompletedAt)

	resp, err := env.votes.Vote(ctx, "carol", &dto.VoteRequest{RoomID: id})
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.True(t, resp.RoomClosed)

	room := env.room(t, id)
	assert.True(t, room.Closed)
	assert.False(t, room.VotingOpen)
	require.NotNil(t, room.VoteCompletedAt)
	assert.True(t, room.AllVoted())
}

func TestVoteRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("non participant", func(t *testing.T) {
		env := newTestEnv(t)
		id := finishedRoom(t, env)
		_, err := env.votes.Vote(ctx, "outsider", &dto.VoteRequest{RoomID: id})
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})

	t.Run("before the end", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createRoom(t, "host", roomOpts{})
		env.join(t, id, "alice")
		env.clock.Advance(3 * time.Hour)
		_, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{RoomID: id})
		assert.ErrorIs(t, err, apperrors.ErrVoteWindow)
	})

	t.Run("after the window", func(t *testing.T) {
		env := newTestEnv(t)
		id := finishedRoom(t, env)
		env.clock.Advance(24 * time.Hour)
		_, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{RoomID: id})
		assert.ErrorIs(t, err, apperrors.ErrVoteWindow)
	})

	t.Run("cancelled before the start", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createRoom(t, "host", roomOpts{})
		env.join(t, id, "alice", "bob")
		resp, err := env.rooms.CloseRoom(ctx, "host", id, false)
		require.NoError(t, err)
		require.Equal(t, string(TransitionCancelled), resp.Transition)

		before := env.total(t, "bob")
		env.clock.Advance(time.Minute)
		_, err = env.votes.Vote(ctx, "alice", &dto.VoteRequest{
			RoomID:       id,
			ThumbsForUID: "bob",
			HeartForUID:  "bob",
			NoShowUID:    models.NoShowNone,
		})
		assert.ErrorIs(t, err, apperrors.ErrVoteWindow)
		assert.Equal(t, before, env.total(t, "bob"))
	})

	t.Run("aborted room", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createRoom(t, "host", roomOpts{minCapacity: 3})
		env.join(t, id, "alice")
		env.clock.Advance(5 * time.Hour)
		_, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{RoomID: id})
		assert.ErrorIs(t, err, apperrors.ErrRoomAborted)
	})

	t.Run("unknown room", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.votes.Vote(ctx, "alice", &dto.VoteRequest{RoomID: "missing"})
		assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	})
}
