package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/repositories"
)

func openRoom(participants ...string) *models.Room {
	start := baseTime.Add(time.Hour)
	return &models.Room{
		ID:                "r1",
		StartAt:           start,
		EndAt:             start.Add(2 * time.Hour),
		Capacity:          10,
		Participants:      participants,
		ParticipantsCount: len(participants),
	}
}

func TestAdvance(t *testing.T) {
	start := baseTime.Add(time.Hour)
	end := start.Add(2 * time.Hour)

	tests := []struct {
		name   string
		room   func() *models.Room
		now    time.Time
		want   Transition
		verify func(t *testing.T, r *models.Room)
	}{
		{
			name: "before start nothing happens",
			room: func() *models.Room { r := openRoom("a"); r.MinCapacity = 3; return r },
			now:  start.Add(-time.Minute),
			want: TransitionNone,
		},
		{
			name: "under minimum at start aborts",
			room: func() *models.Room { r := openRoom("a", "b"); r.MinCapacity = 3; return r },
			now:  start,
			want: TransitionAborted,
			verify: func(t *testing.T, r *models.Room) {
				assert.True(t, r.Closed)
				assert.True(t, r.AbortedUnderMin)
				assert.False(t, r.VotingOpen)
				assert.Equal(t, start, r.EndAt)
				require.NotNil(t, r.AbortedAt)
				require.NotNil(t, r.ClosedAt)
			},
		},
		{
			name: "minimum reached keeps the room open",
			room: func() *models.Room { r := openRoom("a", "b", "c"); r.MinCapacity = 3; return r },
			now:  start.Add(time.Minute),
			want: TransitionNone,
		},
		{
			name: "abort takes precedence over natural close",
			room: func() *models.Room { r := openRoom("a"); r.MinCapacity = 2; return r },
			now:  end.Add(time.Hour),
			want: TransitionAborted,
		},
		{
			name: "end time closes and opens voting",
			room: func() *models.Room { return openRoom("a", "b") },
			now:  end,
			want: TransitionClosed,
			verify: func(t *testing.T, r *models.Room) {
				assert.True(t, r.Closed)
				assert.False(t, r.AbortedUnderMin)
				assert.True(t, r.VotingOpen)
				require.NotNil(t, r.VotingOpenedAt)
				require.NotNil(t, r.VoteReminderSentAt)
			},
		},
		{
			name: "empty room closes without voting",
			room: func() *models.Room { return openRoom() },
			now:  end,
			want: TransitionClosed,
			verify: func(t *testing.T, r *models.Room) {
				assert.True(t, r.Closed)
				assert.False(t, r.VotingOpen)
			},
		},
		{
			name: "closed room without reminder gets the backstop",
			room: func() *models.Room {
				r := openRoom("a", "b")
				r.Closed = true
				closedAt := end
				r.ClosedAt = &closedAt
				return r
			},
			now:  end.Add(time.Hour),
			want: TransitionReminded,
		},
		{
			name: "aborted room never gets a reminder",
			room: func() *models.Room {
				r := openRoom("a")
				r.Closed = true
				r.AbortedUnderMin = true
				return r
			},
			now:  end.Add(time.Hour),
			want: TransitionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := tt.room()
			got := Advance(room, tt.now)
			assert.Equal(t, tt.want, got)
			if tt.verify != nil {
				tt.verify(t, room)
			}
			assert.Equal(t, TransitionNone, Advance(room, tt.now), "second application must be a no-op")
		})
	}
}

func TestSweepAbortsUnderMinimumExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "host", roomOpts{capacity: 6, minCapacity: 3})
	env.join(t, roomID, "alice", "bob")

	env.clock.Advance(2*time.Hour + time.Minute)

	first, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Aborted)

	room := env.room(t, roomID)
	assert.True(t, room.Closed)
	assert.True(t, room.AbortedUnderMin)
	assert.Equal(t, len(room.Participants), room.ParticipantsCount)

	second, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Aborted)
	assert.Equal(t, 0, second.Closed)
	assert.Equal(t, 0, second.Reminded)

	aborted := env.notifier.eventsOfType(models.NotificationRoomAborted)
	require.Len(t, aborted, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, aborted[0].UIDs)
}

func TestSweepClosesAndRequestsVotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "host", roomOpts{})
	env.join(t, roomID, "alice", "bob")

	env.clock.Advance(4*time.Hour + time.Minute)

	report, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Closed)

	room := env.room(t, roomID)
	assert.True(t, room.Closed)
	assert.True(t, room.VotingOpen)

	requests := env.notifier.eventsOfType(models.NotificationVoteRequest)
	require.Len(t, requests, 1)
	assert.Equal(t, roomID, requests[0].Event.RoomID)

	again, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Scanned)
}

func TestEnsureFreshAgreesWithSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	swept := env.createRoom(t, "host", roomOpts{capacity: 5, minCapacity: 2})
	ensured := env.createRoom(t, "host", roomOpts{capacity: 5, minCapacity: 2})
	env.join(t, swept, "alice")
	env.join(t, ensured, "alice")

	env.clock.Advance(3 * time.Hour)

	_, transition, err := env.lifecycle.EnsureFresh(ctx, ensured)
	require.NoError(t, err)
	assert.Equal(t, TransitionAborted, transition)

	_, err = env.lifecycle.Sweep(ctx)
	require.NoError(t, err)

	a, b := env.room(t, swept), env.room(t, ensured)
	assert.Equal(t, a.Closed, b.Closed)
	assert.Equal(t, a.AbortedUnderMin, b.AbortedUnderMin)
	assert.Equal(t, a.VotingOpen, b.VotingOpen)
	assert.Equal(t, a.EndAt, b.EndAt)

	_, transition, err = env.lifecycle.EnsureFresh(ctx, ensured)
	require.NoError(t, err)
	assert.Equal(t, TransitionNone, transition)
}

func TestSweepRemindsPendingVotersAfterVoteCompletedClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "host", roomOpts{})
	env.join(t, roomID, "alice", "bob")

	// Close manually without a reminder marker to exercise the backstop.
	require.NoError(t, env.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		room.Closed = true
		closedAt := env.clock.Now()
		room.ClosedAt = &closedAt
		room.VoteDoneUIDs = []string{"alice"}
		return tx.SaveRoom(ctx, room)
	}))

	report, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminded)

	reminders := env.notifier.eventsOfType(models.NotificationVoteReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, []string{"bob"}, reminders[0].UIDs)

	report, err = env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reminded)
}

func TestSweepPurgesRoomsPastRetention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "host", roomOpts{})
	env.clock.Advance(5 * time.Hour)
	_, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)

	env.clock.Advance(31 * 24 * time.Hour)
	report, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)

	_, err = env.rooms.GetRoom(ctx, roomID)
	assert.Error(t, err)
}

func TestSweepPurgesInBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.lifecycle.(*lifecycleServiceImpl).purgeSize = 2

	var ids []string
	for _, host := range []string{"h1", "h2", "h3", "h4", "h5"} {
		ids = append(ids, env.createRoom(t, host, roomOpts{}))
	}
	env.clock.Advance(5 * time.Hour)
	_, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)

	env.clock.Advance(31 * 24 * time.Hour)
	report, err := env.lifecycle.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Purged)

	for _, id := range ids {
		_, err := env.rooms.GetRoom(ctx, id)
		assert.Error(t, err)
	}
}
