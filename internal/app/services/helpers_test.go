package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/auth"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/notify"
	"github.com/yigit/moim/internal/app/repositories/memstore"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentEvent struct {
	UIDs  []string
	Event notify.Event
}

type recordingNotifier struct {
	mu           sync.Mutex
	sent         []sentEvent
	broadcasts   []notify.Event
	subscribed   []string
	unsubscribed []string
}

func (n *recordingNotifier) NotifyUsers(ctx context.Context, uids []string, ev notify.Event) notify.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{UIDs: append([]string{}, uids...), Event: ev})
	return notify.Report{Stored: len(uids)}
}

func (n *recordingNotifier) Broadcast(ctx context.Context, ev notify.Event) notify.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, ev)
	return notify.Report{}
}

func (n *recordingNotifier) SubscribeRoom(ctx context.Context, uid, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribed = append(n.subscribed, uid+"@"+roomID)
}

func (n *recordingNotifier) UnsubscribeRoom(ctx context.Context, uid, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unsubscribed = append(n.unsubscribed, uid+"@"+roomID)
}

func (n *recordingNotifier) eventsOfType(t models.NotificationType) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.sent {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store     *memstore.Store
	clock     *testClock
	notifier  *recordingNotifier
	settings  RoomSettings
	lifecycle LifecycleService
	rooms     RoomService
	votes     VoteService
	admin     AdminService
	profiles  ProfileService
	feedback  FeedbackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    memstore.New(),
		clock:    &testClock{now: baseTime},
		notifier: &recordingNotifier{},
		settings: DefaultRoomSettings(),
	}
	log := zerolog.Nop()

	env.lifecycle = NewLifecycleService(env.store, env.notifier, 30*24*time.Hour, env.clock.Now, log)
	env.rooms = NewRoomService(env.store, env.lifecycle, env.notifier, env.settings, env.clock.Now, log)
	env.votes = NewVoteService(env.store, env.lifecycle, env.settings, env.clock.Now, log)
	env.admin = NewAdminService(env.store, env.clock.Now, log)
	env.profiles = NewProfileService(env.store, auth.NewRegistryAuthorizer(env.store), env.clock.Now, log)
	env.feedback = NewFeedbackService(env.store, env.clock.Now, log)
	return env
}

type roomOpts struct {
	capacity    int
	minCapacity int
	startIn     time.Duration
	duration    time.Duration
}

// createRoom creates a room owned by creator starting startIn from now
func (e *testEnv) createRoom(t *testing.T, creator string, opts roomOpts) string {
	t.Helper()
	if opts.capacity == 0 {
		opts.capacity = 4
	}
	if opts.startIn == 0 {
		opts.startIn = 2 * time.Hour
	}

	start := e.clock.Now().Add(opts.startIn)
	req := &dto.CreateRoomRequest{
		Title:       "Board games",
		Location:    "Library",
		StartAt:     start.Format(time.RFC3339),
		Capacity:    opts.capacity,
		MinCapacity: opts.minCapacity,
	}
	if opts.duration > 0 {
		req.EndAt = start.Add(opts.duration).Format(time.RFC3339)
	}

	resp, err := e.rooms.CreateRoom(context.Background(), creator, req)
	require.NoError(t, err)
	return resp.ID
}

func (e *testEnv) join(t *testing.T, roomID string, uids ...string) {
	t.Helper()
	for _, uid := range uids {
		_, err := e.rooms.JoinRoom(context.Background(), uid, roomID)
		require.NoError(t, err)
	}
}

func (e *testEnv) room(t *testing.T, roomID string) *models.Room {
	t.Helper()
	room, err := e.store.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return room
}

func (e *testEnv) total(t *testing.T, uid string) int {
	t.Helper()
	score, err := e.store.GetScore(context.Background(), uid)
	if err != nil {
		return 0
	}
	return score.Total
}

func (e *testEnv) score(t *testing.T, uid string) *models.Score {
	t.Helper()
	score, err := e.store.GetScore(context.Background(), uid)
	require.NoError(t, err)
	return score
}
