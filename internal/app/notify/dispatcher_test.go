package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/repositories/memstore"
	"github.com/yigit/moim/internal/pkg/helpers"
	"github.com/yigit/moim/internal/pkg/push"
)

type fakeSender struct {
	mu         sync.Mutex
	batches    [][]string
	dead       map[string]bool
	failBatch  int
	subscribed map[string][]string
}

func newFakeSender(dead ...string) *fakeSender {
	s := &fakeSender{dead: map[string]bool{}, failBatch: -1, subscribed: map[string][]string{}}
	for _, d := range dead {
		s.dead[d] = true
	}
	return s
}

func (s *fakeSender) SendMulticast(ctx context.Context, tokens []string, msg push.Message) ([]push.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.batches)
	s.batches = append(s.batches, append([]string{}, tokens...))
	if idx == s.failBatch {
		return nil, errors.New("transport unavailable")
	}
	return s.results(tokens), nil
}

func (s *fakeSender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) ([]push.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[topic] = append(s.subscribed[topic], tokens...)
	return s.results(tokens), nil
}

func (s *fakeSender) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) ([]push.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribed, topic)
	return s.results(tokens), nil
}

func (s *fakeSender) results(tokens []string) []push.Result {
	out := make([]push.Result, len(tokens))
	for i, tok := range tokens {
		out[i] = push.Result{Token: tok}
		if s.dead[tok] {
			out[i].Err = errors.New("not registered")
			out[i].Unregistered = true
		}
	}
	return out
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, sender *fakeSender, batchSize int) (*Dispatcher, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	d := NewDispatcher(Config{
		Inbox:     store,
		Tokens:    store,
		Sender:    sender,
		Cleaner:   NewInlineCleaner(store, zerolog.Nop()),
		BatchSize: batchSize,
		Clock:     helpers.FixedClock(now),
		Logger:    zerolog.Nop(),
	})
	return d, store
}

func addToken(t *testing.T, store *memstore.Store, uid, token string) {
	t.Helper()
	require.NoError(t, store.SavePushToken(context.Background(), &models.PushToken{UID: uid, Token: token, CreatedAt: now}))
}

func TestNotifyUsersStoresAndPushes(t *testing.T) {
	ctx := context.Background()
	sender := newFakeSender("dead-token")
	d, store := setup(t, sender, 500)

	addToken(t, store, "alice", "alice-phone")
	addToken(t, store, "bob", "dead-token")

	ev := Event{Type: models.NotificationVoteRequest, RoomID: "r1", Title: "Vote", Body: "Please vote", URL: "/rooms/r1"}
	report := d.NotifyUsers(ctx, []string{"alice", "bob"}, ev)

	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Cleaned)

	remaining, err := store.ListPushTokens(ctx, []string{"bob"})
	require.NoError(t, err)
	assert.Empty(t, remaining, "dead token must be forgotten")

	inbox, err := store.ListNotifications(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.True(t, inbox[0].Unread)
	assert.Equal(t, "/rooms/r1", inbox[0].URL)
}

func TestNotifyUsersIsIdempotentPerEvent(t *testing.T) {
	ctx := context.Background()
	d, store := setup(t, newFakeSender(), 500)

	ev := Event{Type: models.NotificationRoomAborted, RoomID: "r1", Title: "Cancelled"}
	first := d.NotifyUsers(ctx, []string{"alice"}, ev)
	second := d.NotifyUsers(ctx, []string{"alice"}, ev)

	assert.Equal(t, 1, first.Stored)
	assert.Equal(t, 0, second.Stored)

	inbox, err := store.ListNotifications(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestBroadcastBatchesAndSurvivesFailedBatch(t *testing.T) {
	ctx := context.Background()
	sender := newFakeSender()
	sender.failBatch = 0
	d, store := setup(t, sender, 2)

	for i := 0; i < 5; i++ {
		addToken(t, store, fmt.Sprintf("user-%d", i), fmt.Sprintf("token-%d", i))
	}

	report := d.Broadcast(ctx, Event{Type: models.NotificationRoomCreated, RoomID: "r9", Title: "New room"})

	require.Len(t, sender.batches, 3)
	for _, b := range sender.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 3, report.Sent)
}

func TestSubscribeAndUnsubscribeRoom(t *testing.T) {
	ctx := context.Background()
	sender := newFakeSender()
	d, store := setup(t, sender, 500)
	addToken(t, store, "alice", "a1")
	addToken(t, store, "alice", "a2")

	d.SubscribeRoom(ctx, "alice", "r1")
	assert.ElementsMatch(t, []string{"a1", "a2"}, sender.subscribed[RoomTopic("r1")])

	d.UnsubscribeRoom(ctx, "alice", "r1")
	assert.Empty(t, sender.subscribed[RoomTopic("r1")])
}

func TestDedupeKey(t *testing.T) {
	ev := Event{Type: models.NotificationVoteReminder, RoomID: "abc"}
	assert.Equal(t, "VOTE_REMINDER:abc", ev.DedupeKey())
}
