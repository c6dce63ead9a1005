// Package notify fans lifecycle events out to the in-app inbox and to push endpoints.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/pkg/helpers"
	"github.com/yigit/moim/internal/pkg/push"
)

// Inbox stores in-app notifications
type Inbox interface {
	InsertNotifications(ctx context.Context, items []*models.Notification) (int, error)
}

// TokenSource resolves push endpoints
type TokenSource interface {
	ListPushTokens(ctx context.Context, uids []string) ([]*models.PushToken, error)
	ListAllPushTokens(ctx context.Context) ([]*models.PushToken, error)
}

// TokenCleaner forgets tokens the push transport reported as dead
type TokenCleaner interface {
	CleanupTokens(ctx context.Context, tokens []*models.PushToken) error
}

// Event is one lifecycle event addressed to users
type Event struct {
	Type   models.NotificationType
	RoomID string
	Title  string
	Body   string
	URL    string
}

// DedupeKey identifies the event per user, so the same transition never lands twice in an inbox
func (e Event) DedupeKey() string {
	return fmt.Sprintf("%s:%s", e.Type, e.RoomID)
}

// Report summarizes a fan-out
type Report struct {
	Stored  int `json:"stored"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Cleaned int `json:"cleaned"`
}

// Dispatcher is the single place that batches push sends and cleans up dead tokens
type Dispatcher struct {
	inbox     Inbox
	tokens    TokenSource
	sender    push.Sender
	cleaner   TokenCleaner
	batchSize int
	clock     helpers.Clock
	log       zerolog.Logger
}

// Config holds the dispatcher dependencies
type Config struct {
	Inbox     Inbox
	Tokens    TokenSource
	Sender    push.Sender
	Cleaner   TokenCleaner
	BatchSize int
	Clock     helpers.Clock
	Logger    zerolog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 || cfg.BatchSize > push.MaxBatchSize {
		cfg.BatchSize = push.MaxBatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = helpers.SystemClock
	}
	return &Dispatcher{
		inbox:     cfg.Inbox,
		tokens:    cfg.Tokens,
		sender:    cfg.Sender,
		cleaner:   cfg.Cleaner,
		batchSize: cfg.BatchSize,
		clock:     cfg.Clock,
		log:       cfg.Logger,
	}
}

// RoomTopic is the push topic of a room
func RoomTopic(roomID string) string {
	return "room-" + roomID
}

// NotifyUsers writes an in-app notification for every uid and pushes to their endpoints.
// Failures are logged and reflected in the report, never returned.
func (d *Dispatcher) NotifyUsers(ctx context.Context, uids []string, ev Event) Report {
	var report Report
	if len(uids) == 0 {
		return report
	}

	now := d.clock()
	items := make([]*models.Notification, 0, len(uids))
	for _, uid := range uids {
		items = append(items, &models.Notification{
			UID:       uid,
			Type:      ev.Type,
			Title:     ev.Title,
			Body:      ev.Body,
			URL:       ev.URL,
			DedupeKey: ev.DedupeKey(),
			Unread:    true,
			CreatedAt: now,
		})
	}

	stored, err := d.inbox.InsertNotifications(ctx, items)
	if err != nil {
		d.log.Error().Err(err).Str("roomId", ev.RoomID).Str("type", string(ev.Type)).Msg("Failed to store notifications")
	}
	report.Stored = stored

	tokens, err := d.tokens.ListPushTokens(ctx, uids)
	if err != nil {
		d.log.Error().Err(err).Str("roomId", ev.RoomID).Msg("Failed to load push tokens")
		return report
	}

	d.send(ctx, tokens, ev, &report)
	return report
}

// Broadcast pushes ev to every registered endpoint without writing inbox rows
func (d *Dispatcher) Broadcast(ctx context.Context, ev Event) Report {
	var report Report

	tokens, err := d.tokens.ListAllPushTokens(ctx)
	if err != nil {
		d.log.Error().Err(err).Str("roomId", ev.RoomID).Msg("Failed to load push tokens for broadcast")
		return report
	}

	d.send(ctx, tokens, ev, &report)
	return report
}

// SubscribeRoom subscribes every endpoint of uid to the room topic
func (d *Dispatcher) SubscribeRoom(ctx context.Context, uid, roomID string) {
	d.manageTopic(ctx, uid, roomID, d.sender.SubscribeToTopic)
}

// UnsubscribeRoom removes every endpoint of uid from the room topic
func (d *Dispatcher) UnsubscribeRoom(ctx context.Context, uid, roomID string) {
	d.manageTopic(ctx, uid, roomID, d.sender.UnsubscribeFromTopic)
}

type topicFn func(ctx context.Context, tokens []string, topic string) ([]push.Result, error)

func (d *Dispatcher) manageTopic(ctx context.Context, uid, roomID string, fn topicFn) {
	owned, err := d.tokens.ListPushTokens(ctx, []string{uid})
	if err != nil {
		d.log.Error().Err(err).Str("uid", uid).Msg("Failed to load push tokens")
		return
	}
	if len(owned) == 0 {
		return
	}

	byToken := indexTokens(owned)
	var dead []*models.PushToken
	for _, batch := range push.Chunk(tokenValues(owned), d.batchSize) {
		results, err := fn(ctx, batch, RoomTopic(roomID))
		if err != nil {
			d.log.Warn().Err(err).Str("uid", uid).Str("roomId", roomID).Msg("Topic management failed")
			continue
		}
		dead = append(dead, collectDead(results, byToken)...)
	}
	d.cleanup(ctx, dead)
}

func (d *Dispatcher) send(ctx context.Context, tokens []*models.PushToken, ev Event, report *Report) {
	if len(tokens) == 0 {
		return
	}

	msg := push.Message{
		Title: ev.Title,
		Body:  ev.Body,
		URL:   ev.URL,
		Data: map[string]string{
			"type":   string(ev.Type),
			"roomId": ev.RoomID,
		},
	}

	byToken := indexTokens(tokens)
	var dead []*models.PushToken
	for _, batch := range push.Chunk(tokenValues(tokens), d.batchSize) {
		results, err := d.sender.SendMulticast(ctx, batch, msg)
		if err != nil {
			report.Failed += len(batch)
			d.log.Warn().Err(err).Int("batch", len(batch)).Str("roomId", ev.RoomID).Msg("Push batch failed")
			continue
		}
		for _, r := range results {
			if r.Err != nil {
				report.Failed++
			} else {
				report.Sent++
			}
		}
		dead = append(dead, collectDead(results, byToken)...)
	}

	report.Cleaned = d.cleanup(ctx, dead)
}

func (d *Dispatcher) cleanup(ctx context.Context, dead []*models.PushToken) int {
	if len(dead) == 0 || d.cleaner == nil {
		return 0
	}
	if err := d.cleaner.CleanupTokens(ctx, dead); err != nil {
		d.log.Warn().Err(err).Int("tokens", len(dead)).Msg("Failed to schedule push token cleanup")
		return 0
	}
	return len(dead)
}

// indexTokens maps a token to its owners. The same device token may be registered by several users.
func indexTokens(tokens []*models.PushToken) map[string][]*models.PushToken {
	index := make(map[string][]*models.PushToken, len(tokens))
	for _, t := range tokens {
		index[t.Token] = append(index[t.Token], t)
	}
	return index
}

func tokenValues(tokens []*models.PushToken) []string {
	seen := make(map[string]bool, len(tokens))
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t.Token] {
			continue
		}
		seen[t.Token] = true
		values = append(values, t.Token)
	}
	return values
}

func collectDead(results []push.Result, byToken map[string][]*models.PushToken) []*models.PushToken {
	var dead []*models.PushToken
	for _, r := range results {
		if r.Unregistered {
			dead = append(dead, byToken[r.Token]...)
		}
	}
	return dead
}

// TokenDeleter removes one push endpoint of a user
type TokenDeleter interface {
	DeletePushToken(ctx context.Context, uid, token string) error
}

// InlineCleaner deletes dead tokens synchronously. It is used when no task queue is configured.
type InlineCleaner struct {
	store TokenDeleter
	log   zerolog.Logger
}

// NewInlineCleaner creates a new InlineCleaner
func NewInlineCleaner(store TokenDeleter, log zerolog.Logger) *InlineCleaner {
	return &InlineCleaner{store: store, log: log}
}

// CleanupTokens implements TokenCleaner
func (c *InlineCleaner) CleanupTokens(ctx context.Context, tokens []*models.PushToken) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for _, t := range tokens {
		if err := c.store.DeletePushToken(ctx, t.UID, t.Token); err != nil {
			c.log.Warn().Err(err).Str("uid", t.UID).Msg("Failed to delete dead push token")
			continue
		}
		c.log.Info().Str("uid", t.UID).Msg("Removed dead push token")
	}
	return nil
}
