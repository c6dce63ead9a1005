// Package tasks defines the background jobs processed by the worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/yigit/moim/internal/app/models"
)

// Task types
const (
	TypePushTokenCleanup = "push:token-cleanup"
)

// Queue names
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// TokenRef identifies one push endpoint of one user
type TokenRef struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// PushTokenCleanupPayload lists tokens the push transport reported as unregistered
type PushTokenCleanupPayload struct {
	Tokens []TokenRef `json:"tokens"`
}

// NewPushTokenCleanupTask creates a cleanup task for the given tokens
func NewPushTokenCleanupTask(tokens []*models.PushToken) (*asynq.Task, error) {
	payload := PushTokenCleanupPayload{Tokens: make([]TokenRef, 0, len(tokens))}
	for _, t := range tokens {
		payload.Tokens = append(payload.Tokens, TokenRef{UID: t.UID, Token: t.Token})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePushTokenCleanup, data, asynq.MaxRetry(5), asynq.Queue(QueueLow), asynq.Timeout(time.Minute)), nil
}

// ParsePushTokenCleanupPayload decodes a cleanup task payload
func ParsePushTokenCleanupPayload(data []byte) (*PushTokenCleanupPayload, error) {
	var payload PushTokenCleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Enqueuer is the part of asynq.Client used to submit tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueCleaner hands dead tokens to the worker instead of deleting them on the request path
type QueueCleaner struct {
	client Enqueuer
}

// NewQueueCleaner creates a new QueueCleaner
func NewQueueCleaner(client Enqueuer) *QueueCleaner {
	return &QueueCleaner{client: client}
}

// CleanupTokens enqueues one cleanup task for tokens
func (c *QueueCleaner) CleanupTokens(ctx context.Context, tokens []*models.PushToken) error {
	if len(tokens) == 0 {
		return nil
	}
	task, err := NewPushTokenCleanupTask(tokens)
	if err != nil {
		return fmt.Errorf("failed to build cleanup task: %w", err)
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue cleanup task: %w", err)
	}
	return nil
}
