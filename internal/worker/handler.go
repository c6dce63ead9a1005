package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/tasks"
)

// TokenDeleter removes one push endpoint of a user
type TokenDeleter interface {
	DeletePushToken(ctx context.Context, uid, token string) error
}

// PushTokenCleanupHandler deletes push tokens reported dead by the transport
type PushTokenCleanupHandler struct {
	store TokenDeleter
	log   zerolog.Logger
}

// NewPushTokenCleanupHandler creates a new PushTokenCleanupHandler
func NewPushTokenCleanupHandler(store TokenDeleter, log zerolog.Logger) *PushTokenCleanupHandler {
	return &PushTokenCleanupHandler{store: store, log: log}
}

// ProcessTask implements asynq.Handler
func (h *PushTokenCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	retry, _ := asynq.GetRetryCount(ctx)
	logCtx := h.log.With().Str("task_type", t.Type()).Int("retry", retry).Logger()

	payload, err := tasks.ParsePushTokenCleanupPayload(t.Payload())
	if err != nil {
		logCtx.Error().Err(err).Msg("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	var failed int
	for _, ref := range payload.Tokens {
		if err := h.store.DeletePushToken(ctx, ref.UID, ref.Token); err != nil {
			failed++
			logCtx.Warn().Err(err).Str("uid", ref.UID).Msg("Failed to delete push token")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d push tokens could not be deleted", failed, len(payload.Tokens))
	}

	logCtx.Info().Int("tokens", len(payload.Tokens)).Msg("Push token cleanup processed")
	return nil
}
