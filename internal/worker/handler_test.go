package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/tasks"
)

type recordingDeleter struct {
	deleted []tasks.TokenRef
	failOn  string
}

func (r *recordingDeleter) DeletePushToken(ctx context.Context, uid, token string) error {
	if token == r.failOn {
		return errors.New("boom")
	}
	r.deleted = append(r.deleted, tasks.TokenRef{UID: uid, Token: token})
	return nil
}

func TestPushTokenCleanupHandler(t *testing.T) {
	task, err := tasks.NewPushTokenCleanupTask([]*models.PushToken{{UID: "u1", Token: "a"}, {UID: "u2", Token: "b"}})
	require.NoError(t, err)

	t.Run("deletes every token", func(t *testing.T) {
		store := &recordingDeleter{}
		h := NewPushTokenCleanupHandler(store, zerolog.Nop())

		require.NoError(t, h.ProcessTask(context.Background(), task))
		assert.Len(t, store.deleted, 2)
	})

	t.Run("partial failure is retried", func(t *testing.T) {
		store := &recordingDeleter{failOn: "b"}
		h := NewPushTokenCleanupHandler(store, zerolog.Nop())

		err := h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
		assert.Len(t, store.deleted, 1)
	})

	t.Run("malformed payload is not retried", func(t *testing.T) {
		h := NewPushTokenCleanupHandler(&recordingDeleter{}, zerolog.Nop())
		err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypePushTokenCleanup, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
