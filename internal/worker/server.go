// Package worker runs the asynq server that processes background tasks.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/tasks"
)

// Server wraps the asynq server lifecycle
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    zerolog.Logger
}

// NewServer creates a worker server and registers every task handler
func NewServer(redisOpt asynq.RedisClientOpt, store TokenDeleter, log zerolog.Logger) *Server {
	logCtx := log.With().Str("component", "worker_server").Logger()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			tasks.QueueDefault: 3,
			tasks.QueueLow:     1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logCtx.Error().Err(err).
				Str("task_type", task.Type()).
				Int("retry", retry).
				Int("max_retry", maxRetry).
				Msg("Task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypePushTokenCleanup, NewPushTokenCleanupHandler(store, logCtx))

	return &Server{server: server, mux: mux, log: logCtx}
}

// Start begins processing in background goroutines and returns
func (s *Server) Start() error {
	s.log.Info().Msg("Worker server starting")
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight tasks and stops the server
func (s *Server) Shutdown() {
	s.log.Info().Msg("Shutting down worker server")
	s.server.Shutdown()
}
