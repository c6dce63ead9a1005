package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models/dto"
)

type countingSweeper struct {
	calls    atomic.Int32
	err      error
	deadline bool
}

func (s *countingSweeper) Sweep(ctx context.Context) (*dto.SweepReport, error) {
	s.calls.Add(1)
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SweepReport{Scanned: 1}, nil
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("every now and then", &countingSweeper{}, time.Minute, zerolog.Nop())
	require.Error(t, err)
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := New("@every 1h", sweeper, time.Minute, zerolog.Nop())
	require.NoError(t, err)

	s.RunOnce()
	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.True(t, sweeper.deadline)
}

func TestRunOnceSurvivesSweepError(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	s, err := New("@every 1h", sweeper, 0, zerolog.Nop())
	require.NoError(t, err)

	assert.NotPanics(t, s.RunOnce)
	assert.False(t, sweeper.deadline)
}

func TestStartAndStop(t *testing.T) {
	s, err := New("@every 1h", &countingSweeper{}, 0, zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
