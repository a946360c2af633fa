package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingCleaner struct {
	calls []time.Duration
	err   error
}

func (c *recordingCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	c.calls = append(c.calls, olderThan)
	return c.err
}

func TestIdempotencyCleanupSweepsWithRetention(t *testing.T) {
	cleaner := &recordingCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, nil, nil, 6*time.Hour)

	err := job.Handle(context.Background(), NewIdempotencyCleanupTask())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{6 * time.Hour}, cleaner.calls)
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	cleaner := &recordingCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, nil, nil, 0)

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	require.Equal(t, []time.Duration{24 * time.Hour}, cleaner.calls)
}

func TestIdempotencyCleanupPropagatesError(t *testing.T) {
	boom := errors.New("sweep failed")
	job := NewIdempotencyCleanupJob(&recordingCleaner{err: boom}, nil, nil, time.Hour)

	require.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), boom)
}

func TestIdempotencyCleanupUnconfigured(t *testing.T) {
	var job *IdempotencyCleanupJob
	require.Error(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
}
