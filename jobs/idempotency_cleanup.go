package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

// KeyCleaner removes idempotency keys past a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob sweeps stale idempotency keys. Posting reserves a key
// before its transaction and deletes it on failure, so a crash between the
// two strands the key; the sweep is what eventually frees such references.
type IdempotencyCleanupJob struct {
	Store     KeyCleaner
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics, retention time.Duration) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyCleanupJob{
		Store:     store,
		Logger:    logger,
		Metrics:   metrics,
		Retention: retention,
	}
}

// Handle executes the sweep.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTypeIdempotencyCleanup)
	logger := j.logger()
	if err := j.Store.Cleanup(ctx, j.Retention); err != nil {
		logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("idempotency cleanup completed", slog.Duration("retention", j.Retention))
	return tracker.End(nil)
}

func (j *IdempotencyCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeIdempotencyCleanup))
	}
	return slog.Default().With(slog.String("job", TaskTypeIdempotencyCleanup))
}
