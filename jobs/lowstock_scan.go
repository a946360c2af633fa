package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

// LowStockScanJob sweeps organizations for products at or below their low
// stock threshold and emails the configured recipient per organization.
type LowStockScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Mailer  *Client
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger, mailer *Client, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Pool:    pool,
		Logger:  logger,
		Mailer:  mailer,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type lowStockHit struct {
	OwnerID     int64
	ProductName string
	SKU         string
	OnHand      int64
	Threshold   int64
	NotifyEmail string
}

// Handle executes the low stock sweep.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeLowStockScan)
	start := j.now()
	logger := j.logger().With(slog.Int64("owner_id", payload.OwnerID))
	logger.Info("starting low stock scan")

	hits, err := j.scan(ctx, payload.OwnerID)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddLowStockHits(payload.OwnerID, len(hits))

	notified := j.notify(ctx, logger, hits)

	logger.Info("completed low stock scan",
		slog.Int("hits", len(hits)),
		slog.Int("notified", notified),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *LowStockScanJob) scan(ctx context.Context, ownerID int64) ([]lowStockHit, error) {
	rows, err := j.Pool.Query(ctx, `SELECT p.owner_id, p.name, p.sku, COALESCE(SUM(s.quantity), 0), p.low_stock_threshold, COALESCE(o.notify_email, '')
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
LEFT JOIN org_settings o ON o.owner_id = p.owner_id
WHERE p.is_active AND p.low_stock_threshold > 0
AND ($1 = 0 OR p.owner_id = $1)
AND COALESCE(o.low_stock_alerts, TRUE)
GROUP BY p.id, o.notify_email
HAVING COALESCE(SUM(s.quantity), 0) <= p.low_stock_threshold
ORDER BY p.owner_id, p.name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []lowStockHit
	for rows.Next() {
		var hit lowStockHit
		if err := rows.Scan(&hit.OwnerID, &hit.ProductName, &hit.SKU, &hit.OnHand, &hit.Threshold, &hit.NotifyEmail); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// notify groups hits per organization and enqueues one digest email each.
func (j *LowStockScanJob) notify(ctx context.Context, logger *slog.Logger, hits []lowStockHit) int {
	if j.Mailer == nil {
		return 0
	}
	type digest struct {
		email string
		lines []string
	}
	digests := make(map[int64]*digest)
	order := make([]int64, 0)
	for _, hit := range hits {
		if hit.NotifyEmail == "" {
			continue
		}
		entry, ok := digests[hit.OwnerID]
		if !ok {
			entry = &digest{email: hit.NotifyEmail}
			digests[hit.OwnerID] = entry
			order = append(order, hit.OwnerID)
		}
		entry.lines = append(entry.lines, fmt.Sprintf("%s (%s): %d on hand, threshold %d", hit.ProductName, hit.SKU, hit.OnHand, hit.Threshold))
	}

	notified := 0
	for _, ownerID := range order {
		entry := digests[ownerID]
		_, err := j.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      entry.email,
			Subject: fmt.Sprintf("Low stock alert: %d product(s) need restocking", len(entry.lines)),
			Body:    "The following products are at or below their low stock threshold:\n\n" + strings.Join(entry.lines, "\n"),
		})
		if err != nil {
			logger.Warn("failed to enqueue low stock email",
				slog.Int64("owner_id", ownerID),
				slog.Any("error", err),
			)
			continue
		}
		notified++
	}
	return notified
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskTypeLowStockScan))
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
