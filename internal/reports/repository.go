package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs report queries.
type Repository interface {
	Totals(ctx context.Context, ownerID int64, p Period) (Totals, error)
	SalesByProduct(ctx context.Context, ownerID int64, p Period) ([]ProductSales, error)
	SalesByPartner(ctx context.Context, ownerID int64, p Period) ([]PartnerSales, error)
	LowStock(ctx context.Context, ownerID int64) ([]LowStockItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// periodBounds normalizes zero times to an effectively unbounded range so a
// single query shape serves bounded and unbounded reports.
func periodBounds(p Period) (time.Time, time.Time) {
	from := p.From
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	to := p.To
	if to.IsZero() {
		to = time.Now().Add(24 * time.Hour)
	}
	return from, to
}

func (r *repository) Totals(ctx context.Context, ownerID int64, p Period) (Totals, error) {
	from, to := periodBounds(p)
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE t.type = 'purchase'),
COUNT(*) FILTER (WHERE t.type = 'sale'),
COALESCE(SUM(i.total_price) FILTER (WHERE t.type = 'sale'), 0),
COALESCE(SUM(i.cost_used) FILTER (WHERE t.type = 'sale'), 0),
COALESCE(SUM(i.profit) FILTER (WHERE t.type = 'sale'), 0),
COALESCE(SUM(i.total_price) FILTER (WHERE t.type = 'purchase'), 0)
FROM transactions t
JOIN transaction_items i ON i.transaction_id = t.id
WHERE t.owner_id = $1 AND t.posted_at >= $2 AND t.posted_at < $3`,
		ownerID, from, to).
		Scan(&t.Purchases, &t.Sales, &t.Revenue, &t.CostOfGoods, &t.Profit, &t.PurchaseSpend)
	return t, err
}

func (r *repository) SalesByProduct(ctx context.Context, ownerID int64, p Period) ([]ProductSales, error) {
	from, to := periodBounds(p)
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name,
COALESCE(SUM(i.quantity), 0),
COALESCE(SUM(i.total_price), 0),
COALESCE(SUM(i.cost_used), 0),
COALESCE(SUM(i.profit), 0)
FROM transaction_items i
JOIN transactions t ON t.id = i.transaction_id
JOIN products p ON p.id = i.product_id
WHERE t.owner_id = $1 AND t.type = 'sale' AND t.posted_at >= $2 AND t.posted_at < $3
GROUP BY p.id, p.name
ORDER BY SUM(i.total_price) DESC, p.id ASC`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductSales
	for rows.Next() {
		var row ProductSales
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.QuantitySold, &row.Revenue, &row.CostOfGoods, &row.Profit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) SalesByPartner(ctx context.Context, ownerID int64, p Period) ([]PartnerSales, error) {
	from, to := periodBounds(p)
	rows, err := r.pool.Query(ctx, `SELECT pa.id, pa.name,
COUNT(DISTINCT t.id),
COALESCE(SUM(i.total_price), 0),
COALESCE(SUM(i.profit), 0)
FROM transaction_items i
JOIN transactions t ON t.id = i.transaction_id
JOIN partners pa ON pa.id = t.partner_id
WHERE t.owner_id = $1 AND t.type = 'sale' AND t.posted_at >= $2 AND t.posted_at < $3
GROUP BY pa.id, pa.name
ORDER BY SUM(i.total_price) DESC, pa.id ASC`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PartnerSales
	for rows.Next() {
		var row PartnerSales
		if err := rows.Scan(&row.PartnerID, &row.PartnerName, &row.Transactions, &row.Revenue, &row.Profit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) LowStock(ctx context.Context, ownerID int64) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.sku, COALESCE(SUM(s.quantity), 0), p.low_stock_threshold
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
WHERE p.owner_id = $1 AND p.is_active AND p.low_stock_threshold > 0
GROUP BY p.id
HAVING COALESCE(SUM(s.quantity), 0) <= p.low_stock_threshold
ORDER BY COALESCE(SUM(s.quantity), 0) ASC, p.id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.SKU, &item.OnHand, &item.Threshold); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
