package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository persists products scoped to an organization owner.
type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, ownerID, id int64) (*Product, error)
	List(ctx context.Context, ownerID int64, filter ListFilter) ([]ProductWithStock, error)
	Deactivate(ctx context.Context, ownerID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, p *Product) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (owner_id, sku, name, unit, default_purchase_price, default_sell_price, low_stock_threshold, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,NOW())
RETURNING id, created_at`,
		p.OwnerID, p.SKU, p.Name, p.Unit, p.DefaultPurchasePrice, p.DefaultSellPrice, p.LowStockThreshold).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	p.IsActive = true
	return nil
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products
SET sku=$1, name=$2, unit=$3, default_purchase_price=$4, default_sell_price=$5, low_stock_threshold=$6, is_active=$7
WHERE id=$8 AND owner_id=$9`,
		p.SKU, p.Name, p.Unit, p.DefaultPurchasePrice, p.DefaultSellPrice, p.LowStockThreshold, p.IsActive, p.ID, p.OwnerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, ownerID, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, sku, name, unit, default_purchase_price, default_sell_price, low_stock_threshold, is_active, created_at
FROM products WHERE id=$1 AND owner_id=$2`, id, ownerID).
		Scan(&p.ID, &p.OwnerID, &p.SKU, &p.Name, &p.Unit, &p.DefaultPurchasePrice, &p.DefaultSellPrice, &p.LowStockThreshold, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, ownerID int64, filter ListFilter) ([]ProductWithStock, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT p.id, p.owner_id, p.sku, p.name, p.unit, p.default_purchase_price, p.default_sell_price, p.low_stock_threshold, p.is_active, p.created_at,
COALESCE(SUM(s.quantity), 0) AS on_hand
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
WHERE p.owner_id = $1
AND ($2 = '' OR p.name ILIKE '%' || $2 || '%' OR p.sku ILIKE '%' || $2 || '%')
AND (NOT $3 OR p.is_active)
GROUP BY p.id
ORDER BY p.name ASC, p.id ASC
LIMIT $4 OFFSET $5`
	rows, err := r.pool.Query(ctx, query, ownerID, filter.Search, filter.ActiveOnly, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductWithStock
	for rows.Next() {
		var p ProductWithStock
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.SKU, &p.Name, &p.Unit, &p.DefaultPurchasePrice, &p.DefaultSellPrice, &p.LowStockThreshold, &p.IsActive, &p.CreatedAt, &p.OnHand); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Deactivate(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=FALSE WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
