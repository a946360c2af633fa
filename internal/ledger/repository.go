package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations the poster uses.
type TxRepository interface {
	GetProduct(ctx context.Context, ownerID, productID int64) (ProductInfo, error)
	GetOrCreateStock(ctx context.Context, productID, warehouseID int64) (Stock, error)
	UpdateStockQuantity(ctx context.Context, stockID, quantity int64) error
	ListOpenLots(ctx context.Context, productID, warehouseID int64) ([]PurchaseLot, error)
	LatestLotCost(ctx context.Context, productID, warehouseID int64) (float64, bool, error)
	UpdateLotRemaining(ctx context.Context, lotID, remaining int64) error
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	InsertItem(ctx context.Context, item TransactionItem) (int64, error)
	InsertLot(ctx context.Context, lot PurchaseLot) (int64, error)
	InsertAllocation(ctx context.Context, alloc LotAllocation) error
	InsertMovement(ctx context.Context, movement StockMovement) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
// Stock rows read for posting are locked with FOR UPDATE, so two racing
// sales against the same (product, warehouse) serialize on the row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetProducts loads owner-scoped product info for the given ids. Products
// outside the organization are absent from the result.
func (r *Repository) GetProducts(ctx context.Context, ownerID int64, productIDs []int64) (map[int64]ProductInfo, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, default_purchase_price, default_sell_price
FROM products WHERE owner_id=$1 AND id = ANY($2)`, ownerID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make(map[int64]ProductInfo, len(productIDs))
	for rows.Next() {
		var p ProductInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.DefaultPurchasePrice, &p.DefaultSellPrice); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

// GetStockQuantities reads current on-hand quantities for a warehouse.
// Products without a stock row report zero. Passing no product ids returns
// every stock row in the warehouse.
func (r *Repository) GetStockQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]int64, error) {
	query := `SELECT product_id, quantity FROM stocks WHERE warehouse_id=$1`
	args := []any{warehouseID}
	if len(productIDs) > 0 {
		query += ` AND product_id = ANY($2)`
		args = append(args, productIDs)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	quantities := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		quantities[productID] = qty
	}
	return quantities, rows.Err()
}

// GetTransaction loads one transaction header with its items.
func (r *Repository) GetTransaction(ctx context.Context, ownerID, id int64) (Transaction, []TransactionItem, error) {
	var txn Transaction
	err := r.pool.QueryRow(ctx, `SELECT id, reference, tx_type, partner_id, warehouse_id, actor_id, owner_id, note, locked, posted_at
FROM transactions WHERE owner_id=$1 AND id=$2`, ownerID, id).
		Scan(&txn.ID, &txn.Reference, &txn.Type, &txn.PartnerID, &txn.WarehouseID, &txn.ActorID, &txn.OwnerID, &txn.Note, &txn.Locked, &txn.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, nil, shared.ErrNotFound
		}
		return Transaction{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, product_id, quantity, unit_price, total_price, cost_used, profit
FROM transaction_items WHERE transaction_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, nil, err
	}
	defer rows.Close()
	var items []TransactionItem
	for rows.Next() {
		var item TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CostUsed, &item.Profit); err != nil {
			return Transaction{}, nil, err
		}
		items = append(items, item)
	}
	return txn, items, rows.Err()
}

// ListTransactions lists recent headers for an organization.
func (r *Repository) ListTransactions(ctx context.Context, ownerID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, reference, tx_type, partner_id, warehouse_id, actor_id, owner_id, note, locked, posted_at
FROM transactions WHERE owner_id=$1 ORDER BY posted_at DESC, id DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(&txn.ID, &txn.Reference, &txn.Type, &txn.PartnerID, &txn.WarehouseID, &txn.ActorID, &txn.OwnerID, &txn.Note, &txn.Locked, &txn.PostedAt); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// ListMovements returns stock card entries ordered by occurrence.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, transaction_item_id, product_id, warehouse_id, actor_id, direction, quantity, unit_cost, unit_price, occurred_at
FROM stock_movements
WHERE product_id=$1 AND warehouse_id=$2 AND occurred_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY occurred_at ASC, id ASC
LIMIT $5`, filter.ProductID, filter.WarehouseID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []StockMovement{}
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.TransactionItemID, &m.ProductID, &m.WarehouseID, &m.ActorID, &m.Direction, &m.Quantity, &m.UnitCost, &m.UnitPrice, &m.OccurredAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepository) GetProduct(ctx context.Context, ownerID, productID int64) (ProductInfo, error) {
	var p ProductInfo
	err := r.tx.QueryRow(ctx, `SELECT id, name, default_purchase_price, default_sell_price
FROM products WHERE owner_id=$1 AND id=$2`, ownerID, productID).
		Scan(&p.ID, &p.Name, &p.DefaultPurchasePrice, &p.DefaultSellPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductInfo{}, ErrProductNotFound
		}
		return ProductInfo{}, err
	}
	return p, nil
}

// GetOrCreateStock returns the stock row for (product, warehouse), creating
// it with quantity 0 on first touch. The upsert locks the row either way,
// so the unique constraint cannot race and the caller holds the row until
// commit.
func (r *txRepository) GetOrCreateStock(ctx context.Context, productID, warehouseID int64) (Stock, error) {
	var stock Stock
	err := r.tx.QueryRow(ctx, `INSERT INTO stocks (product_id, warehouse_id, quantity)
VALUES ($1, $2, 0)
ON CONFLICT (product_id, warehouse_id) DO UPDATE SET quantity = stocks.quantity
RETURNING id, product_id, warehouse_id, quantity`, productID, warehouseID).
		Scan(&stock.ID, &stock.ProductID, &stock.WarehouseID, &stock.Quantity)
	return stock, err
}

func (r *txRepository) UpdateStockQuantity(ctx context.Context, stockID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE stocks SET quantity=$2 WHERE id=$1`, stockID, quantity)
	return err
}

// ListOpenLots loads lots with remaining quantity in FIFO order, id as the
// tiebreaker for same-timestamp receipts. Rows are locked for the duration
// of the posting transaction.
func (r *txRepository) ListOpenLots(ctx context.Context, productID, warehouseID int64) ([]PurchaseLot, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, product_id, warehouse_id, quantity_remaining, unit_cost, received_at, transaction_item_id
FROM purchase_lots
WHERE product_id=$1 AND warehouse_id=$2 AND quantity_remaining > 0
ORDER BY received_at ASC, id ASC
FOR UPDATE`, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []PurchaseLot
	for rows.Next() {
		var lot PurchaseLot
		if err := rows.Scan(&lot.ID, &lot.ProductID, &lot.WarehouseID, &lot.QuantityRemaining, &lot.UnitCost, &lot.ReceivedAt, &lot.TransactionItemID); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (r *txRepository) LatestLotCost(ctx context.Context, productID, warehouseID int64) (float64, bool, error) {
	var cost float64
	err := r.tx.QueryRow(ctx, `SELECT unit_cost FROM purchase_lots
WHERE product_id=$1 AND warehouse_id=$2
ORDER BY received_at DESC, id DESC LIMIT 1`, productID, warehouseID).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return cost, true, nil
}

func (r *txRepository) UpdateLotRemaining(ctx context.Context, lotID, remaining int64) error {
	if remaining < 0 {
		return errors.New("ledger: lot remaining cannot go negative")
	}
	_, err := r.tx.Exec(ctx, `UPDATE purchase_lots SET quantity_remaining=$2 WHERE id=$1`, lotID, remaining)
	return err
}

func (r *txRepository) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (reference, tx_type, partner_id, warehouse_id, actor_id, owner_id, note, locked, posted_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`,
		txn.Reference, string(txn.Type), nullInt(txn.PartnerID), txn.WarehouseID, nullInt(txn.ActorID), txn.OwnerID, txn.Note, txn.Locked, txn.PostedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item TransactionItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transaction_items (transaction_id, product_id, quantity, unit_price, total_price, cost_used, profit)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice, item.CostUsed, item.Profit).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLot(ctx context.Context, lot PurchaseLot) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_lots (product_id, warehouse_id, quantity_remaining, unit_cost, received_at, transaction_item_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		lot.ProductID, lot.WarehouseID, lot.QuantityRemaining, lot.UnitCost, lot.ReceivedAt, nullInt(lot.TransactionItemID)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertAllocation(ctx context.Context, alloc LotAllocation) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO lot_allocations (transaction_item_id, purchase_lot_id, quantity, unit_cost)
VALUES ($1,$2,$3,$4)`, alloc.TransactionItemID, alloc.PurchaseLotID, alloc.Quantity, alloc.UnitCost)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m StockMovement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (transaction_id, transaction_item_id, product_id, warehouse_id, actor_id, direction, quantity, unit_cost, unit_price, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.TransactionID, m.TransactionItemID, m.ProductID, m.WarehouseID, nullInt(m.ActorID), string(m.Direction), m.Quantity, m.UnitCost, m.UnitPrice, m.OccurredAt)
	return err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
