package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProducts(ctx context.Context, ownerID int64, productIDs []int64) (map[int64]ProductInfo, error)
	GetStockQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]int64, error)
	GetTransaction(ctx context.Context, ownerID, id int64) (Transaction, []TransactionItem, error)
	ListTransactions(ctx context.Context, ownerID int64, limit int) ([]Transaction, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// EventHandler receives ledger events after a successful commit.
type EventHandler interface {
	HandleSalePosted(ctx context.Context, evt SalePostedEvent) error
}

// Service is the transaction poster: it validates posting requests and
// applies them atomically to stock, lots, allocations and movements.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	events      EventHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, events EventHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, events: events}
}

// Post validates and posts a purchase or sale transaction. The whole request
// commits or rolls back as one unit; no partial postings survive a failure.
func (s *Service) Post(ctx context.Context, input PostInput) (Posted, error) {
	if input.Type != TransactionTypePurchase && input.Type != TransactionTypeSale {
		return Posted{}, ErrInvalidType
	}
	if input.WarehouseID == 0 || input.OwnerID == 0 {
		return Posted{}, errors.New("ledger: warehouse and owner required")
	}
	if len(input.Items) == 0 {
		return Posted{}, ErrNoItems
	}
	for _, line := range input.Items {
		if line.ProductID == 0 || line.Quantity <= 0 {
			return Posted{}, ErrInvalidQuantity
		}
		if line.UnitPrice < 0 {
			return Posted{}, ErrInvalidUnitPrice
		}
	}

	// Whole-sale pre-check. Duplicate rows for the same product are summed
	// before comparing against stock, so a sale split across rows cannot
	// slip past a line-by-line check.
	if input.Type == TransactionTypeSale && !input.AllowNegative {
		if err := s.precheckSale(ctx, input); err != nil {
			return Posted{}, err
		}
	}

	reference := input.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, fmt.Sprintf("TXN:%s", reference), "ledger"); err != nil {
			return Posted{}, err
		}
		insertedKey = true
	}

	now := time.Now().UTC()
	var posted Posted
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header := Transaction{
			Reference:   reference,
			Type:        input.Type,
			PartnerID:   input.PartnerID,
			WarehouseID: input.WarehouseID,
			ActorID:     input.ActorID,
			OwnerID:     input.OwnerID,
			Note:        input.Note,
			Locked:      true,
			PostedAt:    now,
		}
		txID, err := tx.InsertTransaction(ctx, header)
		if err != nil {
			return err
		}
		header.ID = txID

		items := make([]TransactionItem, 0, len(input.Items))
		for _, line := range input.Items {
			var item TransactionItem
			if input.Type == TransactionTypePurchase {
				item, err = s.postPurchaseLine(ctx, tx, header, line, now)
			} else {
				item, err = s.postSaleLine(ctx, tx, header, line, input.AllowNegative, now)
			}
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		posted = Posted{Transaction: header, Items: items}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, fmt.Sprintf("TXN:%s", reference))
		}
		return Posted{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("ledger:%s", input.Type),
			Entity:   "transaction",
			EntityID: reference,
			Meta: map[string]any{
				"owner_id":     input.OwnerID,
				"warehouse_id": input.WarehouseID,
				"partner_id":   input.PartnerID,
				"lines":        len(input.Items),
			},
		})
	}
	if s.events != nil && input.Type == TransactionTypeSale {
		evt := SalePostedEvent{
			TransactionID: posted.Transaction.ID,
			Reference:     reference,
			OwnerID:       input.OwnerID,
			WarehouseID:   input.WarehouseID,
			PostedAt:      now,
		}
		// The posting already committed; event delivery is best effort.
		_ = s.events.HandleSalePosted(ctx, evt)
	}
	return posted, nil
}

// precheckSale aggregates the requested quantity per product across all
// lines and rejects the whole request if any product is short. Read-only.
func (s *Service) precheckSale(ctx context.Context, input PostInput) error {
	requested := make(map[int64]int64)
	order := make([]int64, 0, len(input.Items))
	for _, line := range input.Items {
		if _, seen := requested[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	products, err := s.repo.GetProducts(ctx, input.OwnerID, order)
	if err != nil {
		return err
	}
	for _, productID := range order {
		if _, ok := products[productID]; !ok {
			return ErrProductNotFound
		}
	}

	available, err := s.repo.GetStockQuantities(ctx, input.WarehouseID, order)
	if err != nil {
		return err
	}

	var shortages []Shortage
	for _, productID := range order {
		onHand := available[productID]
		if requested[productID] > onHand {
			shortages = append(shortages, Shortage{
				ProductID: productID,
				Name:      products[productID].Name,
				Available: onHand,
				Requested: requested[productID],
			})
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Shortages: shortages}
	}
	return nil
}

func (s *Service) postPurchaseLine(ctx context.Context, tx TxRepository, header Transaction, line LineInput, now time.Time) (TransactionItem, error) {
	if _, err := tx.GetProduct(ctx, header.OwnerID, line.ProductID); err != nil {
		return TransactionItem{}, err
	}
	total := float64(line.Quantity) * line.UnitPrice
	item := TransactionItem{
		TransactionID: header.ID,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		TotalPrice:    total,
	}
	itemID, err := tx.InsertItem(ctx, item)
	if err != nil {
		return TransactionItem{}, err
	}
	item.ID = itemID

	stock, err := tx.GetOrCreateStock(ctx, line.ProductID, header.WarehouseID)
	if err != nil {
		return TransactionItem{}, err
	}
	if err := tx.UpdateStockQuantity(ctx, stock.ID, stock.Quantity+line.Quantity); err != nil {
		return TransactionItem{}, err
	}

	lot := PurchaseLot{
		ProductID:         line.ProductID,
		WarehouseID:       header.WarehouseID,
		QuantityRemaining: line.Quantity,
		UnitCost:          line.UnitPrice,
		ReceivedAt:        now,
		TransactionItemID: itemID,
	}
	if _, err := tx.InsertLot(ctx, lot); err != nil {
		return TransactionItem{}, err
	}

	movement := StockMovement{
		TransactionID:     header.ID,
		TransactionItemID: itemID,
		ProductID:         line.ProductID,
		WarehouseID:       header.WarehouseID,
		ActorID:           header.ActorID,
		Direction:         MovementIn,
		Quantity:          line.Quantity,
		UnitCost:          line.UnitPrice,
		OccurredAt:        now,
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return TransactionItem{}, err
	}
	return item, nil
}

func (s *Service) postSaleLine(ctx context.Context, tx TxRepository, header Transaction, line LineInput, allowNegative bool, now time.Time) (TransactionItem, error) {
	product, err := tx.GetProduct(ctx, header.OwnerID, line.ProductID)
	if err != nil {
		return TransactionItem{}, err
	}
	stock, err := tx.GetOrCreateStock(ctx, line.ProductID, header.WarehouseID)
	if err != nil {
		return TransactionItem{}, err
	}
	// Second line of defense: the pre-check ran outside this transaction,
	// so a racing sale may have shrunk stock since. The stock row is locked
	// here, making this check authoritative.
	if !allowNegative && stock.Quantity < line.Quantity {
		return TransactionItem{}, &ShortageError{Shortages: []Shortage{{
			ProductID: line.ProductID,
			Name:      product.Name,
			Available: stock.Quantity,
			Requested: line.Quantity,
		}}}
	}

	costUsed, allocations, err := s.consumeFifo(ctx, tx, product, header.WarehouseID, line.Quantity, allowNegative)
	if err != nil {
		return TransactionItem{}, err
	}

	total := float64(line.Quantity) * line.UnitPrice
	profit := total - costUsed
	item := TransactionItem{
		TransactionID: header.ID,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		TotalPrice:    total,
		CostUsed:      &costUsed,
		Profit:        &profit,
	}
	itemID, err := tx.InsertItem(ctx, item)
	if err != nil {
		return TransactionItem{}, err
	}
	item.ID = itemID

	for _, alloc := range allocations {
		alloc.TransactionItemID = itemID
		if err := tx.InsertAllocation(ctx, alloc); err != nil {
			return TransactionItem{}, err
		}
	}

	if err := tx.UpdateStockQuantity(ctx, stock.ID, stock.Quantity-line.Quantity); err != nil {
		return TransactionItem{}, err
	}

	movement := StockMovement{
		TransactionID:     header.ID,
		TransactionItemID: itemID,
		ProductID:         line.ProductID,
		WarehouseID:       header.WarehouseID,
		ActorID:           header.ActorID,
		Direction:         MovementOut,
		Quantity:          line.Quantity,
		UnitCost:          costUsed / float64(line.Quantity),
		UnitPrice:         line.UnitPrice,
		OccurredAt:        now,
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return TransactionItem{}, err
	}
	return item, nil
}

// consumeFifo drains open lots oldest first (received_at ASC, id ASC) and
// returns the realized cost plus one allocation per touched lot. When lots
// run out before the quantity is covered, the shortfall is priced from the
// most recent lot when negative stock is allowed, otherwise from the
// product's default purchase price. Either way the lot ledger never goes
// negative and the returned cost is finite and non-negative.
func (s *Service) consumeFifo(ctx context.Context, tx TxRepository, product ProductInfo, warehouseID int64, quantity int64, allowNegative bool) (float64, []LotAllocation, error) {
	lots, err := tx.ListOpenLots(ctx, product.ID, warehouseID)
	if err != nil {
		return 0, nil, err
	}

	remaining := quantity
	costUsed := 0.0
	var allocations []LotAllocation
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		take := min(remaining, lot.QuantityRemaining)
		if take <= 0 {
			continue
		}
		if err := tx.UpdateLotRemaining(ctx, lot.ID, lot.QuantityRemaining-take); err != nil {
			return 0, nil, err
		}
		costUsed += float64(take) * lot.UnitCost
		allocations = append(allocations, LotAllocation{
			PurchaseLotID: lot.ID,
			Quantity:      take,
			UnitCost:      lot.UnitCost,
		})
		remaining -= take
	}

	// Lots can undercover the stock counter when quantities were adjusted
	// without matching lots. Price the uncovered remainder so cost and
	// profit stay well-defined.
	if remaining > 0 {
		var fallback float64
		if allowNegative {
			cost, ok, err := tx.LatestLotCost(ctx, product.ID, warehouseID)
			if err != nil {
				return 0, nil, err
			}
			if ok {
				fallback = cost
			}
		} else {
			fallback = product.DefaultPurchasePrice
		}
		costUsed += float64(remaining) * fallback
	}
	return costUsed, allocations, nil
}

// GetTransaction loads a posted transaction with its items.
func (s *Service) GetTransaction(ctx context.Context, ownerID, id int64) (Transaction, []TransactionItem, error) {
	return s.repo.GetTransaction(ctx, ownerID, id)
}

// ListTransactions lists recent transactions for the organization.
func (s *Service) ListTransactions(ctx context.Context, ownerID int64, limit int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, ownerID, limit)
}

// ListMovements returns stock card entries for one (product, warehouse).
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.ProductID == 0 || filter.WarehouseID == 0 {
		return nil, errors.New("ledger: warehouse and product required")
	}
	return s.repo.ListMovements(ctx, filter)
}

// OnHand reports the current stock per product in a warehouse.
func (s *Service) OnHand(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]int64, error) {
	if warehouseID == 0 {
		return nil, errors.New("ledger: warehouse required")
	}
	return s.repo.GetStockQuantities(ctx, warehouseID, productIDs)
}
