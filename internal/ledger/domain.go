package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransactionType enumerates supported posting types.
type TransactionType string

const (
	// TransactionTypePurchase records inbound inventory bought from a supplier.
	TransactionTypePurchase TransactionType = "Purchase"
	// TransactionTypeSale records outbound inventory sold to a customer.
	TransactionTypeSale TransactionType = "Sale"
)

// Transaction is the posted header grouping one or more line items.
type Transaction struct {
	ID          int64
	Reference   string
	Type        TransactionType
	PartnerID   int64
	WarehouseID int64
	ActorID     int64
	OwnerID     int64
	Note        string
	Locked      bool
	PostedAt    time.Time
}

// TransactionItem is one posted line. CostUsed and Profit are set for
// sale lines only; purchases carry no cost of goods sold.
type TransactionItem struct {
	ID            int64
	TransactionID int64
	ProductID     int64
	Quantity      int64
	UnitPrice     float64
	TotalPrice    float64
	CostUsed      *float64
	Profit        *float64
}

// Stock is the on-hand quantity of one product in one warehouse.
// Exactly one row exists per (product, warehouse) pair.
type Stock struct {
	ID          int64
	ProductID   int64
	WarehouseID int64
	Quantity    int64
}

// PurchaseLot is a receipt of inventory at a specific unit cost.
// QuantityRemaining only ever decreases; a drained lot is kept for audit.
type PurchaseLot struct {
	ID                int64
	ProductID         int64
	WarehouseID       int64
	QuantityRemaining int64
	UnitCost          float64
	ReceivedAt        time.Time
	TransactionItemID int64
}

// LotAllocation records how much of a sale line was funded by which lot.
type LotAllocation struct {
	ID                int64
	TransactionItemID int64
	PurchaseLotID     int64
	Quantity          int64
	UnitCost          float64
}

// MovementDirection marks a stock movement as inbound or outbound.
type MovementDirection string

const (
	// MovementIn is recorded for purchase lines.
	MovementIn MovementDirection = "IN"
	// MovementOut is recorded for sale lines.
	MovementOut MovementDirection = "OUT"
)

// StockMovement is an append-only ledger entry derived from a posted line.
type StockMovement struct {
	ID                int64
	TransactionID     int64
	TransactionItemID int64
	ProductID         int64
	WarehouseID       int64
	ActorID           int64
	Direction         MovementDirection
	Quantity          int64
	UnitCost          float64
	UnitPrice         float64
	OccurredAt        time.Time
}

// ProductInfo carries the product attributes the poster needs.
type ProductInfo struct {
	ID                   int64
	Name                 string
	DefaultPurchasePrice float64
	DefaultSellPrice     float64
}

// LineInput is one requested transaction line.
type LineInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// PostInput describes a posting request. OwnerID and ActorID are supplied
// explicitly by the caller; the poster never resolves them from ambient state.
type PostInput struct {
	Type          TransactionType
	PartnerID     int64
	WarehouseID   int64
	ActorID       int64
	OwnerID       int64
	Reference     string
	Note          string
	AllowNegative bool
	Items         []LineInput
}

// Posted is the result of a successful posting call.
type Posted struct {
	Transaction Transaction
	Items       []TransactionItem
}

// MovementFilter filters stock card entries.
type MovementFilter struct {
	ProductID   int64
	WarehouseID int64
	From        time.Time
	To          time.Time
	Limit       int
}

// Shortage describes one product whose aggregate requested quantity
// exceeds the on-hand stock.
type Shortage struct {
	ProductID int64
	Name      string
	Available int64
	Requested int64
}

// ShortageError reports every short product in a rejected sale.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	lines := make([]string, 0, len(e.Shortages)+1)
	lines = append(lines, "not enough stock for sale:")
	for _, s := range e.Shortages {
		lines = append(lines, fmt.Sprintf("%s: available %d, requested %d", s.Name, s.Available, s.Requested))
	}
	return strings.Join(lines, "\n")
}

// ErrInvalidType indicates an unsupported transaction type.
var ErrInvalidType = errors.New("ledger: transaction type must be Purchase or Sale")

// ErrInvalidQuantity indicates a missing or non-positive line quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be greater than 0")

// ErrInvalidUnitPrice indicates a negative unit price.
var ErrInvalidUnitPrice = errors.New("ledger: unit price must be >= 0")

// ErrNoItems indicates a posting request without line items.
var ErrNoItems = errors.New("ledger: at least one line item required")

// ErrProductNotFound indicates a line references a product that does not
// exist or does not belong to the acting organization.
var ErrProductNotFound = errors.New("ledger: product not found")

// ErrPostFailed is surfaced for internal failures after rollback. The cause
// is logged server-side and never leaked to the caller.
var ErrPostFailed = errors.New("ledger: failed to post transaction")
