package catalog

import "time"

// Product is a sellable or purchasable item. Quantity on hand is not stored
// here; it is computed from stocks per warehouse on read.
type Product struct {
	ID                   int64     `json:"id"`
	OwnerID              int64     `json:"-"`
	SKU                  string    `json:"sku"`
	Name                 string    `json:"name"`
	Unit                 string    `json:"unit"`
	DefaultPurchasePrice float64   `json:"default_purchase_price"`
	DefaultSellPrice     float64   `json:"default_sell_price"`
	LowStockThreshold    int64     `json:"low_stock_threshold"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// ProductWithStock decorates a product with its aggregate on-hand quantity.
type ProductWithStock struct {
	Product
	OnHand int64 `json:"on_hand"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
