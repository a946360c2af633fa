package reports

import "time"

// Period bounds a report. Zero times mean unbounded.
type Period struct {
	From time.Time
	To   time.Time
}

// ProductSales summarizes sales per product within a period.
type ProductSales struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	QuantitySold int64   `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
	CostOfGoods  float64 `json:"cost_of_goods"`
	Profit       float64 `json:"profit"`
}

// PartnerSales summarizes sales per customer within a period.
type PartnerSales struct {
	PartnerID    int64   `json:"partner_id"`
	PartnerName  string  `json:"partner_name"`
	Transactions int64   `json:"transactions"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
}

// Totals aggregates the whole period.
type Totals struct {
	Purchases     int64   `json:"purchases"`
	Sales         int64   `json:"sales"`
	Revenue       float64 `json:"revenue"`
	CostOfGoods   float64 `json:"cost_of_goods"`
	Profit        float64 `json:"profit"`
	PurchaseSpend float64 `json:"purchase_spend"`
}

// Summary bundles the sales report sections.
type Summary struct {
	Totals    Totals         `json:"totals"`
	ByProduct []ProductSales `json:"by_product"`
	ByPartner []PartnerSales `json:"by_partner"`
}

// LowStockItem is a product whose aggregate on-hand quantity fell to or
// below its threshold.
type LowStockItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	OnHand      int64  `json:"on_hand"`
	Threshold   int64  `json:"threshold"`
}
