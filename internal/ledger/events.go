package ledger

import "time"

// SalePostedEvent is emitted after a sale transaction commits. Consumers
// use it to kick off follow-up work such as low-stock scans.
type SalePostedEvent struct {
	TransactionID int64
	Reference     string
	OwnerID       int64
	WarehouseID   int64
	PostedAt      time.Time
}
