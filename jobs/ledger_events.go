package jobs

import (
	"context"

	"github.com/stocklane/stocklane/internal/ledger"
)

// LedgerEvents bridges ledger events onto the job queue. A posted sale
// triggers a low stock sweep for the selling organization.
type LedgerEvents struct {
	client *Client
}

// NewLedgerEvents constructs the bridge.
func NewLedgerEvents(client *Client) *LedgerEvents {
	return &LedgerEvents{client: client}
}

// HandleSalePosted enqueues a low stock scan scoped to the event's owner.
func (e *LedgerEvents) HandleSalePosted(ctx context.Context, evt ledger.SalePostedEvent) error {
	if e == nil || e.client == nil {
		return nil
	}
	_, err := e.client.EnqueueLowStockScan(ctx, LowStockScanPayload{OwnerID: evt.OwnerID})
	return err
}
