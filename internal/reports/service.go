// Package reports builds read-only summaries over posted transactions.
package reports

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Service assembles reports. Sections of the summary run concurrently since
// they are independent read queries.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SalesSummary builds the full sales report for the period.
func (s *Service) SalesSummary(ctx context.Context, ownerID int64, p Period) (Summary, error) {
	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.Totals(ctx, ownerID, p)
		if err != nil {
			return err
		}
		summary.Totals = totals
		return nil
	})
	g.Go(func() error {
		byProduct, err := s.repo.SalesByProduct(ctx, ownerID, p)
		if err != nil {
			return err
		}
		summary.ByProduct = byProduct
		return nil
	})
	g.Go(func() error {
		byPartner, err := s.repo.SalesByPartner(ctx, ownerID, p)
		if err != nil {
			return err
		}
		summary.ByPartner = byPartner
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// LowStock lists products at or below their low stock threshold.
func (s *Service) LowStock(ctx context.Context, ownerID int64) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx, ownerID)
}
