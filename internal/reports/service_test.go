package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	totals    Totals
	byProduct []ProductSales
	byPartner []PartnerSales
	lowStock  []LowStockItem

	totalsErr    error
	byProductErr error
}

func (f *fakeRepo) Totals(ctx context.Context, ownerID int64, p Period) (Totals, error) {
	return f.totals, f.totalsErr
}

func (f *fakeRepo) SalesByProduct(ctx context.Context, ownerID int64, p Period) ([]ProductSales, error) {
	return f.byProduct, f.byProductErr
}

func (f *fakeRepo) SalesByPartner(ctx context.Context, ownerID int64, p Period) ([]PartnerSales, error) {
	return f.byPartner, nil
}

func (f *fakeRepo) LowStock(ctx context.Context, ownerID int64) ([]LowStockItem, error) {
	return f.lowStock, nil
}

func TestSalesSummaryAssemblesSections(t *testing.T) {
	repo := &fakeRepo{
		totals: Totals{Sales: 3, Revenue: 120, CostOfGoods: 70, Profit: 50},
		byProduct: []ProductSales{
			{ProductID: 100, ProductName: "Widget", QuantitySold: 8, Revenue: 80, Profit: 30},
		},
		byPartner: []PartnerSales{
			{PartnerID: 20, PartnerName: "Acme", Transactions: 2, Revenue: 120},
		},
	}
	svc := NewService(repo)

	summary, err := svc.SalesSummary(context.Background(), 1, Period{})
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.Totals.Sales)
	require.Len(t, summary.ByProduct, 1)
	require.Equal(t, "Widget", summary.ByProduct[0].ProductName)
	require.Len(t, summary.ByPartner, 1)
	require.Equal(t, "Acme", summary.ByPartner[0].PartnerName)
}

func TestSalesSummaryPropagatesSectionError(t *testing.T) {
	boom := errors.New("query failed")
	svc := NewService(&fakeRepo{byProductErr: boom})

	_, err := svc.SalesSummary(context.Background(), 1, Period{})
	require.ErrorIs(t, err, boom)
}

func TestLowStockPassThrough(t *testing.T) {
	repo := &fakeRepo{lowStock: []LowStockItem{
		{ProductID: 100, ProductName: "Widget", OnHand: 1, Threshold: 5},
	}}
	svc := NewService(repo)

	items, err := svc.LowStock(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(1), items[0].OnHand)
}
