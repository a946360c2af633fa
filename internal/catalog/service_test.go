package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	products map[int64]*Product
	onHand   map[int64]int64
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[int64]*Product), onHand: make(map[int64]int64)}
}

func (f *fakeRepo) Insert(ctx context.Context, p *Product) error {
	for _, existing := range f.products {
		if existing.OwnerID == p.OwnerID && existing.SKU != "" && existing.SKU == p.SKU {
			return shared.ErrDuplicate
		}
	}
	f.nextID++
	p.ID = f.nextID
	p.IsActive = true
	copied := *p
	f.products[p.ID] = &copied
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Product) error {
	stored, ok := f.products[p.ID]
	if !ok || stored.OwnerID != p.OwnerID {
		return shared.ErrNotFound
	}
	copied := *p
	f.products[p.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, ownerID, id int64) (*Product, error) {
	p, ok := f.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID int64, filter ListFilter) ([]ProductWithStock, error) {
	var out []ProductWithStock
	for _, p := range f.products {
		if p.OwnerID != ownerID {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, ProductWithStock{Product: *p, OnHand: f.onHand[p.ID]})
	}
	return out, nil
}

func (f *fakeRepo) Deactivate(ctx context.Context, ownerID, id int64) error {
	p, ok := f.products[id]
	if !ok || p.OwnerID != ownerID {
		return shared.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 2, CreateInput{Name: "  "})
	require.ErrorIs(t, err, shared.ErrInvalid)

	_, err = svc.Create(ctx, 1, 2, CreateInput{Name: "Widget", DefaultSellPrice: -1})
	require.ErrorIs(t, err, shared.ErrInvalid)

	_, err = svc.Create(ctx, 1, 2, CreateInput{Name: "Widget", LowStockThreshold: -5})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestCreateDefaultsUnit(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), 1, 2, CreateInput{Name: "Widget", SKU: " W-1 "})
	require.NoError(t, err)
	require.Equal(t, "pcs", p.Unit)
	require.Equal(t, "W-1", p.SKU)
	require.True(t, p.IsActive)
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Widget", SKU: "W-1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, 2, CreateInput{Name: "Other", SKU: "W-1"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdatePartialChanges(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Widget", DefaultSellPrice: 9})
	require.NoError(t, err)

	price := 12.5
	updated, err := svc.Update(ctx, 1, 2, p.ID, UpdateInput{DefaultSellPrice: &price})
	require.NoError(t, err)
	require.InDelta(t, 12.5, updated.DefaultSellPrice, 1e-9)
	require.Equal(t, "Widget", updated.Name)

	bad := -1.0
	_, err = svc.Update(ctx, 1, 2, p.ID, UpdateInput{DefaultPurchasePrice: &bad})
	require.ErrorIs(t, err, shared.ErrInvalid)

	empty := " "
	_, err = svc.Update(ctx, 1, 2, p.ID, UpdateInput{Name: &empty})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestDeactivateKeepsProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Widget"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, 1, 2, p.ID))

	got, err := svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	active, err := svc.List(ctx, 1, ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestListScopedToOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	mine, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Widget"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 9, 9, CreateInput{Name: "Foreign"})
	require.NoError(t, err)
	repo.onHand[mine.ID] = 7

	out, err := svc.List(ctx, 1, ListFilter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(7), out[0].OnHand)

	_, err = svc.Get(ctx, 1, mine.ID+1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuditTrailOnChanges(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(newFakeRepo(), audit)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Widget"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, 1, 2, p.ID))

	require.Len(t, audit.logs, 2)
	require.Equal(t, "product:create", audit.logs[0].Action)
	require.Equal(t, "product:deactivate", audit.logs[1].Action)
	require.Equal(t, int64(2), audit.logs[0].ActorID)
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}
