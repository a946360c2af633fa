package partners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	partners map[int64]*Partner
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{partners: make(map[int64]*Partner)}
}

func (f *fakeRepo) Insert(ctx context.Context, p *Partner) error {
	f.nextID++
	p.ID = f.nextID
	p.IsActive = true
	copied := *p
	f.partners[p.ID] = &copied
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Partner) error {
	stored, ok := f.partners[p.ID]
	if !ok || stored.OwnerID != p.OwnerID {
		return shared.ErrNotFound
	}
	copied := *p
	f.partners[p.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, ownerID, id int64) (*Partner, error) {
	p, ok := f.partners[id]
	if !ok || p.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID int64, kind Kind) ([]Partner, error) {
	var out []Partner
	for _, p := range f.partners {
		if p.OwnerID != ownerID {
			continue
		}
		if kind != "" && p.Kind != kind && p.Kind != KindBoth {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func TestKindCapabilities(t *testing.T) {
	require.True(t, KindCustomer.CanSell())
	require.False(t, KindCustomer.CanBuy())
	require.True(t, KindSupplier.CanBuy())
	require.False(t, KindSupplier.CanSell())
	require.True(t, KindBoth.CanSell())
	require.True(t, KindBoth.CanBuy())
	require.False(t, Kind("vendor").Valid())
}

func TestCreateDefaultsToCustomer(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), 1, 2, CreateInput{Name: "Acme"})
	require.NoError(t, err)
	require.Equal(t, KindCustomer, p.Kind)
	require.True(t, p.IsActive)
}

func TestCreateRejectsBadKind(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), 1, 2, CreateInput{Name: "Acme", Kind: "vendor"})
	require.ErrorIs(t, err, shared.ErrInvalid)

	_, err = svc.Create(context.Background(), 1, 2, CreateInput{Name: "  "})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestListFilterIncludesBoth(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Buyer", Kind: KindCustomer})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, 2, CreateInput{Name: "Mill", Kind: KindSupplier})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, 2, CreateInput{Name: "Trader", Kind: KindBoth})
	require.NoError(t, err)

	customers, err := svc.List(ctx, 1, KindCustomer)
	require.NoError(t, err)
	require.Len(t, customers, 2)

	suppliers, err := svc.List(ctx, 1, KindSupplier)
	require.NoError(t, err)
	require.Len(t, suppliers, 2)

	all, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = svc.List(ctx, 1, "vendor")
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestUpdateScopedToOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 2, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	name := "Acme Trading"
	_, err = svc.Update(ctx, 99, 2, p.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrNotFound)

	updated, err := svc.Update(ctx, 1, 2, p.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Acme Trading", updated.Name)
}
