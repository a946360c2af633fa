package warehouses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	warehouses map[int64]*Warehouse
	stock      map[int64]int64
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{warehouses: make(map[int64]*Warehouse), stock: make(map[int64]int64)}
}

func (f *fakeRepo) Insert(ctx context.Context, wh *Warehouse) error {
	f.nextID++
	wh.ID = f.nextID
	copied := *wh
	f.warehouses[wh.ID] = &copied
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, wh *Warehouse) error {
	stored, ok := f.warehouses[wh.ID]
	if !ok || stored.OwnerID != wh.OwnerID {
		return shared.ErrNotFound
	}
	copied := *wh
	f.warehouses[wh.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, ownerID, id int64) (*Warehouse, error) {
	wh, ok := f.warehouses[id]
	if !ok || wh.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	copied := *wh
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID int64) ([]Warehouse, error) {
	var out []Warehouse
	for _, wh := range f.warehouses {
		if wh.OwnerID == ownerID {
			out = append(out, *wh)
		}
	}
	return out, nil
}

func (f *fakeRepo) Delete(ctx context.Context, ownerID, id int64) error {
	wh, ok := f.warehouses[id]
	if !ok || wh.OwnerID != ownerID {
		return shared.ErrNotFound
	}
	delete(f.warehouses, id)
	return nil
}

func (f *fakeRepo) StockTotal(ctx context.Context, id int64) (int64, error) {
	return f.stock[id], nil
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), 1, 2, "   ", "")
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	wh, err := svc.Create(context.Background(), 1, 2, "Main", "12 Dock St")
	require.NoError(t, err)
	require.NotZero(t, wh.ID)

	got, err := svc.Get(context.Background(), 1, wh.ID)
	require.NoError(t, err)
	require.Equal(t, "Main", got.Name)

	_, err = svc.Get(context.Background(), 99, wh.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteBlockedWhenStockRemains(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	wh, err := svc.Create(context.Background(), 1, 2, "Main", "")
	require.NoError(t, err)
	repo.stock[wh.ID] = 3

	err = svc.Delete(context.Background(), 1, 2, wh.ID)
	require.ErrorIs(t, err, ErrWarehouseNotEmpty)
	require.Contains(t, repo.warehouses, wh.ID)
}

func TestDeleteEmptyWarehouse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	wh, err := svc.Create(context.Background(), 1, 2, "Main", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, 2, wh.ID))
	require.NotContains(t, repo.warehouses, wh.ID)
}

func TestUpdateRename(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	wh, err := svc.Create(context.Background(), 1, 2, "Main", "")
	require.NoError(t, err)

	name := "Overflow"
	got, err := svc.Update(context.Background(), 1, 2, wh.ID, &name, nil)
	require.NoError(t, err)
	require.Equal(t, "Overflow", got.Name)

	empty := " "
	_, err = svc.Update(context.Background(), 1, 2, wh.ID, &empty, nil)
	require.ErrorIs(t, err, shared.ErrInvalid)
}
