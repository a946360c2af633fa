package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	stored map[int64]Settings
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: make(map[int64]Settings)}
}

func (f *fakeRepo) Get(ctx context.Context, ownerID int64) (*Settings, error) {
	s, ok := f.stored[ownerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, s *Settings) error {
	f.stored[s.OwnerID] = *s
	return nil
}

func strptr(s string) *string { return &s }

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	svc := NewService(newFakeRepo())

	got, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "USD", got.Currency)
	require.Equal(t, "en", got.Locale)
	require.True(t, got.LowStockAlerts)
}

func TestUpdateValidCurrencyAndLocale(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	got, err := svc.Update(context.Background(), 1, UpdateInput{
		Currency: strptr("eur"),
		Locale:   strptr("de-DE"),
	})
	require.NoError(t, err)
	require.Equal(t, "EUR", got.Currency)
	require.Equal(t, "de-DE", got.Locale)
	require.Contains(t, repo.stored, int64(1))
}

func TestUpdateRejectsUnknownCurrency(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Update(context.Background(), 1, UpdateInput{Currency: strptr("XXQ")})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestUpdateRejectsUnknownLocale(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Update(context.Background(), 1, UpdateInput{Locale: strptr("not a locale!!")})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestUpdatePreservesUnchangedFields(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), 1, UpdateInput{Currency: strptr("IDR")})
	require.NoError(t, err)

	alerts := false
	got, err := svc.Update(context.Background(), 1, UpdateInput{LowStockAlerts: &alerts})
	require.NoError(t, err)
	require.Equal(t, "IDR", got.Currency)
	require.False(t, got.LowStockAlerts)
}
