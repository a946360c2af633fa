// Package settings stores per-organization preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/stocklane/stocklane/internal/shared"
)

// Settings holds organization-level preferences. Currency is display only;
// amounts are never converted.
type Settings struct {
	OwnerID        int64     `json:"-"`
	Currency       string    `json:"currency"`
	Locale         string    `json:"locale"`
	LowStockAlerts bool      `json:"low_stock_alerts"`
	NotifyEmail    string    `json:"notify_email"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func defaults(ownerID int64) Settings {
	return Settings{
		OwnerID:        ownerID,
		Currency:       "USD",
		Locale:         "en",
		LowStockAlerts: true,
	}
}

// Repository persists settings rows keyed by owner.
type Repository interface {
	Get(ctx context.Context, ownerID int64) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, ownerID int64) (*Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `SELECT owner_id, currency, locale, low_stock_alerts, COALESCE(notify_email,''), updated_at
FROM org_settings WHERE owner_id=$1`, ownerID).
		Scan(&s.OwnerID, &s.Currency, &s.Locale, &s.LowStockAlerts, &s.NotifyEmail, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Upsert(ctx context.Context, s *Settings) error {
	return r.pool.QueryRow(ctx, `INSERT INTO org_settings (owner_id, currency, locale, low_stock_alerts, notify_email, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (owner_id) DO UPDATE SET
currency=EXCLUDED.currency, locale=EXCLUDED.locale, low_stock_alerts=EXCLUDED.low_stock_alerts,
notify_email=EXCLUDED.notify_email, updated_at=NOW()
RETURNING updated_at`, s.OwnerID, s.Currency, s.Locale, s.LowStockAlerts, s.NotifyEmail).
		Scan(&s.UpdatedAt)
}

// Service manages settings with validation of currency and locale codes.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the organization settings, falling back to defaults when none
// were saved yet.
func (s *Service) Get(ctx context.Context, ownerID int64) (Settings, error) {
	stored, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return defaults(ownerID), nil
		}
		return Settings{}, err
	}
	return *stored, nil
}

// UpdateInput carries partial settings changes. Nil means unchanged.
type UpdateInput struct {
	Currency       *string
	Locale         *string
	LowStockAlerts *bool
	NotifyEmail    *string
}

// Update validates and persists settings changes. Currency must be a valid
// ISO 4217 code, locale a valid BCP 47 tag.
func (s *Service) Update(ctx context.Context, ownerID int64, in UpdateInput) (Settings, error) {
	current, err := s.Get(ctx, ownerID)
	if err != nil {
		return Settings{}, err
	}
	if in.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.Currency))
		unit, err := currency.ParseISO(code)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: unknown currency code %q", shared.ErrInvalid, code)
		}
		current.Currency = unit.String()
	}
	if in.Locale != nil {
		tag, err := language.Parse(strings.TrimSpace(*in.Locale))
		if err != nil {
			return Settings{}, fmt.Errorf("%w: unknown locale %q", shared.ErrInvalid, *in.Locale)
		}
		current.Locale = tag.String()
	}
	if in.LowStockAlerts != nil {
		current.LowStockAlerts = *in.LowStockAlerts
	}
	if in.NotifyEmail != nil {
		current.NotifyEmail = strings.TrimSpace(*in.NotifyEmail)
	}
	if err := s.repo.Upsert(ctx, &current); err != nil {
		return Settings{}, err
	}
	return current, nil
}
