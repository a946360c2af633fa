package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stocklane/stocklane/internal/shared"
)

// AuditPort records catalog changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the product catalog.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput carries fields for a new product.
type CreateInput struct {
	SKU                  string
	Name                 string
	Unit                 string
	DefaultPurchasePrice float64
	DefaultSellPrice     float64
	LowStockThreshold    int64
}

// Create adds a product to the organization's catalog. SKU must be unique
// within the organization.
func (s *Service) Create(ctx context.Context, ownerID, actorID int64, in CreateInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	if in.DefaultPurchasePrice < 0 || in.DefaultSellPrice < 0 {
		return nil, fmt.Errorf("%w: prices cannot be negative", shared.ErrInvalid)
	}
	if in.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: low stock threshold cannot be negative", shared.ErrInvalid)
	}
	product := &Product{
		OwnerID:              ownerID,
		SKU:                  strings.TrimSpace(in.SKU),
		Name:                 name,
		Unit:                 in.Unit,
		DefaultPurchasePrice: in.DefaultPurchasePrice,
		DefaultSellPrice:     in.DefaultSellPrice,
		LowStockThreshold:    in.LowStockThreshold,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "product:create", product.ID, product.Name)
	return product, nil
}

// UpdateInput carries partial product changes. Nil means unchanged.
type UpdateInput struct {
	SKU                  *string
	Name                 *string
	Unit                 *string
	DefaultPurchasePrice *float64
	DefaultSellPrice     *float64
	LowStockThreshold    *int64
	IsActive             *bool
}

// Update applies partial changes to a product.
func (s *Service) Update(ctx context.Context, ownerID, actorID, id int64, in UpdateInput) (*Product, error) {
	product, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.SKU != nil {
		product.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", shared.ErrInvalid)
		}
		product.Name = name
	}
	if in.Unit != nil {
		product.Unit = *in.Unit
	}
	if in.DefaultPurchasePrice != nil {
		if *in.DefaultPurchasePrice < 0 {
			return nil, fmt.Errorf("%w: prices cannot be negative", shared.ErrInvalid)
		}
		product.DefaultPurchasePrice = *in.DefaultPurchasePrice
	}
	if in.DefaultSellPrice != nil {
		if *in.DefaultSellPrice < 0 {
			return nil, fmt.Errorf("%w: prices cannot be negative", shared.ErrInvalid)
		}
		product.DefaultSellPrice = *in.DefaultSellPrice
	}
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 {
			return nil, fmt.Errorf("%w: low stock threshold cannot be negative", shared.ErrInvalid)
		}
		product.LowStockThreshold = *in.LowStockThreshold
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "product:update", product.ID, product.Name)
	return product, nil
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// List returns products with aggregate on-hand quantities.
func (s *Service) List(ctx context.Context, ownerID int64, filter ListFilter) ([]ProductWithStock, error) {
	return s.repo.List(ctx, ownerID, filter)
}

// Deactivate retires a product without deleting its history.
func (s *Service) Deactivate(ctx context.Context, ownerID, actorID, id int64) error {
	if err := s.repo.Deactivate(ctx, ownerID, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "product:deactivate", id, "")
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, name string) {
	if s.audit == nil {
		return
	}
	var meta map[string]any
	if name != "" {
		meta = map[string]any{"name": name}
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
