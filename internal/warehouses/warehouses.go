// Package warehouses manages storage locations. A warehouse with remaining
// stock cannot be deleted.
package warehouses

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Warehouse is a storage location.
type Warehouse struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrWarehouseNotEmpty blocks deleting a warehouse that still holds stock.
var ErrWarehouseNotEmpty = errors.New("warehouse still holds stock")

// Repository persists warehouses.
type Repository interface {
	Insert(ctx context.Context, wh *Warehouse) error
	Update(ctx context.Context, wh *Warehouse) error
	GetByID(ctx context.Context, ownerID, id int64) (*Warehouse, error)
	List(ctx context.Context, ownerID int64) ([]Warehouse, error)
	Delete(ctx context.Context, ownerID, id int64) error
	StockTotal(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, wh *Warehouse) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (owner_id, name, address, created_at)
VALUES ($1,$2,$3,NOW()) RETURNING id, created_at`, wh.OwnerID, wh.Name, wh.Address).
		Scan(&wh.ID, &wh.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *repository) Update(ctx context.Context, wh *Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET name=$1, address=$2 WHERE id=$3 AND owner_id=$4`,
		wh.Name, wh.Address, wh.ID, wh.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, ownerID, id int64) (*Warehouse, error) {
	var wh Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, name, COALESCE(address,''), created_at
FROM warehouses WHERE id=$1 AND owner_id=$2`, id, ownerID).
		Scan(&wh.ID, &wh.OwnerID, &wh.Name, &wh.Address, &wh.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, name, COALESCE(address,''), created_at
FROM warehouses WHERE owner_id=$1 ORDER BY name ASC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		var wh Warehouse
		if err := rows.Scan(&wh.ID, &wh.OwnerID, &wh.Name, &wh.Address, &wh.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) StockTotal(ctx context.Context, id int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity),0) FROM stocks WHERE warehouse_id=$1`, id).Scan(&total)
	return total, err
}

// Service manages warehouses.
type Service struct {
	repo  Repository
	audit AuditPort
}

// AuditPort records warehouse changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create adds a warehouse.
func (s *Service) Create(ctx context.Context, ownerID, actorID int64, name, address string) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	wh := &Warehouse{OwnerID: ownerID, Name: name, Address: address}
	if err := s.repo.Insert(ctx, wh); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "warehouse:create", wh.ID)
	return wh, nil
}

// Update renames or re-addresses a warehouse.
func (s *Service) Update(ctx context.Context, ownerID, actorID, id int64, name, address *string) (*Warehouse, error) {
	wh, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", shared.ErrInvalid)
		}
		wh.Name = trimmed
	}
	if address != nil {
		wh.Address = *address
	}
	if err := s.repo.Update(ctx, wh); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "warehouse:update", wh.ID)
	return wh, nil
}

// Get fetches one warehouse.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Warehouse, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// List returns the organization's warehouses.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Warehouse, error) {
	return s.repo.List(ctx, ownerID)
}

// Delete removes an empty warehouse. Deleting one that still holds stock
// returns ErrWarehouseNotEmpty.
func (s *Service) Delete(ctx context.Context, ownerID, actorID, id int64) error {
	if _, err := s.repo.GetByID(ctx, ownerID, id); err != nil {
		return err
	}
	total, err := s.repo.StockTotal(ctx, id)
	if err != nil {
		return err
	}
	if total != 0 {
		return fmt.Errorf("%w: %d units remain", ErrWarehouseNotEmpty, total)
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "warehouse:delete", id)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "warehouse",
		EntityID: strconv.FormatInt(id, 10),
	})
}
