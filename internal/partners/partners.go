// Package partners manages the customers and suppliers transactions are
// posted against.
package partners

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

// Kind classifies a partner.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
	KindBoth     Kind = "both"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindSupplier, KindBoth:
		return true
	}
	return false
}

// CanSell reports whether sales may be posted against this partner.
func (k Kind) CanSell() bool { return k == KindCustomer || k == KindBoth }

// CanBuy reports whether purchases may be posted against this partner.
func (k Kind) CanBuy() bool { return k == KindSupplier || k == KindBoth }

// Partner is a customer, supplier or both.
type Partner struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists partners.
type Repository interface {
	Insert(ctx context.Context, p *Partner) error
	Update(ctx context.Context, p *Partner) error
	GetByID(ctx context.Context, ownerID, id int64) (*Partner, error)
	List(ctx context.Context, ownerID int64, kind Kind) ([]Partner, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, p *Partner) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO partners (owner_id, name, kind, email, phone, address, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,NOW()) RETURNING id, created_at`,
		p.OwnerID, p.Name, p.Kind, p.Email, p.Phone, p.Address).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	p.IsActive = true
	return nil
}

func (r *repository) Update(ctx context.Context, p *Partner) error {
	tag, err := r.pool.Exec(ctx, `UPDATE partners SET name=$1, kind=$2, email=$3, phone=$4, address=$5, is_active=$6
WHERE id=$7 AND owner_id=$8`,
		p.Name, p.Kind, p.Email, p.Phone, p.Address, p.IsActive, p.ID, p.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, ownerID, id int64) (*Partner, error) {
	var p Partner
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, name, kind, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), is_active, created_at
FROM partners WHERE id=$1 AND owner_id=$2`, id, ownerID).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.Kind, &p.Email, &p.Phone, &p.Address, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, ownerID int64, kind Kind) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, name, kind, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), is_active, created_at
FROM partners
WHERE owner_id=$1 AND ($2 = '' OR kind = $2 OR kind = 'both')
ORDER BY name ASC, id ASC`, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Kind, &p.Email, &p.Phone, &p.Address, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AuditPort records partner changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages partners.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput carries fields for a new partner.
type CreateInput struct {
	Name    string
	Kind    Kind
	Email   string
	Phone   string
	Address string
}

// Create adds a partner.
func (s *Service) Create(ctx context.Context, ownerID, actorID int64, in CreateInput) (*Partner, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	kind := in.Kind
	if kind == "" {
		kind = KindCustomer
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind must be customer, supplier or both", shared.ErrInvalid)
	}
	p := &Partner{
		OwnerID: ownerID,
		Name:    name,
		Kind:    kind,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "partner:create", p.ID)
	return p, nil
}

// UpdateInput carries partial partner changes. Nil means unchanged.
type UpdateInput struct {
	Name     *string
	Kind     *Kind
	Email    *string
	Phone    *string
	Address  *string
	IsActive *bool
}

// Update applies partial changes to a partner.
func (s *Service) Update(ctx context.Context, ownerID, actorID, id int64, in UpdateInput) (*Partner, error) {
	p, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", shared.ErrInvalid)
		}
		p.Name = name
	}
	if in.Kind != nil {
		if !in.Kind.Valid() {
			return nil, fmt.Errorf("%w: kind must be customer, supplier or both", shared.ErrInvalid)
		}
		p.Kind = *in.Kind
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.Phone != nil {
		p.Phone = *in.Phone
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "partner:update", p.ID)
	return p, nil
}

// Get fetches one partner.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Partner, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// List returns partners, optionally narrowed by kind. Partners of kind
// "both" always match.
func (s *Service) List(ctx context.Context, ownerID int64, kind Kind) ([]Partner, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: kind must be customer, supplier or both", shared.ErrInvalid)
	}
	return s.repo.List(ctx, ownerID, kind)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "partner",
		EntityID: strconv.FormatInt(id, 10),
	})
}
