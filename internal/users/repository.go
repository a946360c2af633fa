package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository persists accounts scoped to an organization owner.
type Repository interface {
	Insert(ctx context.Context, u *User, passwordHash string) error
	Update(ctx context.Context, u *User) error
	GetByID(ctx context.Context, ownerID, id int64) (*User, error)
	List(ctx context.Context, ownerID int64) ([]User, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, u *User, passwordHash string) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, owner_id, created_by, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,NOW())
RETURNING id, created_at`, u.Email, u.Name, passwordHash, u.Role, u.OwnerID, u.CreatedByID).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	u.IsActive = true
	return nil
}

func (r *repository) Update(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name=$1, role=$2, is_active=$3
WHERE id=$4 AND owner_id=$5`, u.Name, u.Role, u.IsActive, u.ID, u.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, ownerID, id int64) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, owner_id, created_by, is_active, created_at
FROM users WHERE id=$1 AND owner_id=$2`, id, ownerID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.OwnerID, &u.CreatedByID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, owner_id, created_by, is_active, created_at
FROM users WHERE owner_id=$1 ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.OwnerID, &u.CreatedByID, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
