package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stocklane/stocklane/internal/auth"
	"github.com/stocklane/stocklane/internal/shared"
)

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages sub-accounts under an organization owner.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create adds a new account under ownerID, created by actorID.
func (s *Service) Create(ctx context.Context, ownerID, actorID int64, in CreateInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: email and name are required", shared.ErrInvalid)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalid)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Email:       email,
		Name:        in.Name,
		Role:        in.Role,
		OwnerID:     ownerID,
		CreatedByID: actorID,
	}
	if user.Role == "" {
		user.Role = "staff"
	}
	if err := s.repo.Insert(ctx, user, hash); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user:create",
			Entity:   "user",
			EntityID: strconv.FormatInt(user.ID, 10),
			Meta:     map[string]any{"email": user.Email},
		})
	}
	return user, nil
}

// Update applies partial changes to an account within the owner scope.
func (s *Service) Update(ctx context.Context, ownerID, actorID, id int64, in UpdateInput) (*User, error) {
	user, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		// The organization root cannot deactivate itself.
		if user.ID == ownerID && !*in.IsActive {
			return nil, fmt.Errorf("%w: cannot deactivate the organization owner", shared.ErrInvalid)
		}
		user.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user:update",
			Entity:   "user",
			EntityID: strconv.FormatInt(user.ID, 10),
		})
	}
	return user, nil
}

// Get fetches one account within the owner scope.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*User, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// List returns the organization's accounts.
func (s *Service) List(ctx context.Context, ownerID int64) ([]User, error) {
	return s.repo.List(ctx, ownerID)
}
