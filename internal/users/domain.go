package users

import "time"

// User is a managed account within an organization.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	OwnerID     int64     `json:"owner_id"`
	CreatedByID int64     `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// UpdateInput carries mutable account fields. Nil means unchanged.
type UpdateInput struct {
	Name     *string
	Role     *string
	IsActive *bool
}
