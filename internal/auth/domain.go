package auth

import "time"

// User is an authenticated account. OwnerID points at the organization
// root user; for the root itself OwnerID equals ID.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	OwnerID      int64
	CreatedByID  int64
	IsActive     bool
	CreatedAt    time.Time
}
