package repository

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no platform user has the given id.
var ErrUserNotFound = errors.New("user not found")

// User is the cross-tenant identity kept in the platform partition.
type User struct {
	ID       int64  `json:"id"`
	TenantID *int64 `json:"tenantId,omitempty"`
	Email    string `json:"email"`
	IsActive bool   `json:"isActive"`
}

// UserRepository reads platform identities.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}
