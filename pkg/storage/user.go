package storage

import (
	"context"
	"scim/pkg/domain"
)

// UserStorage defines CRUD and paging operations on provisioned users.
// Implementations must enforce uniqueness of user names and emails and report
// violations as *DuplicateError. Lookups of missing users return a nil user
// and a nil error.
type UserStorage interface {
	// StoreUser inserts a user with a caller generated ID and returns the stored
	// row as it exists in the backend (including generated fields).
	StoreUser(ctx context.Context, user domain.User) (*domain.User, error)
	// UserByID fetches a user by ID. Returns nil when not found.
	UserByID(ctx context.Context, ID domain.UserID) (*domain.User, error)
	// UpdateUser replaces all mutable attributes of the user and returns the
	// updated row, or nil when the user does not exist. The ID never changes.
	UpdateUser(ctx context.Context, ID domain.UserID, attrs domain.UserAttributes) (*domain.User, error)
	// DeleteUser removes the user permanently and returns the deleted row, or
	// nil when it was not found.
	DeleteUser(ctx context.Context, ID domain.UserID) (*domain.User, error)
	// Users returns at most limit users in insertion order, skipping the first
	// offset users.
	Users(ctx context.Context, offset, limit uint) ([]domain.User, error)
	// AllUsers returns every user in insertion order.
	AllUsers(ctx context.Context) ([]domain.User, error)
	// UserCount returns the total number of stored users.
	UserCount(ctx context.Context) (int64, error)
}
