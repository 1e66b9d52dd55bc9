package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID uniquely identifies a provisioned user.
// It is a thin wrapper around uuid.UUID to provide type safety at the domain layer.
type UserID uuid.UUID

// NewUserID generates a random (version 4) user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses the canonical string form of a user ID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err //nolint: wrapcheck
	}

	return UserID(id), nil
}

// String returns the canonical 36 character representation.
func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the ID has not been assigned yet.
func (id UserID) IsZero() bool {
	return id == UserID{}
}

// UserAttributes are the mutable attributes of a user. A replace operation
// overwrites all of them at once.
type UserAttributes struct {
	// UserName is the unique login name supplied by the identity provider.
	UserName string
	// FirstName maps to the SCIM name.givenName attribute.
	FirstName string
	// LastName maps to the SCIM name.familyName attribute.
	LastName string
	// Email is the primary (first) email address. It is unique across users.
	Email string
}

// User is a provisioned identity.
type User struct {
	// ID is assigned once at creation and never changes.
	ID UserID

	UserAttributes

	// CreatedAt is the time the user was provisioned.
	CreatedAt time.Time
	// UpdatedAt is the time of the last replace; zero when never replaced.
	UpdatedAt time.Time
}
