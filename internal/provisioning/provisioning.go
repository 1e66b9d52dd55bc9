// Package provisioning implements the user lifecycle operations behind the
// SCIM endpoints. It validates input, generates identifiers and translates
// storage failures into semantic errors (see pkg/serrors).
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"scim/pkg/domain"
	"scim/pkg/serrors"
	"scim/pkg/storage"
	"strings"
)

const (
	// DefaultStartIndex is used when a listing does not specify startIndex.
	DefaultStartIndex = 1
	// DefaultCount is used when a listing does not specify count.
	DefaultCount = 100
)

// provisioner is the concrete implementation of the Provisioner interface.
type provisioner struct {
	storage storage.Storage
}

// New creates a Provisioner backed by the given storage.
func New(storage storage.Storage) Provisioner {
	return &provisioner{storage: storage}
}

// ValidateAttributes ensures every mutable attribute carries a value. The
// returned error names the missing attribute by its SCIM path.
func ValidateAttributes(attrs domain.UserAttributes) error {
	required := []struct {
		path  string
		value string
	}{
		{"userName", attrs.UserName},
		{"name.givenName", attrs.FirstName},
		{"name.familyName", attrs.LastName},
		{"emails[0].value", attrs.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return serrors.With(serrors.ErrBadRequest, "missing required attribute: %s", r.path)
		}
	}

	return nil
}

// conflictError converts a storage uniqueness violation into a CONFLICT error.
func conflictError(err error) error {
	var dup *storage.DuplicateError
	if !errors.As(err, &dup) {
		return nil
	}
	if dup.Attribute == "" {
		return serrors.Wrap(serrors.ErrConflict, err, "userName or email is already taken")
	}

	return serrors.Wrap(serrors.ErrConflict, err, "%s is already taken", dup.Attribute)
}

// parseID maps malformed identifiers to NOT_FOUND, since no user can have them.
func parseID(userID string) (domain.UserID, error) {
	id, err := domain.ParseUserID(userID)
	if err != nil {
		return domain.UserID{}, serrors.Wrap(serrors.ErrNotFound, err, "user %q not found", userID)
	}

	return id, nil
}

func notFound(userID string) error {
	return serrors.With(serrors.ErrNotFound, "user %q not found", userID)
}

// List returns a page of users. startIndex is 1-based; values below 1 are
// treated as 1 and negative counts as 0. There is no upper bound on count.
func (p *provisioner) List(ctx context.Context, startIndex, count int) (Page, error) {
	if startIndex < 1 {
		startIndex = 1
	}
	if count < 0 {
		count = 0
	}

	start := uint(startIndex - 1) //nolint: gosec
	users, err := p.storage.Users(ctx, start, uint(count)) //nolint: gosec
	if err != nil {
		return Page{}, fmt.Errorf("could not list users: %w", err)
	}

	total, err := p.storage.UserCount(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("could not count users: %w", err)
	}

	return Page{
		Users:        users,
		TotalResults: total,
		StartIndex:   startIndex,
	}, nil
}

// Create provisions a new user with a freshly generated ID.
func (p *provisioner) Create(ctx context.Context, attrs domain.UserAttributes) (*domain.User, error) {
	if err := ValidateAttributes(attrs); err != nil {
		return nil, err
	}

	user, err := p.storage.StoreUser(ctx, domain.User{
		ID:             domain.NewUserID(),
		UserAttributes: attrs,
	})
	if err != nil {
		if cErr := conflictError(err); cErr != nil {
			return nil, cErr
		}

		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return user, nil
}

// Get returns the user with the given ID.
func (p *provisioner) Get(ctx context.Context, userID string) (*domain.User, error) {
	id, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	user, err := p.storage.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	if user == nil {
		return nil, notFound(userID)
	}

	return user, nil
}

// Replace overwrites all mutable attributes of an existing user. The ID is
// never changed.
func (p *provisioner) Replace(ctx context.Context,
	userID string,
	attrs domain.UserAttributes) (*domain.User, error) {
	id, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateAttributes(attrs); err != nil {
		return nil, err
	}

	var updated *domain.User
	if err := p.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		existing, err := tx.UserByID(ctx, id)
		if err != nil {
			return fmt.Errorf("could not get user: %w", err)
		}
		if existing == nil {
			return notFound(userID)
		}

		updated, err = tx.UpdateUser(ctx, id, attrs)
		if err != nil {
			if cErr := conflictError(err); cErr != nil {
				return cErr
			}

			return fmt.Errorf("could not update user: %w", err)
		}
		if updated == nil {
			return notFound(userID)
		}

		return nil
	}); err != nil {
		return nil, err //nolint: wrapcheck
	}

	return updated, nil
}

// Delete permanently removes the user.
func (p *provisioner) Delete(ctx context.Context, userID string) error {
	id, err := parseID(userID)
	if err != nil {
		return err
	}

	deleted, err := p.storage.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	if deleted == nil {
		return notFound(userID)
	}

	return nil
}

// All returns every user in insertion order.
func (p *provisioner) All(ctx context.Context) ([]domain.User, error) {
	users, err := p.storage.AllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get users: %w", err)
	}

	return users, nil
}

// Ready reports whether the backing store is reachable.
func (p *provisioner) Ready(ctx context.Context) error {
	if err := p.storage.Ping(ctx); err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "storage is unavailable")
	}

	return nil
}
