package provisioning

import (
	"context"
	"scim/pkg/domain"
)

// Page is one page of a user listing.
type Page struct {
	// Users holds the users of the page in insertion order.
	Users []domain.User
	// TotalResults is the number of users in the store, regardless of paging.
	TotalResults int64
	// StartIndex is the effective 1-based index of the first user of the page.
	StartIndex int
}

//go:generate mockgen -package mockprovisioning -source=interface.go -destination=mock/mockprovisioning.go *
type Provisioner interface {
	List(ctx context.Context, startIndex, count int) (Page, error)
	Create(ctx context.Context, attrs domain.UserAttributes) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Replace(ctx context.Context, userID string, attrs domain.UserAttributes) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	All(ctx context.Context) ([]domain.User, error)
	Ready(ctx context.Context) error
}
