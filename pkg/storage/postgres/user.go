package postgres

import (
	"context"
	"errors"
	"fmt"
	"scim/pkg/domain"
	"scim/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	usersTable = "users"
)

// uniqueAttributes maps unique indexes of the users table to SCIM attribute names.
var uniqueAttributes = map[string]string{ //nolint: gochecknoglobals
	"users_user_name_key": "userName",
	"users_email_key":     "email",
}

// translateError converts unique violations into *storage.DuplicateError and
// leaves every other error untouched.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &storage.DuplicateError{Attribute: uniqueAttributes[pgErr.ConstraintName]}
	}

	return err
}

// StoreUser inserts a single user and returns the stored row.
func (p *PgSQL) StoreUser(ctx context.Context, user domain.User) (_ *domain.User, err error) {
	ctx, span := p.startSpan(ctx, "StoreUser")
	defer func() { endSpan(span, err) }()

	var row PgUser
	row.FromDomain(user)

	var stored PgUser
	if _, err := p.Builder.Insert(usersTable).
		Rows(row).
		Returning(&PgUser{}).
		Executor().ScanStructContext(ctx, &stored); err != nil {
		return nil, fmt.Errorf("could not store user into pg: %w", translateError(err))
	}

	return stored.ToDomain(), nil
}

// UserByID returns a user by its ID, or nil when it does not exist.
func (p *PgSQL) UserByID(ctx context.Context, id domain.UserID) (_ *domain.User, err error) {
	ctx, span := p.startSpan(ctx, "UserByID")
	defer func() { endSpan(span, err) }()

	var row PgUser
	found, err := p.Builder.From(usersTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch user by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// UpdateUser overwrites the mutable attributes of a user and sets updated_at.
func (p *PgSQL) UpdateUser(ctx context.Context,
	id domain.UserID,
	attrs domain.UserAttributes) (_ *domain.User, err error) {
	ctx, span := p.startSpan(ctx, "UpdateUser")
	defer func() { endSpan(span, err) }()

	var row PgUser
	found, err := p.Builder.Update(usersTable).
		Set(goqu.Record{
			"user_name":  attrs.UserName,
			"first_name": attrs.FirstName,
			"last_name":  attrs.LastName,
			"email":      attrs.Email,
			"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgUser{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update user in pg: %w", translateError(err))
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// DeleteUser hard deletes a user and returns the removed row.
func (p *PgSQL) DeleteUser(ctx context.Context, id domain.UserID) (_ *domain.User, err error) {
	ctx, span := p.startSpan(ctx, "DeleteUser")
	defer func() { endSpan(span, err) }()

	var row PgUser
	found, err := p.Builder.Delete(usersTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgUser{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete user in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// Users returns a page of users ordered by insertion.
func (p *PgSQL) Users(ctx context.Context, offset, limit uint) (_ []domain.User, err error) {
	// goqu treats a zero limit as "no limit"
	if limit == 0 {
		return []domain.User{}, nil
	}

	ctx, span := p.startSpan(ctx, "Users")
	defer func() { endSpan(span, err) }()

	var rows []PgUser
	if err := p.Builder.From(usersTable).
		Order(goqu.I("position").Asc()).
		Offset(offset).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch users from pg: %w", err)
	}

	return pgUsersToDomain(rows), nil
}

// AllUsers returns all users ordered by insertion.
func (p *PgSQL) AllUsers(ctx context.Context) (_ []domain.User, err error) {
	ctx, span := p.startSpan(ctx, "AllUsers")
	defer func() { endSpan(span, err) }()

	var rows []PgUser
	if err := p.Builder.From(usersTable).
		Order(goqu.I("position").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch users from pg: %w", err)
	}

	return pgUsersToDomain(rows), nil
}

// UserCount returns the number of stored users.
func (p *PgSQL) UserCount(ctx context.Context) (_ int64, err error) {
	ctx, span := p.startSpan(ctx, "UserCount")
	defer func() { endSpan(span, err) }()

	count, err := p.Builder.From(usersTable).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not count users in pg: %w", err)
	}

	return count, nil
}
