package postgres

import (
	"database/sql"
	"scim/pkg/domain"
	"time"

	"github.com/google/uuid"
)

type PgUser struct {
	ID       uuid.UUID `db:"id"`
	Position int64     `db:"position" goqu:"skipinsert"`

	UserName  string `db:"user_name"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgUser) ToDomain() *domain.User {
	return &domain.User{
		ID: domain.UserID(p.ID),
		UserAttributes: domain.UserAttributes{
			UserName:  p.UserName,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
	}
}

func (p *PgUser) FromDomain(user domain.User) {
	*p = PgUser{
		ID:        uuid.UUID(user.ID),
		UserName:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  user.UpdatedAt,
			Valid: !user.UpdatedAt.IsZero(),
		},
	}
}

func pgUsersToDomain(users []PgUser) []domain.User {
	out := make([]domain.User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].ToDomain())
	}

	return out
}
