package provisioning_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"scim/internal/provisioning"
	"scim/pkg/domain"
	"scim/pkg/serrors"
	"scim/pkg/storage"
	"scim/pkg/storage/memory"
	mockstorage "scim/pkg/storage/mock"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func jdoe() domain.UserAttributes {
	return domain.UserAttributes{
		UserName:  "jdoe",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
}

func newTestProvisioner(t *testing.T) (*gomock.Controller, *mockstorage.MockStorage, provisioning.Provisioner) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)

	return ctrl, st, provisioning.New(st)
}

// helper to wire Storage.WithTx to execute callback with a MockAllStorage.
func expectWithTx(
	t *testing.T,
	ctrl *gomock.Controller,
	m *mockstorage.MockStorage,
	fn func(tx *mockstorage.MockAllStorage)) {
	t.Helper()

	m.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb func(storage.AllStorage) error) error {
			tx := mockstorage.NewMockAllStorage(ctrl)
			if fn != nil {
				fn(tx)
			}

			return cb(tx)
		},
	)
}

func TestValidateAttributes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.UserAttributes)
		path   string
	}{
		{name: "user name", mutate: func(a *domain.UserAttributes) { a.UserName = "" }, path: "userName"},
		{name: "given name", mutate: func(a *domain.UserAttributes) { a.FirstName = " " }, path: "name.givenName"},
		{name: "family name", mutate: func(a *domain.UserAttributes) { a.LastName = "" }, path: "name.familyName"},
		{name: "email", mutate: func(a *domain.UserAttributes) { a.Email = "" }, path: "emails[0].value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := jdoe()
			tt.mutate(&attrs)

			err := provisioning.ValidateAttributes(attrs)
			require.ErrorIs(t, err, serrors.ErrBadRequest)
			require.Contains(t, err.Error(), tt.path)
		})
	}

	require.NoError(t, provisioning.ValidateAttributes(jdoe()))
}

func TestProvisioner_Create_GeneratesID(t *testing.T) {
	_, st, p := newTestProvisioner(t)

	st.EXPECT().StoreUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u domain.User) (*domain.User, error) {
			require.False(t, u.ID.IsZero(), "id must be generated before storing")
			require.Equal(t, jdoe(), u.UserAttributes)

			return &u, nil
		})

	u, err := p.Create(context.Background(), jdoe())
	require.NoError(t, err)
	require.False(t, u.ID.IsZero())
}

func TestProvisioner_Create_InvalidNeverTouchesStorage(t *testing.T) {
	_, _, p := newTestProvisioner(t)

	attrs := jdoe()
	attrs.Email = ""
	_, err := p.Create(context.Background(), attrs)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestProvisioner_Create_Conflict(t *testing.T) {
	_, st, p := newTestProvisioner(t)

	st.EXPECT().StoreUser(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("could not store user into pg: %w", &storage.DuplicateError{Attribute: "userName"}))

	_, err := p.Create(context.Background(), jdoe())
	require.ErrorIs(t, err, serrors.ErrConflict)
	require.Equal(t, "userName is already taken", serrors.MessageOf(err))
}

func TestProvisioner_Create_StorageFailure(t *testing.T) {
	_, st, p := newTestProvisioner(t)

	st.EXPECT().StoreUser(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := p.Create(context.Background(), jdoe())
	require.Error(t, err)
	require.Equal(t, serrors.ErrInternal, serrors.KindOf(err))
}

func TestProvisioner_Get(t *testing.T) {
	_, st, p := newTestProvisioner(t)
	ctx := context.Background()
	id := domain.NewUserID()

	t.Run("found", func(t *testing.T) {
		st.EXPECT().UserByID(ctx, id).Return(&domain.User{ID: id, UserAttributes: jdoe()}, nil)

		u, err := p.Get(ctx, id.String())
		require.NoError(t, err)
		require.Equal(t, id, u.ID)
	})

	t.Run("missing", func(t *testing.T) {
		st.EXPECT().UserByID(ctx, id).Return(nil, nil)

		_, err := p.Get(ctx, id.String())
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := p.Get(ctx, "not-a-uuid")
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})
}

func TestProvisioner_Replace(t *testing.T) {
	ctx := context.Background()
	id := domain.NewUserID()
	attrs := jdoe()

	t.Run("replaces inside a transaction", func(t *testing.T) {
		ctrl, st, p := newTestProvisioner(t)
		expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
			tx.EXPECT().UserByID(ctx, id).Return(&domain.User{ID: id}, nil)
			tx.EXPECT().UpdateUser(ctx, id, attrs).Return(&domain.User{ID: id, UserAttributes: attrs}, nil)
		})

		u, err := p.Replace(ctx, id.String(), attrs)
		require.NoError(t, err)
		require.Equal(t, id, u.ID)
		require.Equal(t, attrs, u.UserAttributes)
	})

	t.Run("missing user", func(t *testing.T) {
		ctrl, st, p := newTestProvisioner(t)
		expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
			tx.EXPECT().UserByID(ctx, id).Return(nil, nil)
		})

		_, err := p.Replace(ctx, id.String(), attrs)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("conflict", func(t *testing.T) {
		ctrl, st, p := newTestProvisioner(t)
		expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
			tx.EXPECT().UserByID(ctx, id).Return(&domain.User{ID: id}, nil)
			tx.EXPECT().UpdateUser(ctx, id, attrs).Return(nil, &storage.DuplicateError{Attribute: "email"})
		})

		_, err := p.Replace(ctx, id.String(), attrs)
		require.ErrorIs(t, err, serrors.ErrConflict)
		require.Equal(t, "email is already taken", serrors.MessageOf(err))
	})

	t.Run("invalid attributes", func(t *testing.T) {
		_, _, p := newTestProvisioner(t)
		bad := attrs
		bad.UserName = ""

		_, err := p.Replace(ctx, id.String(), bad)
		require.ErrorIs(t, err, serrors.ErrBadRequest)
	})
}

func TestProvisioner_Delete(t *testing.T) {
	_, st, p := newTestProvisioner(t)
	ctx := context.Background()
	id := domain.NewUserID()

	st.EXPECT().DeleteUser(ctx, id).Return(&domain.User{ID: id}, nil)
	require.NoError(t, p.Delete(ctx, id.String()))

	st.EXPECT().DeleteUser(ctx, id).Return(nil, nil)
	require.ErrorIs(t, p.Delete(ctx, id.String()), serrors.ErrNotFound)
}

func TestProvisioner_List_Normalization(t *testing.T) {
	tests := []struct {
		name       string
		startIndex int
		count      int
		offset     uint
		limit      uint
		wantStart  int
	}{
		{name: "defaults", startIndex: 1, count: 100, offset: 0, limit: 100, wantStart: 1},
		{name: "third item", startIndex: 3, count: 2, offset: 2, limit: 2, wantStart: 3},
		{name: "zero start index", startIndex: 0, count: 5, offset: 0, limit: 5, wantStart: 1},
		{name: "negative count", startIndex: 2, count: -4, offset: 1, limit: 0, wantStart: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st, p := newTestProvisioner(t)
			ctx := context.Background()

			st.EXPECT().Users(ctx, tt.offset, tt.limit).Return([]domain.User{}, nil)
			st.EXPECT().UserCount(ctx).Return(int64(7), nil)

			page, err := p.List(ctx, tt.startIndex, tt.count)
			require.NoError(t, err)
			require.Equal(t, tt.wantStart, page.StartIndex)
			require.EqualValues(t, 7, page.TotalResults)
		})
	}
}

func TestProvisioner_Ready(t *testing.T) {
	_, st, p := newTestProvisioner(t)
	ctx := context.Background()

	st.EXPECT().Ping(ctx).Return(nil)
	require.NoError(t, p.Ready(ctx))

	st.EXPECT().Ping(ctx).Return(errors.New("down"))
	require.ErrorIs(t, p.Ready(ctx), serrors.ErrUnavailable)
}

// The following tests exercise the full lifecycle against the memory store.

func TestProvisioner_Lifecycle(t *testing.T) {
	p := provisioning.New(memory.New())
	ctx := context.Background()

	created, err := p.Create(ctx, jdoe())
	require.NoError(t, err)

	got, err := p.Get(ctx, created.ID.String())
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, jdoe(), got.UserAttributes)

	replacement := domain.UserAttributes{
		UserName:  "jsmith",
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane.smith@example.com",
	}
	updated, err := p.Replace(ctx, created.ID.String(), replacement)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, replacement, updated.UserAttributes)

	got, err = p.Get(ctx, created.ID.String())
	require.NoError(t, err)
	require.Equal(t, replacement, got.UserAttributes)

	require.NoError(t, p.Delete(ctx, created.ID.String()))
	_, err = p.Get(ctx, created.ID.String())
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestProvisioner_DuplicateUserName(t *testing.T) {
	p := provisioning.New(memory.New())
	ctx := context.Background()

	_, err := p.Create(ctx, jdoe())
	require.NoError(t, err)

	second := jdoe()
	second.Email = "other@example.com"
	_, err = p.Create(ctx, second)
	require.ErrorIs(t, err, serrors.ErrConflict)

	all, err := p.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestProvisioner_ListPages(t *testing.T) {
	p := provisioning.New(memory.New())
	ctx := context.Background()

	for i := range 5 {
		_, err := p.Create(ctx, domain.UserAttributes{
			UserName:  fmt.Sprintf("user%d", i),
			FirstName: "First",
			LastName:  "Last",
			Email:     fmt.Sprintf("user%d@example.com", i),
		})
		require.NoError(t, err)
	}

	page, err := p.List(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	require.Equal(t, "user2", page.Users[0].UserName)
	require.Equal(t, "user3", page.Users[1].UserName)
	require.EqualValues(t, 5, page.TotalResults)
	require.Equal(t, 3, page.StartIndex)

	page, err = p.List(ctx, 10, 100)
	require.NoError(t, err)
	require.Empty(t, page.Users)
	require.EqualValues(t, 5, page.TotalResults)
}
