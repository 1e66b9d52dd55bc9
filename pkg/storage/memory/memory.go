// Package memory provides a process-local storage.Storage implementation.
// It enforces the same uniqueness rules as the PostgreSQL backend and is used
// for development and tests. Data does not survive restarts.
package memory

import (
	"context"
	"scim/pkg/domain"
	"scim/pkg/storage"
	"sync"
	"time"
)

// Ensure Memory implements the root storage handle.
var _ storage.Storage = (*Memory)(nil)

// state holds users in insertion order. Slices are never shared between
// snapshots, so a copy can be mutated freely inside a transaction.
type state struct {
	users []domain.User
}

func (s *state) clone() *state {
	users := make([]domain.User, len(s.users))
	copy(users, s.users)

	return &state{users: users}
}

func (s *state) index(id domain.UserID) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}

	return -1
}

// conflict returns the attribute that collides with another user, skipping
// the user at position skip.
func (s *state) conflict(attrs domain.UserAttributes, skip int) string {
	for i := range s.users {
		if i == skip {
			continue
		}
		switch {
		case s.users[i].UserName == attrs.UserName:
			return "userName"
		case s.users[i].Email == attrs.Email:
			return "email"
		}
	}

	return ""
}

func (s *state) store(user domain.User, now time.Time) (*domain.User, error) {
	if s.index(user.ID) >= 0 {
		return nil, &storage.DuplicateError{Attribute: "id"}
	}
	if attr := s.conflict(user.UserAttributes, -1); attr != "" {
		return nil, &storage.DuplicateError{Attribute: attr}
	}

	user.CreatedAt = now
	user.UpdatedAt = time.Time{}
	s.users = append(s.users, user)

	return &user, nil
}

func (s *state) update(id domain.UserID, attrs domain.UserAttributes, now time.Time) (*domain.User, error) {
	i := s.index(id)
	if i < 0 {
		return nil, nil
	}
	if attr := s.conflict(attrs, i); attr != "" {
		return nil, &storage.DuplicateError{Attribute: attr}
	}

	s.users[i].UserAttributes = attrs
	s.users[i].UpdatedAt = now
	u := s.users[i]

	return &u, nil
}

func (s *state) remove(id domain.UserID) *domain.User {
	i := s.index(id)
	if i < 0 {
		return nil
	}
	u := s.users[i]
	s.users = append(s.users[:i:i], s.users[i+1:]...)

	return &u
}

func (s *state) page(offset, limit uint) []domain.User {
	n := uint(len(s.users))
	if offset >= n || limit == 0 {
		return []domain.User{}
	}
	end := n
	if limit < n-offset {
		end = offset + limit
	}
	out := make([]domain.User, end-offset)
	copy(out, s.users[offset:end])

	return out
}

// Memory is a mutex guarded, in-process user store.
type Memory struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// New creates an empty store.
func New() *Memory {
	return &Memory{
		state: &state{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// StoreUser inserts the user, failing with *storage.DuplicateError on collisions.
func (m *Memory) StoreUser(_ context.Context, user domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.store(user, m.now())
}

// UserByID returns a copy of the user or nil.
func (m *Memory) UserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.state.index(id); i >= 0 {
		u := m.state.users[i]

		return &u, nil
	}

	return nil, nil
}

// UpdateUser replaces the mutable attributes of the user.
func (m *Memory) UpdateUser(_ context.Context, id domain.UserID, attrs domain.UserAttributes) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.update(id, attrs, m.now())
}

// DeleteUser removes the user and returns it, or nil when missing.
func (m *Memory) DeleteUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.remove(id), nil
}

// Users returns a page of users in insertion order.
func (m *Memory) Users(_ context.Context, offset, limit uint) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.page(offset, limit), nil
}

// AllUsers returns all users in insertion order.
func (m *Memory) AllUsers(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.clone().users, nil
}

// UserCount returns the number of users.
func (m *Memory) UserCount(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.state.users)), nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Begin locks the store for writing and returns a transaction working on a
// snapshot. The lock is held until Commit or Rollback.
func (m *Memory) Begin(_ context.Context) (storage.TxStorage, error) {
	m.mu.Lock()

	return &Tx{parent: m, state: m.state.clone()}, nil
}

// WithTx runs cb inside a transaction and commits when it returns nil.
func (m *Memory) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

// Tx is a transaction over a private snapshot of the store. Changes become
// visible to other callers on Commit.
type Tx struct {
	parent *Memory
	state  *state
	done   bool
}

// Ensure Tx implements the transactional storage handle.
var _ storage.TxStorage = (*Tx)(nil)

func (t *Tx) StoreUser(_ context.Context, user domain.User) (*domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	return t.state.store(user, t.parent.now())
}

func (t *Tx) UserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}
	if i := t.state.index(id); i >= 0 {
		u := t.state.users[i]

		return &u, nil
	}

	return nil, nil
}

func (t *Tx) UpdateUser(_ context.Context, id domain.UserID, attrs domain.UserAttributes) (*domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	return t.state.update(id, attrs, t.parent.now())
}

func (t *Tx) DeleteUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	return t.state.remove(id), nil
}

func (t *Tx) Users(_ context.Context, offset, limit uint) ([]domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	return t.state.page(offset, limit), nil
}

func (t *Tx) AllUsers(_ context.Context) ([]domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	return t.state.clone().users, nil
}

func (t *Tx) UserCount(_ context.Context) (int64, error) {
	if t.done {
		return 0, storage.ErrTxDone
	}

	return int64(len(t.state.users)), nil
}

// Commit publishes the snapshot and releases the write lock.
func (t *Tx) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	t.parent.state = t.state
	t.parent.mu.Unlock()

	return nil
}

// Rollback discards the snapshot and releases the write lock.
func (t *Tx) Rollback() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	t.parent.mu.Unlock()

	return nil
}
