package storage

import (
	"errors"
	"fmt"
)

// Common errors returned by storage implementations.
var (
	// ErrAlreadyInTx is returned when an operation requiring a non-transactional
	// context is attempted while already inside a transaction.
	ErrAlreadyInTx = errors.New("already in tx")
	// ErrNotInTx is returned when a transaction-specific operation is attempted
	// while not currently inside a transaction.
	ErrNotInTx = errors.New("not in tx")
	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("tx already committed or rolled back")
	// ErrDuplicate is matched by every *DuplicateError.
	ErrDuplicate = errors.New("duplicate value")
)

// DuplicateError reports a write that would violate a uniqueness constraint.
type DuplicateError struct {
	// Attribute is the SCIM attribute whose value collided, e.g. "userName".
	// It is empty when the backend could not tell.
	Attribute string
}

func (e *DuplicateError) Error() string {
	if e.Attribute == "" {
		return ErrDuplicate.Error()
	}

	return fmt.Sprintf("%s: %s", ErrDuplicate, e.Attribute)
}

// Unwrap makes errors.Is(err, ErrDuplicate) match.
func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
