package storage_test

import (
	"fmt"
	"testing"

	"scim/pkg/storage"

	"github.com/stretchr/testify/require"
)

func TestDuplicateError(t *testing.T) {
	err := fmt.Errorf("could not store user: %w", &storage.DuplicateError{Attribute: "email"})

	require.ErrorIs(t, err, storage.ErrDuplicate)

	var dup *storage.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "email", dup.Attribute)
	require.Equal(t, "duplicate value: email", dup.Error())
	require.Equal(t, "duplicate value", (&storage.DuplicateError{}).Error())
}
