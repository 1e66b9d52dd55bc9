package main

import (
	"encoding/hex"
	"testing"

	"scim/internal/config"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := generateToken(32)
	require.NoError(t, err)
	require.Len(t, a, 64)
	_, err = hex.DecodeString(a)
	require.NoError(t, err)
	require.NoError(t, config.ValidateToken(a))

	b, err := generateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = generateToken(4)
	require.ErrorIs(t, err, config.ErrTokenInsecure)
}
