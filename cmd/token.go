package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"scim/internal/config"
	"scim/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// generateToken returns n random bytes, hex encoded.
func generateToken(n int) (string, error) {
	if n*2 < config.MinTokenLength {
		return "", fmt.Errorf("%w: %d bytes is too short", config.ErrTokenInsecure, n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// tokenCommand constructs the 'token' subcommand that prints a random secret
// suitable for scim.token / SCIM_TOKEN.
func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generates a random SCIM bearer secret",
		Run: func(cmd *cobra.Command, args []string) {
			n, _ := cmd.Flags().GetInt("bytes")

			token, err := generateToken(n)
			if err != nil {
				logger.Fatal(context.Background(), "could not generate token", zap.Error(err))
			}

			fmt.Println(token) //nolint: forbidigo
		},
	}

	cmd.Flags().Int("bytes", 32, "Number of random bytes (the token is twice as long)")

	return cmd
}
