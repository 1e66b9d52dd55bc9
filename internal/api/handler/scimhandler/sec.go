package scimhandler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"scim/internal/config"
	"scim/pkg/serrors"
	"strings"
)

const bearerPrefix = "Bearer "

// SecHandlerOptions configures bearer token authentication.
type SecHandlerOptions struct {
	// Token is the shared secret identity providers must present.
	Token string
}

func NewSecHandlerOptions(cfg *config.Config) *SecHandlerOptions {
	return &SecHandlerOptions{Token: cfg.SCIM.Token}
}

// SecHandler authenticates SCIM requests against a static shared secret.
type SecHandler struct {
	token []byte
}

// NewSecHandler refuses to build a handler for an empty, short or placeholder secret.
func NewSecHandler(opts *SecHandlerOptions) (*SecHandler, error) {
	if opts == nil {
		return nil, config.ErrTokenMissing
	}
	if err := config.ValidateToken(opts.Token); err != nil {
		return nil, fmt.Errorf("invalid scim token: %w", err)
	}

	return &SecHandler{token: []byte(opts.Token)}, nil
}

// HandleBearerAuth checks the raw Authorization header value.
func (s *SecHandler) HandleBearerAuth(ctx context.Context, header string) (context.Context, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return ctx, serrors.With(serrors.ErrUnauthorized, "Invalid or missing token")
	}
	if subtle.ConstantTimeCompare([]byte(token), s.token) != 1 {
		return ctx, serrors.With(serrors.ErrUnauthorized, "Invalid token")
	}

	return ctx, nil
}

// Require rejects unauthenticated requests before they reach next.
func (s *SecHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := s.HandleBearerAuth(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(ctx, w, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
