package scimhandler

import (
	"context"
	"errors"
	"net/http"
	"scim/pkg/logger"
	"scim/pkg/serrors"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// ContentType is the media type of every SCIM response body.
const ContentType = "application/scim+json"

// StatusOf maps a semantic error kind to its HTTP status.
func StatusOf(err error) int {
	switch kind := serrors.KindOf(err); {
	case errors.Is(kind, serrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, serrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, serrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, serrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, serrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, serrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(kind, serrors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(kind, serrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError converts err into a status code and client-facing message.
// Server side failures are logged and their details hidden.
func NewError(ctx context.Context, err error) (int, string) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "SCIM request failed", zap.Error(err))
		if status == http.StatusInternalServerError {
			return status, "internal error"
		}
	}

	return status, serrors.MessageOf(err)
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := NewError(ctx, err)
	writeJSON(w, status, func(e *jx.Encoder) { EncodeError(e, msg) })
}
