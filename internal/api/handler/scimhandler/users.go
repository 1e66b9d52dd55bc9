package scimhandler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"scim/internal/provisioning"
	"scim/pkg/domain"
	"scim/pkg/serrors"
	"strconv"

	"github.com/go-faster/jx"
)

// intParam reads an optional integer query parameter. A parameter that is
// present but not an integer, including an empty value, is rejected.
func intParam(q url.Values, name string, def int) (int, error) {
	if !q.Has(name) {
		return def, nil
	}
	v, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return 0, serrors.Wrap(serrors.ErrBadRequest, err, "%s must be an integer", name)
	}

	return v, nil
}

func (h *Handler) readAttributes(w http.ResponseWriter, r *http.Request) (domain.UserAttributes, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.UserAttributes{}, serrors.Wrap(serrors.ErrBadRequest, err,
				"request body exceeds %d bytes", tooLarge.Limit)
		}

		return domain.UserAttributes{}, serrors.Wrap(serrors.ErrBadRequest, err, "could not read request body")
	}

	return DecodeUserRequest(body)
}

func writeUser(w http.ResponseWriter, status int, u *domain.User) {
	writeJSON(w, status, func(e *jx.Encoder) { EncodeUser(e, u) })
}

// ListUsers handles GET /scim/v2/Users?startIndex=&count=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	startIndex, err := intParam(q, "startIndex", provisioning.DefaultStartIndex)
	if err != nil {
		writeError(ctx, w, err)

		return
	}
	count, err := intParam(q, "count", provisioning.DefaultCount)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	page, err := h.deps.Provisioner.List(ctx, startIndex, count)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { EncodeListResponse(e, page) })
}

// CreateUser handles POST /scim/v2/Users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	attrs, err := h.readAttributes(w, r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	u, err := h.deps.Provisioner.Create(ctx, attrs)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeUser(w, http.StatusCreated, u)
}

// GetUser handles GET /scim/v2/Users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.deps.Provisioner.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeUser(w, http.StatusOK, u)
}

// ReplaceUser handles PUT /scim/v2/Users/{id}.
func (h *Handler) ReplaceUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	attrs, err := h.readAttributes(w, r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	u, err := h.deps.Provisioner.Replace(ctx, r.PathValue("id"), attrs)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeUser(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /scim/v2/Users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.deps.Provisioner.Delete(ctx, r.PathValue("id")); err != nil {
		writeError(ctx, w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
