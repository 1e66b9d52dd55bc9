// Package webhandler renders the human readable index page.
package webhandler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"scim/internal/provisioning"
	"scim/pkg/domain"
	"scim/pkg/logger"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html")) //nolint: gochecknoglobals

type Deps struct {
	Provisioner provisioning.Provisioner
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

type indexData struct {
	Users []domain.User
}

// Index lists every user. The page is rendered into a buffer first so a
// failure never leaves a half written response.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.deps.Provisioner.All(ctx)
	if err != nil {
		logger.Error(ctx, "could not list users for index page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, indexData{Users: users}); err != nil {
		logger.Error(ctx, "could not render index page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
