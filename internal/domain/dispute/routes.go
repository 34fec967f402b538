package dispute

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ClinicRoutes returns routes available to authenticated clinic accounts
func (h *Handler) ClinicRoutes(auth, requireClinic func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireClinic)

	r.Post("/", h.File)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	return r
}

// AdminRoutes returns adjudication routes
func (h *Handler) AdminRoutes(auth func(http.Handler) http.Handler, requireAdmin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireAdmin)

	r.Get("/", h.Pending)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/resolve", h.Resolve)
	})

	return r
}
