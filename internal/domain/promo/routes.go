package promo

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ClinicRoutes returns routes available to authenticated clinic accounts
func (h *Handler) ClinicRoutes(auth, requireClinic func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireClinic)

	r.Post("/validate", h.Preview)

	return r
}

// AdminRoutes returns promo code management routes
func (h *Handler) AdminRoutes(auth func(http.Handler) http.Handler, requireAdmin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireAdmin)

	r.Post("/", h.Create)
	r.Get("/", h.List)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/deactivate", h.Deactivate)
	})

	return r
}
