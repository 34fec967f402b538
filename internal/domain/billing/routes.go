package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ClinicRoutes returns routes available to authenticated clinic accounts
func (h *Handler) ClinicRoutes(auth, requireClinic func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireClinic)

	r.Get("/balance", h.GetBalance)
	r.Get("/transactions", h.ListTransactions)
	r.Post("/topup", h.InitiateTopUp)

	return r
}

// EventRoutes returns the catalog system's billing trigger. Deployments gate
// this path at the network layer; duplicates are absorbed by idempotency.
func (h *Handler) EventRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/lead-delivered", h.LeadDelivered)

	return r
}

// WebhookRoutes returns the payment processor's callback endpoints.
// Authenticity comes from the signature check, not from a session.
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/payment", h.PaymentWebhook)
	r.Get("/payment/success", h.PaymentSuccess)
	r.Get("/payment/fail", h.PaymentFail)

	return r
}

// AdminRoutes returns elevated billing management routes
func (h *Handler) AdminRoutes(auth func(http.Handler) http.Handler, requireAdmin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(requireAdmin)

	r.Post("/adjust", h.Adjust)
	r.Get("/transactions", h.Search)

	r.Route("/accounts/{clinicID}", func(r chi.Router) {
		r.Post("/reconcile", h.Reconcile)
		r.Post("/deactivate", h.Deactivate)
	})

	return r
}
