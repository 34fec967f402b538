package billing

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinika/clinika-api/internal/domain/ledger"
	"github.com/clinika/clinika-api/internal/domain/pricing"
	"github.com/clinika/clinika-api/internal/domain/promo"
	"github.com/clinika/clinika-api/internal/middleware"
	"github.com/clinika/clinika-api/internal/pkg/gateway"
	"github.com/clinika/clinika-api/internal/pkg/response"
	"github.com/clinika/clinika-api/internal/pkg/validator"
)

// Handler handles billing HTTP requests
type Handler struct {
	service     *Service
	frontendURL string
}

// NewHandler creates a new billing handler
func NewHandler(service *Service, frontendURL string) *Handler {
	return &Handler{service: service, frontendURL: frontendURL}
}

// GetBalance returns the authenticated clinic's balance
// GET /api/v1/billing/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), clinicID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, &BalanceResponse{
		ClinicID:   clinicID,
		Balance:    balance,
		LowBalance: balance < 0,
	})
}

// ListTransactions returns the clinic's ledger history, newest first
// GET /api/v1/billing/transactions?limit=20&offset=0
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	p := ledger.Pagination{
		Limit:  parseQueryInt(r, "limit", 20),
		Offset: parseQueryInt(r, "offset", 0),
	}

	transactions, err := h.service.ListTransactions(r.Context(), clinicID, p)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}
	response.WithMeta(w, items, response.ListMeta(len(items), p.Limit, p.Offset))
}

// InitiateTopUp starts a credit purchase
// POST /api/v1/billing/topup
func (h *Handler) InitiateTopUp(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req TopUpRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.service.InitiateTopUp(r.Context(), clinicID, req.Credits, req.PromoCode)
	if err != nil {
		switch {
		case errors.Is(err, promo.ErrPromoInvalid):
			response.Error(w, http.StatusUnprocessableEntity, "PROMO_INVALID", err.Error())
		case errors.Is(err, ledger.ErrAccountInactive):
			response.Forbidden(w, "account is deactivated")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "invalid credits amount")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// LeadDelivered consumes a lead-delivery event from the catalog system.
// Deliveries are at-least-once; the lead id absorbs duplicates.
// POST /api/v1/events/lead-delivered
func (h *Handler) LeadDelivered(w http.ResponseWriter, r *http.Request) {
	var event LeadDeliveredEvent
	if err := response.DecodeJSON(r.Body, &event); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(event); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.service.DeductForLead(r.Context(), event.ClinicID, event.LeadID, event.PackageValue)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidValue) {
			response.BadRequest(w, "invalid package value")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// PaymentWebhook handles the processor's confirmation callback
// POST /api/v1/webhooks/payment
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	callback, err := gateway.ParseCallback(r.Body)
	if err != nil {
		response.BadRequest(w, "invalid callback payload")
		return
	}

	result, err := h.service.ConfirmTopUp(r.Context(), callback.OrderID, callback.PaymentID, callback.Signature)
	if err != nil {
		switch {
		case errors.Is(err, ErrSignatureMismatch):
			response.Error(w, http.StatusBadRequest, "SIGNATURE_MISMATCH", "payment not verified")
		case errors.Is(err, ErrOrderNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrOrderClosed):
			response.Conflict(w, "order is no longer confirmable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// PaymentSuccess is the browser return URL after a successful checkout.
// The authoritative credit happens via the webhook, not here.
// GET /api/v1/webhooks/payment/success
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/billing?payment=success", http.StatusFound)
}

// PaymentFail is the browser return URL after a cancelled checkout
// GET /api/v1/webhooks/payment/fail
func (h *Handler) PaymentFail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/billing?payment=fail", http.StatusFound)
}

// Adjust writes a manual admin credit or debit
// POST /api/v1/admin/billing/adjust
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetClinicID(r.Context())

	var req AdjustRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.service.AdjustBalance(r.Context(), req.ClinicID, req.Amount, req.Reason, adminID)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be non-zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// Reconcile recomputes a clinic's balance from the ledger
// POST /api/v1/admin/billing/accounts/{clinicID}/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		response.BadRequest(w, "invalid clinic id")
		return
	}

	balance, err := h.service.Reconcile(r.Context(), clinicID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, &BalanceResponse{
		ClinicID:   clinicID,
		Balance:    balance,
		LowBalance: balance < 0,
	})
}

// Deactivate disables top-ups for a clinic account
// POST /api/v1/admin/billing/accounts/{clinicID}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		response.BadRequest(w, "invalid clinic id")
		return
	}

	if err := h.service.DeactivateAccount(r.Context(), clinicID); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			response.NotFound(w, "account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// Search is the cross-clinic admin transaction view
// GET /api/v1/admin/billing/transactions
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	filters := ledger.SearchFilters{
		Limit:  parseQueryInt(r, "limit", 50),
		Offset: parseQueryInt(r, "offset", 0),
	}

	if v := r.URL.Query().Get("clinic_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "invalid clinic_id filter")
			return
		}
		filters.ClinicID = &id
	}
	if v := r.URL.Query().Get("lead_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "invalid lead_id filter")
			return
		}
		filters.LeadID = &id
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind := ledger.Kind(v)
		filters.Kind = &kind
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ledger.Status(v)
		filters.Status = &status
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid from filter")
			return
		}
		filters.DateFrom = &ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid to filter")
			return
		}
		filters.DateTo = &ts
	}

	transactions, err := h.service.SearchTransactions(r.Context(), filters)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}
	response.WithMeta(w, items, response.ListMeta(len(items), filters.Limit, filters.Offset))
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
