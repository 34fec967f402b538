package promo

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinika/clinika-api/internal/middleware"
	"github.com/clinika/clinika-api/internal/pkg/response"
	"github.com/clinika/clinika-api/internal/pkg/validator"
)

// Handler handles promo HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates a new promo handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Preview validates a code against a charge amount without redeeming it
// POST /api/v1/promo-codes/validate
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ValidateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		response.BadRequest(w, "invalid amount")
		return
	}

	app, err := h.service.Validate(r.Context(), req.Code, clinicID, amount)
	if errors.Is(err, ErrPromoInvalid) {
		response.Error(w, http.StatusUnprocessableEntity, "PROMO_INVALID", err.Error())
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, app.ToResponse())
}

// Create registers a new promo code
// POST /api/v1/admin/promo-codes
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCodeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	code, err := h.service.CreateCode(r.Context(), &req)
	if errors.Is(err, ErrCodeExists) {
		response.Conflict(w, "promo code already exists")
		return
	}
	if err != nil {
		response.BadRequest(w, "invalid promo code definition")
		return
	}

	response.Created(w, code.ToResponse())
}

// List returns all promo codes
// GET /api/v1/admin/promo-codes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListCodes(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*CodeResponse, 0, len(codes))
	for i := range codes {
		items = append(items, codes[i].ToResponse())
	}
	response.WithMeta(w, items, response.ListMeta(len(items), 0, 0))
}

// Get returns one promo code with its redemption history
// GET /api/v1/admin/promo-codes/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid promo code id")
		return
	}

	code, err := h.service.GetCode(r.Context(), id)
	if errors.Is(err, ErrPromoNotFound) {
		response.NotFound(w, "promo code not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	usages, err := h.service.Usages(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	usageItems := make([]*UsageResponse, 0, len(usages))
	for i := range usages {
		usageItems = append(usageItems, usages[i].ToResponse())
	}

	response.OK(w, map[string]interface{}{
		"code":   code.ToResponse(),
		"usages": usageItems,
	})
}

// Deactivate disables a promo code
// POST /api/v1/admin/promo-codes/{id}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid promo code id")
		return
	}

	if err := h.service.DeactivateCode(r.Context(), id); err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			response.NotFound(w, "promo code not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}
