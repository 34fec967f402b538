package dispute

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinika/clinika-api/internal/middleware"
	"github.com/clinika/clinika-api/internal/pkg/response"
	"github.com/clinika/clinika-api/internal/pkg/validator"
)

// Handler handles dispute HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates a new dispute handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// File opens a dispute against a lead deduction
// POST /api/v1/disputes
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req FileRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	d, err := h.service.File(r.Context(), clinicID, req.LeadID, Reason(req.Reason), req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrDebitNotFound):
			response.NotFound(w, "no deduction found for lead")
		case errors.Is(err, ErrDuplicateDispute):
			response.Conflict(w, "an open dispute already exists for this deduction")
		case errors.Is(err, ErrDisputeResolved):
			response.Conflict(w, "a dispute for this deduction was already resolved")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, d.ToResponse())
}

// List returns the clinic's disputes
// GET /api/v1/disputes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	if clinicID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := parseQueryInt(r, "limit", 20)
	offset := parseQueryInt(r, "offset", 0)

	disputes, err := h.service.ListByClinic(r.Context(), clinicID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, toListItems(disputes), response.ListMeta(len(disputes), limit, offset))
}

// Get returns one dispute
// GET /api/v1/disputes/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	clinicID := middleware.GetClinicID(r.Context())
	isAdmin := middleware.GetRole(r.Context()) == "admin"

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid dispute id")
		return
	}

	d, err := h.service.Get(r.Context(), id, clinicID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, ErrDisputeNotFound):
			response.NotFound(w, "dispute not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "dispute belongs to another clinic")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, d.ToResponse())
}

// Pending returns the admin adjudication queue
// GET /api/v1/admin/disputes
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	disputes, err := h.service.ListPending(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, toListItems(disputes), response.ListMeta(len(disputes), limit, offset))
}

// Resolve decides a pending dispute
// POST /api/v1/admin/disputes/{id}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetClinicID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid dispute id")
		return
	}

	var req ResolveRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	d, err := h.service.Resolve(r.Context(), id, req.Decision == "approved", req.AdminNotes, req.RefundAmount, adminID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDisputeNotFound):
			response.NotFound(w, "dispute not found")
		case errors.Is(err, ErrDisputeResolved):
			response.Conflict(w, "dispute already resolved")
		case errors.Is(err, ErrInvalidRefund):
			response.BadRequest(w, "refund amount exceeds the original deduction")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, d.ToResponse())
}

func toListItems(disputes []Dispute) []*Response {
	items := make([]*Response, 0, len(disputes))
	for i := range disputes {
		items = append(items, disputes[i].ToResponse())
	}
	return items
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
