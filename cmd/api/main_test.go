package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinika/clinika-api/internal/domain/billing"
	"github.com/clinika/clinika-api/internal/domain/dispute"
	"github.com/clinika/clinika-api/internal/domain/promo"
	"github.com/clinika/clinika-api/internal/middleware"
	"github.com/clinika/clinika-api/internal/pkg/jwt"
)

// buildTestRouter wires the route topology the way main does, with services
// that never reach the database. Only middleware-level behavior is exercised.
func buildTestRouter(t *testing.T, jwtService *jwt.Service) chi.Router {
	t.Helper()

	billingService := billing.NewService(nil, nil, nil, nil, nil, nil, billing.Options{
		UnitPrice: decimal.NewFromInt(100),
		Currency:  "KZT",
	})
	billingHandler := billing.NewHandler(billingService, "http://localhost:3000")
	promoHandler := promo.NewHandler(promo.NewService(nil))
	disputeHandler := dispute.NewHandler(dispute.NewService(nil, nil, nil, billingService))

	authMiddleware := middleware.Auth(jwtService)
	requireClinic := middleware.RequireClinic()
	requireAdmin := middleware.RequireAdmin()

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/billing", billingHandler.ClinicRoutes(authMiddleware, requireClinic))
		r.Mount("/disputes", disputeHandler.ClinicRoutes(authMiddleware, requireClinic))
		r.Mount("/promo-codes", promoHandler.ClinicRoutes(authMiddleware, requireClinic))

		r.Mount("/events", billingHandler.EventRoutes())
		r.Mount("/webhooks", billingHandler.WebhookRoutes())

		r.Route("/admin", func(r chi.Router) {
			r.Mount("/billing", billingHandler.AdminRoutes(authMiddleware, requireAdmin))
			r.Mount("/disputes", disputeHandler.AdminRoutes(authMiddleware, requireAdmin))
			r.Mount("/promo-codes", promoHandler.AdminRoutes(authMiddleware, requireAdmin))
		})
	})
	return r
}

func TestRouteMounting(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	router := buildTestRouter(t, jwtService)

	t.Run("clinic routes reject missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/balance", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("admin routes reject clinic token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(uuid.New(), "clinic")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/adjust", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("clinic routes reject admin token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(uuid.New(), "admin")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("webhook rejects malformed payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(`not json`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("browser return stub redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/payment/success", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rr.Code)
		}
	})
}
