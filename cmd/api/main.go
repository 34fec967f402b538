package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/clinika/clinika-api/internal/config"
	"github.com/clinika/clinika-api/internal/domain/billing"
	"github.com/clinika/clinika-api/internal/domain/dispute"
	"github.com/clinika/clinika-api/internal/domain/ledger"
	"github.com/clinika/clinika-api/internal/domain/pricing"
	"github.com/clinika/clinika-api/internal/domain/promo"
	"github.com/clinika/clinika-api/internal/middleware"
	"github.com/clinika/clinika-api/internal/pkg/database"
	"github.com/clinika/clinika-api/internal/pkg/gateway"
	"github.com/clinika/clinika-api/internal/pkg/jwt"
	pkgresponse "github.com/clinika/clinika-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Clinika billing API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Pricing ----------
	table := pricing.DefaultTable()
	if cfg.PricingBands != "" {
		table, err = pricing.ParseBands(cfg.PricingBands)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid PRICING_BANDS")
		}
	}

	unitPrice, err := decimal.NewFromString(cfg.CreditUnitPrice)
	if err != nil || !unitPrice.IsPositive() {
		log.Fatal().Str("value", cfg.CreditUnitPrice).Msg("Invalid CREDIT_UNIT_PRICE")
	}

	// ---------- Gateway ----------
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.GatewayBaseURL,
		MerchantID:  cfg.GatewayMerchantID,
		Secret:      cfg.GatewaySecret,
		CallbackURL: cfg.BackendURL + "/api/v1/webhooks/payment",
		TestMode:    cfg.GatewayTestMode,
		Timeout:     time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
	})

	// ---------- Repositories ----------
	ledgerStore := ledger.NewStore(db)
	promoRepo := promo.NewRepository(db)
	disputeRepo := dispute.NewRepository(db)

	// ---------- Services ----------
	promoService := promo.NewService(promoRepo)
	billingService := billing.NewService(db, ledgerStore, table, promoService, gatewayClient, redis, billing.Options{
		UnitPrice: unitPrice,
		Currency:  cfg.Currency,
		CacheTTL:  cfg.BalanceCacheTTL,
	})
	disputeService := dispute.NewService(db, disputeRepo, ledgerStore, billingService)

	// ---------- Workers ----------
	sweepWorker := billing.NewWorker(ledgerStore, cfg.TopUpExpiry, cfg.SweepInterval)
	sweepWorker.Start()
	defer sweepWorker.Stop()

	// ---------- Handlers ----------
	billingHandler := billing.NewHandler(billingService, cfg.FrontendURL)
	promoHandler := promo.NewHandler(promoService)
	disputeHandler := dispute.NewHandler(disputeService)

	authMiddleware := middleware.Auth(jwtService)
	requireClinic := middleware.RequireClinic()
	requireAdmin := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

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

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
