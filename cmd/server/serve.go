package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rental-backend/internal/auth"
	"rental-backend/internal/cache"
	"rental-backend/internal/handlers"
	"rental-backend/internal/health"
	h "rental-backend/internal/http"
	"rental-backend/internal/middleware"
	"rental-backend/internal/realtime"
	"rental-backend/internal/repositories"
	"rental-backend/internal/services"
	"rental-backend/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port int
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), port, skipMigrations)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "server port (overrides config)")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
	return cmd
}

func serve(ctx context.Context, port int, skipMigrations bool) error {
	cfg, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if port != 0 {
		cfg.Server.Port = port
	}

	if !skipMigrations {
		if err := migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Redis is optional, every cached read falls back to PostgreSQL
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (serving uncached)", err)
	}
	defer cache.Close()

	exports, err := storage.NewExportStore(ctx, cfg.Exports)
	if err != nil {
		return fmt.Errorf("failed to init export storage: %w", err)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	totpRepo := repositories.NewTOTPRepository(pool)
	apartmentRepo := repositories.NewApartmentRepository(pool)
	unitRepo := repositories.NewUnitRepository(pool)
	tenantRepo := repositories.NewTenantRepository(pool)
	rentLogRepo := repositories.NewRentLogRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	auditRepo := repositories.NewAuditLogRepository(pool)
	reportRepo := repositories.NewReportRepository(pool)
	onlineTransactionRepo := repositories.NewOnlineTransactionRepository(pool)

	// Initialize services
	totpService := services.NewTOTPService(userRepo, totpRepo)
	userService := services.NewUserService(userRepo, jwtManager, totpService)
	apartmentService := services.NewApartmentService(apartmentRepo, auditRepo, hub)
	billingService := services.NewBillingService(pool, unitRepo, tenantRepo, rentLogRepo, paymentRepo, auditRepo, hub)
	unitService := services.NewUnitService(pool, unitRepo, tenantRepo, rentLogRepo, paymentRepo, auditRepo, hub)
	reportService := services.NewReportService(reportRepo, paymentRepo, exports)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.WebhookSecret,
		cfg.Razorpay.Currency,
		onlineTransactionRepo,
		billingService,
	)
	auditService := services.NewAuditService(auditRepo)

	handlers.SetExposeInternalErrors(cfg.IsDevelopment())

	router := h.NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewTOTPHandler(totpService),
		handlers.NewApartmentHandler(apartmentService),
		handlers.NewUnitHandler(unitService, billingService),
		handlers.NewReportHandler(reportService),
		handlers.NewRazorpayHandler(razorpayService),
		handlers.NewAuditHandler(auditService),
		handlers.NewHealthHandler(health.NewHealthChecker(pool)),
		hub.ServeWS(userService.OwnerFromToken),
		middleware.NewAuthMiddleware(jwtManager, userRepo),
	)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.RequestLogger(corsMiddleware(router)))

	go pruneTOTPAttempts(ctx, totpService)
	if cfg.Billing.ScheduleEnabled {
		go runBillingSchedule(ctx, billingService, time.Duration(cfg.Billing.ScheduleIntervalMinutes)*time.Minute)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on %s (env: %s)", srv.Addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// pruneTOTPAttempts keeps the 2FA rate-limit table small.
func pruneTOTPAttempts(ctx context.Context, totp *services.TOTPService) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := totp.PruneAttempts(ctx)
			if err != nil {
				log.Printf("[TOTP] Failed to prune attempts: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[TOTP] Pruned %d old attempt(s)", n)
			}
		}
	}
}

// runBillingSchedule runs the rent log jobs at startup and then on every
// tick, so generation and overdue events reach connected dashboards.
func runBillingSchedule(ctx context.Context, billing *services.BillingService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := billing.RunScheduledPass(ctx); err != nil {
			log.Printf("[Billing] Scheduled pass failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
