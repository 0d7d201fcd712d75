package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/salonsuite/backend/internal/application/billing"
	printingapp "github.com/salonsuite/backend/internal/application/printing"
	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/salonsuite/backend/internal/infrastructure/cache"
	"github.com/salonsuite/backend/internal/infrastructure/config"
	"github.com/salonsuite/backend/internal/infrastructure/event"
	"github.com/salonsuite/backend/internal/infrastructure/logger"
	"github.com/salonsuite/backend/internal/infrastructure/persistence"
	"github.com/salonsuite/backend/internal/infrastructure/printing"
	"github.com/salonsuite/backend/internal/infrastructure/scheduler"
	"github.com/salonsuite/backend/internal/interfaces/http/handler"
	"github.com/salonsuite/backend/internal/interfaces/http/middleware"
	"github.com/salonsuite/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting SalonSuite backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	eventBus.Subscribe(billingapp.NewAuditLogHandler(log))

	// Idempotency store: Redis when reachable, in-memory otherwise
	idemFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idemStore, err := idemFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo,
		billingapp.Defaults{
			TaxRate: decimal.NewFromFloat(cfg.Billing.DefaultTaxRate),
			DueDays: cfg.Billing.DefaultDueDays,
		},
		billingapp.WithEventPublisher(eventBus),
		billingapp.WithIdempotency(idemStore, shared.IdempotencyConfig{
			TTL:     cfg.Billing.IdempotencyTTL,
			Enabled: cfg.Billing.IdempotencyEnabled,
		}),
		billingapp.WithLogger(log),
	)

	// PDF rendering is optional; the rest of the API works without Chrome
	var printService *printingapp.InvoicePrintService
	if cfg.Printing.Enabled {
		renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
			DefaultTimeout: cfg.Printing.RenderTimeout,
			ExecPath:       cfg.Printing.ChromePath,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		defer func() {
			if err := renderer.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		printService = printingapp.NewInvoicePrintService(invoiceRepo, renderer, log)
		log.Info("PDF rendering enabled")
	}

	// Overdue sweep scheduler
	sweepScheduler := scheduler.NewSweepScheduler(invoiceService, cfg.Scheduler, log)
	if err := sweepScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	billingHandler := handler.NewBillingHandler(invoiceService)
	billingRoutes := router.NewDomainGroup("billing", "/billing")
	billingRoutes.POST("/invoices", billingHandler.Create)
	billingRoutes.GET("/invoices", billingHandler.List)
	billingRoutes.GET("/invoices/:id", billingHandler.Get)
	billingRoutes.GET("/invoices/number/:number", billingHandler.GetByNumber)
	billingRoutes.POST("/invoices/:id/send", billingHandler.Send)
	billingRoutes.POST("/invoices/:id/payments", billingHandler.RecordPayment)
	billingRoutes.GET("/invoices/:id/payments", billingHandler.ListPayments)
	billingRoutes.POST("/invoices/:id/cancel", billingHandler.Cancel)
	billingRoutes.GET("/payments", billingHandler.ListAllPayments)
	billingRoutes.GET("/summary", billingHandler.Summary)
	billingRoutes.POST("/sweep", billingHandler.SweepOverdue)
	if printService != nil {
		printHandler := handler.NewInvoicePrintHandler(printService)
		billingRoutes.GET("/invoices/:id/pdf", printHandler.Download)
	}
	r.Register(billingRoutes)

	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown; SIGHUP forces an overdue sweep between ticks
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig != syscall.SIGHUP {
			break
		}
		if err := sweepScheduler.TriggerImmediateSweep(context.Background()); err != nil {
			log.Warn("Immediate sweep failed", zap.Error(err))
		}
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweepScheduler.Stop(ctx); err != nil {
		log.Error("Sweep scheduler shutdown failed", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness of the service and its database
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
