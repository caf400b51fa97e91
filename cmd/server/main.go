package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/config"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/database"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/handlers"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/services"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/pkg/notify"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Trip Seat Reservation Engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	tripRepo := database.NewTripRepository(db)
	reservationRepo := database.NewReservationRepository(db)
	paymentAuditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize notifier
	var notifier notify.Notifier
	if cfg.Notify.Mode == "http" && cfg.Notify.EndpointURL != "" {
		logger.Infof("Notifications via HTTP endpoint: %s", cfg.Notify.EndpointURL)
		notifier = notify.NewHTTPNotifier(cfg.Notify.EndpointURL, cfg.Notify.APIKey)
	} else {
		logger.Info("Notifications in log mode (no external dispatch)")
		notifier = notify.NewLogNotifier(logger)
	}

	// Initialize payment gateway
	gateway := services.NewHTTPPaymentGateway(&cfg.Payment, logger)
	if !gateway.IsConfigured() {
		logger.Warn("Payment gateway credentials missing; PayNow bookings will fail")
	}

	// Initialize services
	logger.Info("Initializing services...")
	catalog := services.NewSeatCatalog()
	ledgerService := services.NewLedgerService(reservationRepo, tripRepo, catalog, cfg.Booking, logger)
	inventoryService := services.NewInventoryService(reservationRepo, tripRepo, catalog)
	settlementService := services.NewSettlementService(ledgerService, paymentAuditRepo, notifier, logger)
	bookingService := services.NewBookingService(ledgerService, settlementService, gateway, paymentAuditRepo, notifier, cfg.Booking, logger)

	// Initialize and start the hold expiry sweeper
	sweeper := services.NewHoldExpiryService(ledgerService, reservationRepo, paymentAuditRepo, cfg.Booking.SweepInterval, logger)
	sweeper.Start()
	logger.Info("Hold expiry sweeper started")

	// Initialize handlers
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, ledgerService, logger)
	webhookHandler := handlers.NewPaymentWebhookHandler(settlementService, logger)
	reconciliationHandler := handlers.NewReconciliationHandler(paymentAuditRepo, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.GET("/:trip_id/seats", inventoryHandler.GetSnapshot)
			trips.GET("/:trip_id/reservations", bookingHandler.GetTripReservations)
		}

		v1.POST("/bookings", bookingHandler.CreateBooking)

		reservations := v1.Group("/reservations")
		{
			reservations.GET("/:reservation_id", bookingHandler.GetReservation)
			reservations.POST("/:reservation_id/release", bookingHandler.ReleaseReservation)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", webhookHandler.HandleCallback)
			payments.GET("/audit/:reservation_id", reconciliationHandler.GetReservationAudit)
			payments.GET("/mismatches", reconciliationHandler.GetAmountMismatches)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the expiry sweeper before the server so no sweep runs against a
	// closing connection pool
	sweeper.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
