package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/allocator"
	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/config"
	"github.com/grandline-hms/service-reservation/internal/events"
	"github.com/grandline-hms/service-reservation/internal/handler"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/database"
	"github.com/grandline-hms/service-reservation/internal/platform/health"
	"github.com/grandline-hms/service-reservation/internal/platform/kafka"
	"github.com/grandline-hms/service-reservation/internal/platform/logger"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/pricing"
	"github.com/grandline-hms/service-reservation/internal/repository"
	"github.com/grandline-hms/service-reservation/internal/saga"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-reservation")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-reservation",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.GuestModel{},
			&repository.RoomUnitModel{},
			&repository.ReservationModel{},
			&repository.RoomAssignmentModel{},
			&repository.AddOnLineModel{},
			&repository.PaymentRecordModel{},
			&repository.LoyaltyAccountModel{},
			&repository.LoyaltyTransactionModel{},
			&repository.WaitlistEntryModel{},
		); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Initialize Kafka producer and event publisher
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, zapLogger)
	defer kafkaProducer.Close()
	publisher := events.NewPublisher(kafkaProducer, zapLogger)

	// Initialize pricing engine
	pricer := pricing.NewEngine(cfg.Pricing)

	// Initialize repositories
	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)

	// Initialize allocator
	alloc := allocator.New(roomRepo, pricer, publisher, zapLogger)

	// Initialize saga service
	sagaService := saga.NewBookingSagaService(
		reservationRepo,
		loyaltyRepo,
		alloc,
		pricer,
		publisher,
		publisher,
		cfg.Loyalty.EarnRate,
		cfg.Loyalty.ConversionRate,
		cfg.Loyalty.RedemptionCap,
		zapLogger,
	)

	// Initialize application services
	bookingService := application.NewBookingService(reservationRepo, guestRepo, pricer, sagaService, publisher, publisher, zapLogger)
	loyaltyService := application.NewLoyaltyService(loyaltyRepo, guestRepo, publisher, cfg.Loyalty, zapLogger)
	roomService := application.NewRoomService(roomRepo, alloc, pricer, publisher, zapLogger)
	waitlistService := application.NewWaitlistService(waitlistRepo, guestRepo, publisher, zapLogger)

	// Initialize Kafka consumer for availability events
	availabilityConsumer := events.NewAvailabilityConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupID,
		waitlistService,
		zapLogger,
	)
	defer availabilityConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting availability event consumer")
		if err := availabilityConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("availability event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	loyaltyHandler := handler.NewLoyaltyHandler(loyaltyService)
	roomHandler := handler.NewRoomHandler(roomService)
	waitlistHandler := handler.NewWaitlistHandler(waitlistService)
	adminHandler := handler.NewAdminHandler(bookingService, roomService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-reservation")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	bookingHandler.RegisterRoutes(apiV1, jwtManager)
	loyaltyHandler.RegisterRoutes(apiV1, jwtManager)
	roomHandler.RegisterRoutes(apiV1, jwtManager)
	waitlistHandler.RegisterRoutes(apiV1, jwtManager)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-reservation...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-reservation stopped")
}
