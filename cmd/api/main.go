package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "techpay/api/swagger" // swagger docs
	"techpay/internal/cache"
	"techpay/internal/config"
	"techpay/internal/database"
	"techpay/internal/handler"
	"techpay/internal/logger"
	"techpay/internal/middleware"
	"techpay/internal/repository"
	"techpay/internal/service"
	"techpay/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const devJWTSecret = "techpay-dev-secret"

// @title           TechPay API
// @version         1.0
// @description     Payment allocation and debt ledger for furniture constructors.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL successfully")

	var statsCache cache.StatsCache = cache.NewMemory(cfg.Stats.CacheTTL)
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Stats.CacheTTL, log)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer func() { _ = rc.Close() }()
		statsCache = rc
		log.Info("Statistics cache backed by Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	secret := cfg.JWT.Secret
	if secret == "" {
		log.Warn("jwt.secret is not set, using the development secret")
		secret = devJWTSecret
	}
	auth := middleware.NewAuthenticator([]byte(secret))

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	constructorRepo := repository.NewConstructorRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	deductionRepo := repository.NewDeductionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	paymentService := service.NewPaymentService(
		paymentRepo, allocationRepo, orderRepo, constructorRepo, deductionRepo, activityRepo,
		txManager, statsCache, wsHub, log.Named("payments"),
		service.PaymentOptions{RetryOnConflict: cfg.Allocation.RetryOnConflict},
	)
	orderService := service.NewOrderService(
		orderRepo, constructorRepo, allocationRepo, deductionRepo, activityRepo,
		txManager, statsCache, wsHub, log.Named("orders"),
	)
	constructorService := service.NewConstructorService(
		constructorRepo, orderRepo, allocationRepo, deductionRepo, activityRepo,
		txManager, statsCache, wsHub, log.Named("constructors"),
	)
	deductionService := service.NewDeductionService(
		deductionRepo, orderRepo, activityRepo, txManager, statsCache, wsHub, log.Named("deductions"),
	)
	statisticsService := service.NewStatisticsService(
		statsRepo, orderRepo, constructorRepo, allocationRepo, deductionRepo, statsCache, log.Named("statistics"),
		service.StatisticsOptions{UnallocatedIncludesCredit: cfg.Ledger.UnallocatedIncludesCredit},
	)
	activityService := service.NewActivityService(activityRepo)

	// Initialize Handlers
	handler.SetupValidator()
	paymentHandler := handler.NewPaymentHandler(paymentService, auth)
	orderHandler := handler.NewOrderHandler(orderService, auth)
	constructorHandler := handler.NewConstructorHandler(constructorService, auth)
	deductionHandler := handler.NewDeductionHandler(deductionService, auth)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, activityService, auth)

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(logger.GinMiddleware(log))
	router.Use(logger.Recovery(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	// Register API Routes
	api := router.Group("")
	paymentHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	constructorHandler.RegisterRoutes(api)
	deductionHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
