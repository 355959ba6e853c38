package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"glowmarket/internal/config"
	custommiddleware "glowmarket/internal/middleware"
	"glowmarket/internal/repository"
	"glowmarket/internal/service"
	"glowmarket/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redis client for rate limiting the checkout path
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	itemRepo := repository.NewItemRepository(db)
	cartRepo := repository.NewCartRepository(db)
	stockLedger := repository.NewStockLedger(db)
	orderRepo := repository.NewOrderRepository(db, stockLedger)

	// Initialize services
	pricing := service.NewPricingEngine(cfg.Checkout.TaxRate, cfg.Checkout.ShippingFee)
	validator := service.NewStockValidator(itemRepo)
	factory := service.NewOrderFactory(itemRepo, orderRepo, pricing, service.GroupingStrategyByName(cfg.Checkout.Grouping))
	checkoutService := service.NewCheckoutService(cartRepo, validator, factory, logger)
	orderService := service.NewOrderService(orderRepo, logger)

	// Initialize handlers
	cartHandler := transport.NewCartHandler(cartRepo, itemRepo, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	stockHandler := transport.NewStockHandler(stockLedger, logger)

	// Create middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)
	checkoutRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Register routes
	cartHandler.RegisterRoutes(router, authMiddleware)
	checkoutHandler.RegisterRoutes(router, authMiddleware, checkoutRateLimit)
	orderHandler.RegisterRoutes(router, authMiddleware)
	stockHandler.RegisterRoutes(router, authMiddleware, requireAdmin)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	// Close redis client
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
