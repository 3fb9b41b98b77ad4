package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/config"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	custommiddleware "github.com/Manoj-git-hub/ecommerce-project/internal/middleware"
	"github.com/Manoj-git-hub/ecommerce-project/internal/payment"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"
	"github.com/Manoj-git-hub/ecommerce-project/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Database is the part of database.Service the server depends on.
type Database interface {
	Health(ctx context.Context) map[string]string
	Close() error
}

// Deps are the collaborators built by main.
type Deps struct {
	Store    repository.Store
	DB       Database
	Metrics  *metrics.Metrics
	Payments payment.Provider
	// Redis enables checkout rate limiting when non-nil.
	Redis *redis.Client
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if deps.Payments == nil {
		deps.Payments = payment.NewStubProvider()
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack(logger)...)
	router.Use(deps.Metrics.Middleware)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", deps.Metrics.Handler())

	// Services
	events := ""
	if cfg.Kafka.Enabled() {
		events = cfg.Kafka.Topic
	}
	userService := service.NewUserService(deps.Store.Users(), cfg.JWT.Secret)
	cartService := service.NewCartService(deps.Store, logger, deps.Metrics)
	addressService := service.NewAddressService(deps.Store)
	checkoutService := service.NewCheckoutService(deps.Store, deps.Payments, logger, deps.Metrics, service.CheckoutOptions{
		EventsTopic:             events,
		Currency:                cfg.Checkout.Currency,
		EnforceAdminTransitions: cfg.Checkout.EnforceAdminTransitions,
	})

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	var checkoutLimiter func(http.Handler) http.Handler
	if deps.Redis != nil {
		checkoutLimiter = custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.CheckoutLimit,
			Window:            cfg.RateLimit.CheckoutWindow,
			KeyPrefix:         "ratelimit:checkout",
		}, logger)
	}

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAddressHandler(addressService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCheckoutHandler(checkoutService, logger).RegisterRoutes(router, authMiddleware, checkoutLimiter)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "http.server"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}

	if s.deps.DB != nil {
		db := s.deps.DB.Health(r.Context())
		body["database"] = db
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(r.Context()).Err(); err != nil {
			// Rate limiting fails open, so Redis being down is not fatal.
			body["redis"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			body["redis"] = map[string]string{"status": "up"}
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
