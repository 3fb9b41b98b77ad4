package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/config"
	"github.com/Manoj-git-hub/ecommerce-project/internal/database"
	"github.com/Manoj-git-hub/ecommerce-project/internal/logger"
	"github.com/Manoj-git-hub/ecommerce-project/internal/messaging"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/outbox"
	"github.com/Manoj-git-hub/ecommerce-project/internal/payment"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"
	"github.com/Manoj-git-hub/ecommerce-project/internal/server"
	"github.com/Manoj-git-hub/ecommerce-project/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
	log.Info("Graceful shutdown complete")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting ecommerce API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error("Failed to flush traces", zap.Error(err))
		}
	}()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	if err := database.RunMigrations(dbService.DB(), log); err != nil {
		dbService.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := database.SchemaVersion(dbService.DB())
	if err != nil {
		dbService.Close()
		return err
	}
	log.Info("Database migrations completed successfully", zap.Int64("schema_version", version))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info("Checkout rate limiting enabled",
			zap.Int("limit", cfg.RateLimit.CheckoutLimit),
			zap.Duration("window", cfg.RateLimit.CheckoutWindow),
		)
	}

	store := repository.NewStore(dbService.DB())
	srv := server.NewServer(cfg, log, server.Deps{
		Store:    store,
		DB:       dbService,
		Metrics:  m,
		Payments: payment.NewStubProvider(),
		Redis:    redisClient,
	})
	defer srv.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")
		stop()

		// The server has 30 seconds to finish in-flight requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	if cfg.Kafka.Enabled() {
		publisher := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.Kafka.Brokers), log)
		defer publisher.Close()

		relay := outbox.NewRelay(store, publisher, log, m, cfg.Kafka.RelayInterval, cfg.Kafka.RelayBatch)
		g.Go(func() error {
			return relay.Run(gctx)
		})
		log.Info("Outbox relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	return g.Wait()
}
