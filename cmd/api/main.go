package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kursadbilgin/rndc-gateway/internal/config"
	"github.com/kursadbilgin/rndc-gateway/internal/handler"
	"github.com/kursadbilgin/rndc-gateway/internal/infra/postgresql"
	"github.com/kursadbilgin/rndc-gateway/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/rndc-gateway/internal/infra/redis"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/ratelimit"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
	"github.com/kursadbilgin/rndc-gateway/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	shutdownTimeout  = 15 * time.Second
	startupTimeout   = 30 * time.Second
	rabbitMQPrefetch = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rndc-gateway stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("rndc-gateway stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()

	store, closeStore, err := openStore(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	checks := []handler.ReadinessCheck{{Name: "store", Ping: store.Ping}}

	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(startupCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		redisLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			return fmt.Errorf("rate limiter initialization failed: %w", err)
		}
		limiter = redisLimiter
		checks = append(checks, handler.ReadinessCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	publisher, consumer, brokerCheck, closeBroker, err := openBroker(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBroker()
	if brokerCheck != nil {
		checks = append(checks, *brokerCheck)
	}

	metrics := observability.NewMetrics()
	endpoints := service.NewEndpointResolver(cfg.RNDCProductionURL, cfg.RNDCTestURL, cfg.AllowedHosts())

	soapClient, err := provider.NewSOAPClient(cfg.RNDCProductionURL, cfg.RNDCTimeout())
	if err != nil {
		return fmt.Errorf("soap client initialization failed: %w", err)
	}
	pinger := provider.NewPinger(resty.New(), cfg.RNDCProductionURL, cfg.PingCacheTTL())

	batchService, err := service.NewBatchService(store.Batches, store.Submissions, publisher, endpoints, cfg.MaxBatchSize, logger)
	if err != nil {
		return err
	}
	runner, err := service.NewBatchRunner(store.Batches, store.Submissions, soapClient, limiter, cfg.BatchPacing(), logger)
	if err != nil {
		return err
	}
	runner.SetMetrics(metrics)

	queryService, err := service.NewQueryService(store.Queries, soapClient, endpoints, logger)
	if err != nil {
		return err
	}
	queryService.SetMetrics(metrics)

	validationService, err := service.NewValidationService(soapClient, endpoints, limiter, cfg.BatchPacing(), cfg.MaxBatchSize, logger)
	if err != nil {
		return err
	}

	worker, err := service.NewWorkerService(consumer, runner, cfg.WorkerConcurrency, logger)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "rndc-gateway",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, checks...)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterBatchRoutes(app, batchService); err != nil {
		return err
	}
	if err := handler.RegisterQueryRoutes(app, queryService); err != nil {
		return err
	}
	if err := handler.RegisterValidationRoutes(app, handler.NewValidationServiceAdapter(validationService), logger); err != nil {
		return err
	}
	if err := handler.RegisterPingRoutes(app, pinger, endpoints, metrics); err != nil {
		return err
	}

	var scanner *service.RecoveryScanner
	if cfg.RecoveryEnabled {
		scanner, err = service.NewRecoveryScanner(store.Batches, publisher, cfg.RecoveryInterval(), cfg.RecoveryStaleAfter(), 0, logger)
		if err != nil {
			return err
		}
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Start(groupCtx)
	})

	if scanner != nil {
		g.Go(func() error {
			return scanner.Start(groupCtx)
		})
	}

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("rndc-gateway api started",
			zap.String("addr", addr),
			zap.String("storeDriver", cfg.StoreDriver),
			zap.String("dispatchMode", cfg.DispatchMode),
			zap.Bool("rateLimiter", limiter != nil),
		)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(), error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		logger.Warn("using in-memory store, batches do not survive restarts")
		return repository.NewMemoryStore().Store(), func() {}, nil
	}

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.DefaultOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		closeDB(db, logger)
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}

	return repository.NewGormStore(db), func() { closeDB(db, logger) }, nil
}

func closeDB(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("postgres underlying db lookup failed", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("postgres close failed", zap.Error(err))
	}
}

func openBroker(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (queue.Publisher, queue.Consumer, *handler.ReadinessCheck, func(), error) {
	if cfg.DispatchMode != config.DispatchModeRabbitMQ {
		broker := queue.NewMemoryBroker(cfg.QueueCapacity, logger)
		return broker, broker, nil, func() { _ = broker.Close() }, nil
	}

	client, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("rabbitmq initialization failed: %w", err)
	}

	publisher := queue.NewRabbitMQPublisher(client)
	consumer := queue.NewRabbitMQConsumer(client, rabbitMQPrefetch, logger)
	check := &handler.ReadinessCheck{Name: "rabbitmq", Ping: client.Ping}
	closeFn := func() {
		_ = consumer.Close()
		_ = publisher.Close()
		if err := client.Close(); err != nil {
			logger.Error("rabbitmq close failed", zap.Error(err))
		}
	}
	return publisher, consumer, check, closeFn, nil
}
