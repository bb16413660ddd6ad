package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/contracts"
	bookingshandler "github.com/atelier-labs/pencilbook/domains/bookings/be/handler"
	bookingsrepo "github.com/atelier-labs/pencilbook/domains/bookings/be/repo"
	bookingsservice "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/bookings/be/sweeper"
	eventshandler "github.com/atelier-labs/pencilbook/domains/events/be/handler"
	"github.com/atelier-labs/pencilbook/domains/events/be/relay"
	eventsrepo "github.com/atelier-labs/pencilbook/domains/events/be/repo"
	eventsservice "github.com/atelier-labs/pencilbook/domains/events/be/service"
	resourceshandler "github.com/atelier-labs/pencilbook/domains/resources/be/handler"
	resourcesrepo "github.com/atelier-labs/pencilbook/domains/resources/be/repo"
	resourcesservice "github.com/atelier-labs/pencilbook/domains/resources/be/service"
	tenantshandler "github.com/atelier-labs/pencilbook/domains/tenants/be/handler"
	tenantsrepo "github.com/atelier-labs/pencilbook/domains/tenants/be/repo"
	tenantsservice "github.com/atelier-labs/pencilbook/domains/tenants/be/service"
	platformlogging "github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
	platformmiddleware "github.com/atelier-labs/pencilbook/platform/go/middleware"
	"github.com/atelier-labs/pencilbook/platform/go/persistence"
	tenantmiddleware "github.com/atelier-labs/pencilbook/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	RedisURL        string        `env:"REDIS_URL"`
	HoldTTL         time.Duration `env:"HOLD_TTL" envDefault:"30m"`
	LockTimeout     time.Duration `env:"LOCK_TIMEOUT" envDefault:"2s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	SweepBatchSize  int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	m := metrics.New()

	tenantRepo := tenantsrepo.NewPostgresRepository(pool)
	tenantService := tenantsservice.New(tenantRepo)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	resourceRepo := resourcesrepo.NewPostgresRepository(pool)
	resourceService := resourcesservice.New(resourceRepo)
	resourceHTTPHandler := resourceshandler.New(resourceService, logger)

	bookingRepo := bookingsrepo.NewPostgresRepository(pool, bookingsrepo.Options{
		LockTimeout: cfg.LockTimeout,
		Metrics:     m,
	})
	bookingService, err := bookingsservice.New(bookingRepo, resourceService, m, bookingsservice.Config{
		HoldTTL: cfg.HoldTTL,
	})
	if err != nil {
		logger.Fatal("init booking engine", zap.Error(err))
	}
	bookingHTTPHandler := bookingshandler.New(bookingService, logger)

	eventRepo := eventsrepo.NewPostgresRepository(pool)
	eventService := eventsservice.New(eventRepo)
	eventHTTPHandler := eventshandler.New(eventService, logger)

	holdSweeper := sweeper.New(bookingService, logger, m, sweeper.Config{
		Interval:  cfg.SweepInterval,
		BatchSize: cfg.SweepBatchSize,
	})
	go holdSweeper.Run(ctx)

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("parse redis url", zap.Error(err))
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		eventRelay := relay.New(eventRepo, redisClient, logger, m, relay.Config{})
		go eventRelay.Run(ctx)
	} else {
		logger.Info("event relay disabled, no REDIS_URL configured")
	}

	specValidator, err := platformmiddleware.NewSpecValidator(contracts.BookingAPI)
	if err != nil {
		logger.Fatal("init contract validator", zap.Error(err))
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", metrics.Handler())

	registerDocsRoutes(rootRouter, logger)

	// Tenant administration is not tenant-scoped; it manages the tenants themselves.
	adminRouter := chi.NewRouter()
	tenantHTTPHandler.Mount(adminRouter)
	rootRouter.Mount("/admin/v1", adminRouter)

	apiRouter := chi.NewRouter()
	apiRouter.Use(tenantmiddleware.RequireTenant(tenantService, tenantmiddleware.Config{
		CacheTTL: time.Minute,
	}))
	apiRouter.Use(platformmiddleware.RateLimitByTenant(platformmiddleware.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	}))
	apiRouter.Use(specValidator)

	resourceHTTPHandler.Mount(apiRouter)
	bookingHTTPHandler.Mount(apiRouter)
	eventHTTPHandler.Mount(apiRouter)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
