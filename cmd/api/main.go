package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-kasir/internal/auth"
	"github.com/noah-isme/backend-kasir/internal/backup"
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/checkout"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/config"
	"github.com/noah-isme/backend-kasir/internal/customer"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/health"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/purchase"
	"github.com/noah-isme/backend-kasir/internal/ratelimit"
	"github.com/noah-isme/backend-kasir/internal/receivable"
	"github.com/noah-isme/backend-kasir/internal/report"
	"github.com/noah-isme/backend-kasir/internal/sale"
	"github.com/noah-isme/backend-kasir/internal/security"
	"github.com/noah-isme/backend-kasir/internal/settings"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
	"github.com/noah-isme/backend-kasir/internal/store"
	"github.com/noah-isme/backend-kasir/internal/store/pgtree"
	"github.com/noah-isme/backend-kasir/internal/store/redistree"
	"github.com/noah-isme/backend-kasir/internal/supplier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kasir")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := cfg.OTLPEndpoint != "" && envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kasir-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	var tree store.Tree
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := pgtree.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		defer pool.Close()
		tree, err = pgtree.New(pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise postgres store")
		}
	default:
		tree, err = redistree.New(redisClient, redistree.Options{Prefix: "kasir"})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise redis store")
		}
	}
	if err := tree.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping store")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := snapshot.New(tree, logger, snapshot.Options{RefreshInterval: cfg.CatalogCacheTTL})
	if err := hub.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load catalog snapshot")
	}
	go hub.Run(runCtx)

	carts := cart.NewService(hub, logger, cfg.CartTTL)
	go carts.Run(runCtx)

	bus := events.NewBus(tree, logger)

	catalogSvc, err := catalog.NewService(catalog.Config{
		Tree:   tree,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	customerSvc, err := customer.NewService(customer.Config{
		Tree:             tree,
		MinMarkupPercent: cfg.MinMarkupPercent,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise customer service")
	}
	customerHandler := &customer.Handler{Svc: customerSvc}

	supplierSvc, err := supplier.NewService(tree, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise supplier service")
	}
	supplierHandler := &supplier.Handler{Svc: supplierSvc}

	purchaseSvc, err := purchase.NewService(purchase.Config{Tree: tree, Bus: bus, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise purchase service")
	}
	purchaseHandler := &purchase.Handler{Svc: purchaseSvc}

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Tree:            tree,
		Carts:           carts,
		Hub:             hub,
		Bus:             bus,
		Logger:          logger,
		DefaultDueDays:  cfg.DueDaysDefault,
		LowStockDefault: cfg.LowStockThreshold,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout service")
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	saleSvc, err := sale.NewService(tree)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise sale service")
	}
	saleHandler := &sale.Handler{Svc: saleSvc}

	receivableSvc, err := receivable.NewService(receivable.Config{Tree: tree, Bus: bus, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise receivable service")
	}
	receivableHandler := &receivable.Handler{Svc: receivableSvc}

	reportSvc, err := report.NewService(report.Config{
		Tree:            tree,
		Cache:           catalog.NewCache(redisClient, cfg.ReportCacheTTL),
		Logger:          logger,
		LowStockDefault: cfg.LowStockThreshold,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise report service")
	}
	reportHandler := &report.Handler{Svc: reportSvc}

	settingsSvc, err := settings.NewService(tree, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise settings service")
	}
	if cfg.TaxRateDefault > 0 {
		if err := settingsSvc.EnsureTax(runCtx, cfg.TaxRateDefault); err != nil {
			logger.Error().Err(err).Msg("seed default tax rate")
		}
	}
	settingsHandler := &settings.Handler{Svc: settingsSvc}

	backupSvc, err := backup.NewService(tree, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise backup service")
	}
	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	backupHandler := &backup.Handler{Svc: backupSvc, Tasks: taskClient, Logger: logger}

	cartHandler := &cart.Handler{Svc: carts}

	verifier, err := auth.NewVerifier(
		cfg.JWTSecret,
		envOrDefault("AUTH_ISSUER", ""),
		envOrDefault("AUTH_AUDIENCE", ""),
		envDurationMillis("AUTH_CLOCK_SKEW_MS", 0),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMW := auth.Middleware{Verifier: verifier}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	writeLimiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitWrites)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	rl := ratelimit.Handler{
		Limiter: writeLimiter,
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("BODY_LIMIT_BYTES", 10<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug", middleware.Profiler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Tree: tree, Redis: redisClient},
		StoreTimeout: envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	adminOnly := authMW.RequireRole(auth.RoleAdmin)
	kasirOnly := authMW.RequireRole(auth.RoleKasir)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMW.RequireAuth)

		v.Route("/products", func(pr chi.Router) {
			pr.Get("/", catalogHandler.ListProducts)
			pr.Get("/{id}", catalogHandler.GetProduct)
			pr.Group(func(w chi.Router) {
				w.Use(adminOnly, rl.Middleware)
				w.Post("/", catalogHandler.CreateProduct)
				w.Put("/{id}", catalogHandler.UpdateProduct)
				w.Delete("/{id}", catalogHandler.DeleteProduct)
			})
		})

		v.Route("/categories", func(cr chi.Router) {
			cr.Get("/", catalogHandler.ListCategories)
			cr.Group(func(w chi.Router) {
				w.Use(adminOnly, rl.Middleware)
				w.Post("/", catalogHandler.CreateCategory)
				w.Put("/{id}", catalogHandler.UpdateCategory)
				w.Delete("/{id}", catalogHandler.DeleteCategory)
			})
		})

		v.Route("/customers", func(cr chi.Router) {
			cr.Get("/", customerHandler.List)
			cr.Get("/{id}", customerHandler.Get)
			cr.Group(func(w chi.Router) {
				w.Use(adminOnly, rl.Middleware)
				w.Post("/", customerHandler.Create)
				w.Put("/{id}", customerHandler.Update)
				w.Delete("/{id}", customerHandler.Delete)
				w.Put("/{id}/prices/{productID}", customerHandler.PutPriceOverride)
				w.Delete("/{id}/prices/{productID}", customerHandler.RemovePriceOverride)
			})
		})

		v.With(adminOnly).Route("/suppliers", supplierHandler.Routes)
		v.With(adminOnly).Route("/purchases", purchaseHandler.Routes)
		v.With(adminOnly).Route("/settings", settingsHandler.Routes)
		v.With(adminOnly).Route("/backup", backupHandler.Routes)
		v.With(adminOnly).Route("/reports", reportHandler.Routes)

		v.With(kasirOnly).Route("/carts", cartHandler.Routes)
		v.With(kasirOnly, idem.Middleware, rl.Middleware).Post("/checkout", checkoutHandler.Finalize)
		v.With(kasirOnly).Route("/receivables", receivableHandler.Routes)

		v.Route("/sales", saleHandler.Routes)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	if err := tree.Close(); err != nil {
		logger.Error().Err(err).Msg("close store")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
