package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/naracommerce/backend-crm/internal/audit"
	"github.com/naracommerce/backend-crm/internal/common"
	"github.com/naracommerce/backend-crm/internal/config"
	"github.com/naracommerce/backend-crm/internal/entity"
	"github.com/naracommerce/backend-crm/internal/obs"
	"github.com/naracommerce/backend-crm/internal/pricing"
	"github.com/naracommerce/backend-crm/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "crm-pricing",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "crm-pricing"

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	store := &entity.PGStore{Pool: pool}
	resolver, err := entity.NewResolver(entity.ResolverConfig{
		Products:  store,
		Customers: store,
		TTL:       cfg.EntityCacheTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise entity resolver")
	}

	var sink audit.Sink
	if cfg.AuditEnabled {
		csvSink, err := audit.NewCSVSink(cfg.AuditLogPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("open audit log")
		}
		defer func() {
			if err := csvSink.Close(); err != nil {
				logger.Error().Err(err).Msg("close audit log")
			}
		}()
		sink = csvSink
	}
	recorder := &audit.Recorder{Sink: sink, Logger: logger, Enabled: cfg.AuditEnabled}

	fixedWindow := ratelimit.NewFixedWindow(nil)
	fixedWindow.StartSweeper(ctx, cfg.CacheSweepInterval, cfg.RateLimitWindow)

	service, err := pricing.NewService(pricing.ServiceConfig{
		Resolver:         resolver,
		Pipeline:         pricing.NewPipeline(nil, nil, nil, logger),
		Limiter:          fixedWindow,
		Audit:            recorder,
		Logger:           logger,
		ResultTTL:        cfg.ResultCacheTTL,
		ResultMaxEntries: cfg.ResultCacheMaxEntries,
		RateWindow:       cfg.RateLimitWindow,
		RateMax:          cfg.RateLimitMax,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise pricing service")
	}
	service.StartSweepers(ctx, cfg.CacheSweepInterval)
	defer service.ClearCaches()

	handler := pricing.NewHandler(pricing.HandlerConfig{
		Service:  service,
		Validate: validator.New(),
		Audit:    recorder,
	})

	globalRate, err := limiter.NewRateFromFormatted(cfg.GlobalRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse global rate limit")
	}
	globalLimiter := limitermw.NewMiddleware(limiter.New(limitermem.NewStore(), globalRate))

	pricingLimiter := ratelimit.Handler{
		Limiter: fixedWindow,
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter error")
		},
		OnRejected: func(r *http.Request) {
			logger.Warn().Str("client_ip", common.ClientIP(r)).Str("path", r.URL.Path).Msg("request rate limited")
			if obs.RateLimitRejectedTotal != nil {
				obs.RateLimitRejectedTotal.Inc()
			}
		},
	}

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", obs.CorrelationHeader},
		AllowCredentials: true,
	}))
	router.Use(globalLimiter.Handler)
	router.Use(obs.CorrelationMiddleware)
	router.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		router.Use(obs.TracingMiddleware)
	}
	if cfg.MetricsEnabled {
		metrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)
		router.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	router.Use(obs.RequestLogger{Logger: logger}.Middleware)
	router.Use(obs.PerfMiddleware(obs.PerfTracker{
		Logger:        logger,
		SlowThreshold: cfg.SlowRequestThreshold,
		HeapWarnBytes: cfg.HeapWarnBytes,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1/pricing", func(r chi.Router) {
		r.Use(pricingLimiter.Middleware)
		r.Post("/calculate", handler.CalculatePrice)
		r.Post("/margin-markup", handler.MarginMarkup)
		r.Post("/suggest", handler.SuggestPrice)
		r.Get("/cache/stats", handler.CacheStats)
		r.Delete("/cache", handler.ClearCache)
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
