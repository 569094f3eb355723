package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/atlasparts/backend-parts/internal/analytics"
	"github.com/atlasparts/backend-parts/internal/auth"
	"github.com/atlasparts/backend-parts/internal/catalog"
	"github.com/atlasparts/backend-parts/internal/chat"
	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/config"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/expenses"
	"github.com/atlasparts/backend-parts/internal/health"
	"github.com/atlasparts/backend-parts/internal/media"
	"github.com/atlasparts/backend-parts/internal/obs"
	"github.com/atlasparts/backend-parts/internal/parts"
	"github.com/atlasparts/backend-parts/internal/ratelimit"
	"github.com/atlasparts/backend-parts/internal/resilience"
	"github.com/atlasparts/backend-parts/internal/rules"
	"github.com/atlasparts/backend-parts/internal/security"
	"github.com/atlasparts/backend-parts/internal/settings"
	"github.com/atlasparts/backend-parts/internal/tasks"
	"github.com/atlasparts/backend-parts/internal/vehicles"
	"github.com/atlasparts/backend-parts/migrations"
	"github.com/atlasparts/backend-parts/pkg/vindecode"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "parts")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "parts-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "parts-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := db.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
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

	validate := validator.New()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      queries,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultPage:  cfg.CatalogDefaultPage,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	authService, err := auth.NewService(auth.Config{
		Queries:        queries,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMiddleware := auth.Middleware{Service: authService}

	rulesSvc := &rules.Service{Q: queries, Validate: validate, Invalidator: catalogService}
	rulesHandler := &rules.Handler{Svc: rulesSvc}

	partsSvc := &parts.Service{Q: queries, Validate: validate, Invalidator: catalogService}
	partsHandler := &parts.Handler{Svc: partsSvc}

	decodeBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("vin-decode").
		WithLogger(logger)
	decoder := vindecode.NewClient(vindecode.Config{
		BaseURL:     cfg.VinDecodeBaseURL,
		Breaker:     decodeBreaker,
		Timeout:     cfg.VinDecodeTimeout,
		MaxAttempts: cfg.VinDecodeMaxAttempts,
	})
	vehiclesSvc := &vehicles.Service{Q: queries, Decoder: decoder, Validate: validate}
	vehiclesHandler := &vehicles.Handler{Svc: vehiclesSvc}

	expensesSvc := &expenses.Service{Q: queries, Validate: validate, MaxRangeDays: cfg.ExpenseReportRangeDays}
	expensesHandler := &expenses.Handler{Svc: expensesSvc}

	chatSvc := &chat.Service{Q: queries, Validate: validate}
	chatHandler := &chat.Handler{Svc: chatSvc}
	chatLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "chat:"},
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				return chi.URLParam(r, "sessionId") + ":" + common.ClientIP(r)
			},
			Window: cfg.ChatMessageWindow,
			Max:    cfg.ChatMessageMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("chat rate limiter")
		},
	}

	settingsSvc := &settings.Service{Q: queries, Validate: validate}
	settingsHandler := &settings.Handler{Svc: settingsSvc}

	analyticsSvc := &analytics.Service{Q: queries, R: redisClient, TTL: cfg.AnalyticsCacheTTL}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	var mediaHandler *media.Handler
	if cfg.S3Bucket != "" {
		store, err := media.NewS3Store(ctx, media.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise media store")
		}
		mediaHandler = &media.Handler{Svc: &media.Service{
			Q:           queries,
			Store:       store,
			Invalidator: catalogService,
		}}
	} else {
		logger.Warn().Msg("S3_BUCKET not set, photo endpoints disabled")
	}

	redisConnOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task client")
	}
	taskClient := asynq.NewClient(redisConnOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	adminLimiter, err := ratelimit.NewAdminMiddleware(redisClient, cfg.AdminRatePerMinute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise admin rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	limitBody := security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS_ENABLE", true),
		EnableHSTS: envBool("SECURE_HSTS_ENABLE", false),
	}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/parts", catalogHandler.Parts)
		v.Get("/parts/{partId}", catalogHandler.PartDetail)
		v.Get("/parts/{partId}/related", catalogHandler.Related)

		v.With(limitBody).Post("/track", analyticsHandler.Record)

		if mediaHandler != nil {
			v.Get("/media/presign", mediaHandler.Presign)
		}

		v.Route("/chat/sessions", func(c chi.Router) {
			c.Use(limitBody)
			c.Post("/", chatHandler.OpenSession)
			c.Get("/{sessionId}/messages", chatHandler.Messages)
			c.With(chatLimiter.Middleware).Post("/{sessionId}/messages", chatHandler.PostMessage)
		})

		v.With(limitBody).Post("/auth/login", authHandler.Login)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			admin.Use(adminLimiter)

			admin.Get("/me", authHandler.Me)

			admin.Route("/parts", func(p chi.Router) {
				p.Get("/", partsHandler.List)
				p.With(limitBody).Post("/", partsHandler.Create)
				p.With(limitBody).Post("/bulk-adjust", partsHandler.BulkAdjust)
				p.Get("/{partId}", partsHandler.Get)
				p.With(limitBody).Put("/{partId}", partsHandler.Update)
				p.Delete("/{partId}", partsHandler.Delete)
				p.Get("/{partId}/preview", rulesHandler.Preview)
				if mediaHandler != nil {
					p.Post("/{partId}/photos", mediaHandler.Upload)
					p.Delete("/{partId}/photos", mediaHandler.Delete)
				}
			})

			admin.Route("/vehicles", func(veh chi.Router) {
				veh.Use(limitBody)
				veh.Get("/", vehiclesHandler.List)
				veh.Post("/", vehiclesHandler.Create)
				veh.Get("/decode/{vin}", vehiclesHandler.Decode)
				veh.Get("/{vin}", vehiclesHandler.Get)
				veh.Put("/{vin}", vehiclesHandler.Update)
				veh.Delete("/{vin}", vehiclesHandler.Delete)
			})

			admin.Route("/price-rules", func(pr chi.Router) {
				pr.Use(limitBody)
				pr.Get("/", rulesHandler.List)
				pr.Post("/", rulesHandler.Create)
				pr.Get("/{ruleId}", rulesHandler.Get)
				pr.Put("/{ruleId}", rulesHandler.Update)
				pr.Delete("/{ruleId}", rulesHandler.Delete)
			})

			admin.Route("/expenses", func(e chi.Router) {
				e.Use(limitBody)
				e.Get("/", expensesHandler.List)
				e.Post("/", expensesHandler.Create)
				e.Get("/report", expensesHandler.MonthlyReport)
				e.Put("/{expenseId}", expensesHandler.Update)
				e.Delete("/{expenseId}", expensesHandler.Delete)
			})
			admin.Post("/expenses/report/rebuild", rollupEnqueueHandler(taskClient, &logger))

			admin.Route("/chat", func(c chi.Router) {
				c.Use(limitBody)
				c.Get("/sessions", chatHandler.ListSessions)
				c.Post("/sessions/{sessionId}/reply", chatHandler.Reply)
				c.Post("/sessions/{sessionId}/close", chatHandler.CloseSession)
				c.Delete("/messages/{messageId}", chatHandler.DeleteMessage)
			})

			admin.Route("/analytics", func(an chi.Router) {
				an.Get("/views", analyticsHandler.ViewsByDay)
				an.Get("/top-parts", analyticsHandler.TopParts)
				an.Get("/inventory", analyticsHandler.Inventory)
			})

			admin.Route("/settings", func(st chi.Router) {
				st.Use(limitBody)
				st.Get("/", settingsHandler.List)
				st.Put("/", settingsHandler.Set)
				st.Get("/{key}", settingsHandler.Get)
				st.Delete("/{key}", settingsHandler.Delete)
			})
			admin.Get("/backup", settingsHandler.Backup)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		stop, cancelSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancelSignals()
		<-stop.Done()

		health.SetReady(false)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// rollupEnqueueHandler lets an admin rebuild a month's expense rollup
// without waiting for the nightly schedule.
func rollupEnqueueHandler(client *asynq.Client, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year := common.AtoiDefault(r.URL.Query().Get("year"), 0)
		month := common.AtoiDefault(r.URL.Query().Get("month"), 0)
		task, err := tasks.NewExpenseRollupTask(year, month)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		info, err := client.EnqueueContext(r.Context(), task)
		if err != nil {
			logger.Error().Err(err).Msg("enqueue expense rollup")
			common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "could not enqueue rollup", nil)
			return
		}
		common.Data(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
