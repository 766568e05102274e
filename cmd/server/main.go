package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"signal-gateway/internal/advisor"
	"signal-gateway/internal/bot"
	"signal-gateway/internal/cache"
	"signal-gateway/internal/config"
	"signal-gateway/internal/db"
	"signal-gateway/internal/handler"
	"signal-gateway/internal/job"
	"signal-gateway/internal/metrics"
	"signal-gateway/internal/profile"
	"signal-gateway/internal/ratelimit"
	"signal-gateway/internal/repository"
	"signal-gateway/internal/service"
	"signal-gateway/pkg/logger"
	"signal-gateway/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "signal-gateway/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initTracerFunc   = tracing.InitTracer
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	loadProfileFunc  = profile.Load
	newLLMClientFunc = advisor.NewOpenAIClient
	newNotifierFunc  = func(token, chatID string, timeout time.Duration) (service.Notifier, error) {
		return bot.NewTelegramNotifier(token, chatID, timeout)
	}
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	startJobFunc           = func(ctx context.Context, start func(context.Context)) { go start(ctx) }
	exitFunc               = os.Exit
)

// @title           Signal Gateway API
// @version         1.0
// @description     Turns indicator snapshots into buy, sell or hold signals.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey AuthToken
// @in header
// @name X-Auth-Token
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signal-gateway: %v\n", err)
		exitFunc(1)
	}
}

func run() error {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := loadProfileFunc(cfg.SignalProfile, cfg.SignalProfileFile)
	if err != nil {
		return err
	}
	log.Info().Str("profile", p.Name).Dur("cache_ttl", p.CacheTTL).Msg("signal profile loaded")

	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: tracing.DefaultServiceName,
		Profile:     p.Name,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("shutting down tracer provider")
		}
	}()

	rec := metrics.New()
	deps := service.Deps{Metrics: rec, Logger: log}

	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	var repo *repository.DecisionRepository
	if pool != nil {
		defer pool.Close()
		repo = repository.NewDecisionRepository(pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		deps.Decisions = repo
		log.Info().Msg("decision audit log enabled")
	}

	resultCache, closeCache, err := newResultCache(ctx, cfg, p)
	if err != nil {
		return err
	}
	defer closeCache()
	deps.Cache = resultCache

	var llm advisor.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = newLLMClientFunc(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	}
	deps.Gateway = advisor.NewGateway(tracer, llm, advisor.GatewayConfig{
		Model:   cfg.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	})

	if cfg.NotificationsEnabled() {
		n, err := newNotifierFunc(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.NotifyTimeout)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		deps.Notifier = n
	}

	svc, err := service.NewSignalService(tracer, p, deps)
	if err != nil {
		return err
	}

	if mem, ok := resultCache.(*cache.Memory); ok {
		startJobFunc(ctx, job.NewCacheSweepJob(tracer, mem, time.Minute, log).Start)
	}
	if repo != nil && cfg.DecisionRetention > 0 {
		startJobFunc(ctx, job.NewDecisionRetentionJob(tracer, repo, cfg.DecisionRetention, time.Hour, log).Start)
	}

	r := newRouterFunc()
	r.Use(handler.Recovery(), handler.RequestLogger(log))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type", "X-Auth-Token"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.Use(otelgin.Middleware(tracing.DefaultServiceName))

	h := handler.New(tracer, svc, p.Name, p.IncludeConfidence)
	h.RegisterRoutes(r, handler.RouteConfig{
		AuthToken: cfg.WebhookAuthToken,
		Limiter:   ratelimit.NewLimiter(cfg.RateLimitInterval),
		Metrics:   rec,
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(stop)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending notifications abandoned")
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Info().Msg("server exiting")
	return nil
}

// newResultCache builds the configured cache backend. Profiles without a
// cache TTL get none.
func newResultCache(ctx context.Context, cfg *config.Config, p profile.Profile) (cache.ResultCache, func(), error) {
	noop := func() {}
	if !p.CacheEnabled() {
		return nil, noop, nil
	}
	if cfg.CacheBackend != "redis" {
		return cache.NewMemory(p.CacheTTL, time.Now), noop, nil
	}
	client, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		return nil, noop, fmt.Errorf("connect to redis: %w", err)
	}
	return cache.NewRedis(client, p.CacheTTL), func() { _ = client.Close() }, nil
}
