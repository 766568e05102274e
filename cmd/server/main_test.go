package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"signal-gateway/internal/config"
	"signal-gateway/internal/domain"
	"signal-gateway/internal/profile"
	"signal-gateway/internal/service"
	"signal-gateway/pkg/tracing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracerConfig tracing.Config

func testConfig() *config.Config {
	return &config.Config{
		WebhookAuthToken:  "token",
		OpenAIModel:       "gpt-4o-mini",
		LLMTimeout:        time.Second,
		NotifyTimeout:     time.Second,
		RateLimitInterval: 12 * time.Second,
		SignalProfile:     "standard",
		CacheBackend:      "memory",
		OTLPEndpoint:      "collector:4317",
		Port:              8080,
		LogLevel:          "error",
	}
}

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(testConfig())
	defer restore()

	exitCode := -1
	origExit := exitFunc
	exitFunc = func(code int) { exitCode = code }
	defer func() { exitFunc = origExit }()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
	if exitCode != -1 {
		t.Fatalf("expected clean exit, got code %d", exitCode)
	}
}

func TestRunServesRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.TelegramBotToken = "bot"
	cfg.TelegramChatID = "-100"
	cfg.CORSAllowedOrigins = []string{"https://tv.example"}
	restore := stubServerDeps(cfg)
	defer restore()

	notifier := &recordingNotifier{}
	newNotifierFunc = func(token, chatID string, timeout time.Duration) (service.Notifier, error) {
		return notifier, nil
	}

	jobs := 0
	startJobFunc = func(context.Context, func(context.Context)) { jobs++ }

	var handler http.Handler
	startHTTPServerFunc = func(srv *http.Server) error {
		handler = srv.Handler
		return http.ErrServerClosed
	}

	if err := run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handler == nil {
		t.Fatal("server was never started")
	}
	if tracerConfig.Profile != "standard" || tracerConfig.Endpoint != "collector:4317" || tracerConfig.Enabled {
		t.Fatalf("unexpected tracer config: %+v", tracerConfig)
	}
	if jobs != 1 {
		t.Fatalf("expected only the cache sweep job without a database, got %d", jobs)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"profile":"standard"`) {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/signal", nil)
	req.Header.Set("Origin", "https://tv.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://tv.example" {
		t.Fatalf("expected CORS header, got %q", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/signal", strings.NewReader("{}")))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestRunWithRedisBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.CacheBackend = "redis"
	cfg.RedisURL = mr.Addr()
	restore := stubServerDeps(cfg)
	defer restore()

	if err := run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		mutate func()
		want   string
	}{
		{
			name: "unknown profile",
			mutate: func() {
				loadProfileFunc = func(string, string) (profile.Profile, error) {
					return profile.Profile{}, errors.New("unknown signal profile")
				}
			},
			want: "unknown signal profile",
		},
		{
			name: "postgres unavailable",
			mutate: func() {
				initPostgresFunc = func(context.Context, string) (*pgxpool.Pool, error) {
					return nil, errors.New("ping postgres: refused")
				}
			},
			want: "ping postgres",
		},
		{
			name: "listen failure",
			mutate: func() {
				startHTTPServerFunc = func(*http.Server) error { return errors.New("address in use") }
				waitForSignalFunc = func(<-chan os.Signal) { select {} }
			},
			want: "address in use",
		},
		{
			name: "tracer failure",
			mutate: func() {
				initTracerFunc = func(context.Context, tracing.Config) (*sdktrace.TracerProvider, trace.Tracer, error) {
					return nil, nil, errors.New("no collector")
				}
			},
			want: "initialize tracer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restore := stubServerDeps(testConfig())
			defer restore()
			tc.mutate()

			err := run()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func stubServerDeps(cfg *config.Config) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitTracer := initTracerFunc
	origInitPostgres := initPostgresFunc
	origRedis := initRedisFunc
	origLoadProfile := loadProfileFunc
	origNewLLM := newLLMClientFunc
	origNewNotifier := newNotifierFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc
	origStartJob := startJobFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config { return cfg }
	initTracerFunc = func(ctx context.Context, tc tracing.Config) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tracerConfig = tc
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	initPostgresFunc = func(context.Context, string) (*pgxpool.Pool, error) { return nil, nil }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }
	startJobFunc = func(context.Context, func(context.Context)) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initTracerFunc = origInitTracer
		initPostgresFunc = origInitPostgres
		initRedisFunc = origRedis
		loadProfileFunc = origLoadProfile
		newLLMClientFunc = origNewLLM
		newNotifierFunc = origNewNotifier
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
		startJobFunc = origStartJob
	}
}

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) Notify(ctx context.Context, sig domain.Signal, s domain.MarketSnapshot, session domain.Session) error {
	n.calls++
	return nil
}
