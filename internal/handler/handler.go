package handler

import (
	"context"
	"time"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/metrics"
	"signal-gateway/internal/ratelimit"
	"signal-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxBodyBytes int64 = 1 << 20 // 1MiB

type SignalAnalyzer interface {
	Analyze(ctx context.Context, req *domain.SignalRequest) (service.Result, error)
	RecentDecisions(ctx context.Context, filter domain.DecisionFilter) ([]domain.Decision, error)
}

type Handler struct {
	tracer            trace.Tracer
	signals           SignalAnalyzer
	profileName       string
	includeConfidence bool
}

func New(tracer trace.Tracer, signals SignalAnalyzer, profileName string, includeConfidence bool) *Handler {
	return &Handler{
		tracer:            tracer,
		signals:           signals,
		profileName:       profileName,
		includeConfidence: includeConfidence,
	}
}

// RouteConfig carries the guards for the webhook routes. A nil Limiter
// disables rate limiting; an empty AuthToken rejects every request.
type RouteConfig struct {
	AuthToken    string
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Recorder
	Now          func() time.Time
	MaxBodyBytes int64
}

func (h *Handler) RegisterRoutes(r *gin.Engine, cfg RouteConfig) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)

	r.GET("/health", h.Health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	webhook := []gin.HandlerFunc{
		AuthToken(cfg.AuthToken),
		RateLimit(cfg.Limiter, cfg.Now, cfg.Metrics),
		BodyLimit(cfg.MaxBodyBytes),
		h.Signal,
	}
	r.POST("/api/signal", webhook...)
	r.POST("/webhook", webhook...)

	r.GET("/api/decisions", AuthToken(cfg.AuthToken), h.ListDecisions)
}
