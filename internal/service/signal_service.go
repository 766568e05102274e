package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal-gateway/internal/advisor"
	"signal-gateway/internal/cache"
	"signal-gateway/internal/domain"
	"signal-gateway/internal/metrics"
	"signal-gateway/internal/profile"
	"signal-gateway/internal/signal"
	"signal-gateway/internal/ta"
	"signal-gateway/internal/validate"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrAuditLogDisabled is returned by RecentDecisions when no store is wired.
var ErrAuditLogDisabled = errors.New("decision audit log is not configured")

type Gateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, sig domain.Signal, s domain.MarketSnapshot, session domain.Session) error
}

type DecisionStore interface {
	InsertDecision(ctx context.Context, d domain.Decision) error
	ListDecisions(ctx context.Context, filter domain.DecisionFilter) ([]domain.Decision, error)
}

// Deps are the collaborators of SignalService. Cache, Notifier, Decisions
// and Metrics are optional.
type Deps struct {
	Gateway   Gateway
	Cache     cache.ResultCache
	Notifier  Notifier
	Decisions DecisionStore
	Metrics   *metrics.Recorder
	Logger    zerolog.Logger
	Now       func() time.Time
}

type Result struct {
	Signal domain.Signal
	Source domain.Source
}

// SignalService runs one snapshot through validate, derive, cache, model,
// interpret, filter, store and notify.
type SignalService struct {
	tracer    trace.Tracer
	profile   profile.Profile
	validator *validate.Validator
	gateway   Gateway
	cache     cache.ResultCache
	notifier  Notifier
	decisions DecisionStore
	metrics   *metrics.Recorder
	log       zerolog.Logger
	now       func() time.Time

	notifications sync.WaitGroup
}

func NewSignalService(tracer trace.Tracer, p profile.Profile, deps Deps) (*SignalService, error) {
	v, err := validate.New(p)
	if err != nil {
		return nil, err
	}
	if deps.Gateway == nil {
		return nil, errors.New("signal service: gateway is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	c := deps.Cache
	if !p.CacheEnabled() {
		c = nil
	}
	return &SignalService{
		tracer:    tracer,
		profile:   p,
		validator: v,
		gateway:   deps.Gateway,
		cache:     c,
		notifier:  deps.Notifier,
		decisions: deps.Decisions,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		now:       deps.Now,
	}, nil
}

func (s *SignalService) Profile() profile.Profile {
	return s.profile
}

// Analyze returns the final signal for req. Only *domain.ValidationError and
// unexpected internal errors are returned; model and notifier failures are
// absorbed.
func (s *SignalService) Analyze(ctx context.Context, req *domain.SignalRequest) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.analyze")
	defer span.End()
	start := s.now()

	snap, err := s.validator.Snapshot(req)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("symbol", snap.Symbol),
		attribute.String("timeframe", snap.Timeframe),
		attribute.String("profile", s.profile.Name),
	)
	log := s.log.With().Str("symbol", snap.Symbol).Str("tf", snap.Timeframe).Logger()

	derived := ta.Derive(snap, start.UTC().Hour(), s.profile.Thresholds)

	var key string
	if s.cache != nil {
		key = cache.Key(snap)
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("result cache lookup failed")
		case ok:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			s.record(ctx, log, snap, cached, domain.SourceCache)
			s.metrics.RecordSignal(string(cached.Action), string(domain.SourceCache), s.now().Sub(start))
			return Result{Signal: cached, Source: domain.SourceCache}, nil
		}
	}

	sig, source := s.decide(ctx, log, snap, derived)

	sig = signal.Filter(sig, derived, snap, s.profile)
	if sig.Rule != "" {
		s.metrics.RecordFilterOverride(sig.Rule)
		log.Info().Str("rule", sig.Rule).Msg("signal downgraded to hold")
	}

	if key != "" {
		if err := s.cache.Put(ctx, key, sig); err != nil {
			log.Warn().Err(err).Msg("result cache store failed")
		}
	}

	s.record(ctx, log, snap, sig, source)
	s.notify(ctx, log, sig, snap, derived.Session)

	span.SetAttributes(attribute.String("signal", string(sig.Action)), attribute.String("source", string(source)))
	s.metrics.RecordSignal(string(sig.Action), string(source), s.now().Sub(start))
	log.Info().Str("signal", string(sig.Action)).Str("source", string(source)).Msg("signal decided")
	return Result{Signal: sig, Source: source}, nil
}

// decide asks the model and falls back to the EMA/RSI rule when the model
// fails or its reply cannot be interpreted.
func (s *SignalService) decide(ctx context.Context, log zerolog.Logger, snap domain.MarketSnapshot, derived domain.DerivedMetrics) (domain.Signal, domain.Source) {
	fallback := signal.Fallback(snap.Indicators)

	raw, err := s.gateway.Complete(ctx, advisor.BuildPrompt(snap, derived, s.profile))
	if err != nil {
		s.metrics.RecordGatewayFailure()
		log.Warn().Err(err).Msg("model unavailable, using fallback signal")
		return fallback, domain.SourceFallback
	}

	sig, err := signal.Interpret(raw, fallback)
	if err != nil {
		s.metrics.RecordParseFailure()
		log.Warn().Err(err).Msg("model reply rejected, using fallback signal")
		return sig, domain.SourceFallback
	}
	return sig, domain.SourceModel
}

func (s *SignalService) record(ctx context.Context, log zerolog.Logger, snap domain.MarketSnapshot, sig domain.Signal, source domain.Source) {
	if s.decisions == nil {
		return
	}
	err := s.decisions.InsertDecision(ctx, domain.Decision{
		Symbol:      snap.Symbol,
		Timeframe:   snap.Timeframe,
		Action:      sig.Action,
		Confidence:  sig.Confidence,
		Explanation: sig.Explanation,
		Source:      source,
		Rule:        sig.Rule,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("audit log write failed")
	}
}

// notify delivers the alert in the background. The request context's
// cancellation is dropped so the send outlives the HTTP response; the
// notifier bounds it with its own timeout.
func (s *SignalService) notify(ctx context.Context, log zerolog.Logger, sig domain.Signal, snap domain.MarketSnapshot, session domain.Session) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		if err := s.notifier.Notify(ctx, sig, snap, session); err != nil {
			s.metrics.RecordNotifyFailure()
			log.Warn().Err(err).Msg("alert delivery failed")
		}
	}()
}

// Wait blocks until in-flight notifications finish or ctx ends.
func (s *SignalService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SignalService) RecentDecisions(ctx context.Context, filter domain.DecisionFilter) ([]domain.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.recent-decisions")
	defer span.End()

	if s.decisions == nil {
		return nil, ErrAuditLogDisabled
	}
	return s.decisions.ListDecisions(ctx, filter)
}
