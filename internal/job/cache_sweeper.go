package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Sweeper interface {
	Sweep() int
}

// CacheSweepJob periodically drops expired entries from a process-local
// result cache. Keys that are never looked up again are otherwise kept.
type CacheSweepJob struct {
	tracer   trace.Tracer
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewCacheSweepJob(tracer trace.Tracer, sweeper Sweeper, interval time.Duration, log zerolog.Logger) *CacheSweepJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheSweepJob{tracer: tracer, sweeper: sweeper, interval: interval, log: log}
}

func (j *CacheSweepJob) Start(ctx context.Context) {
	if j.sweeper == nil {
		j.log.Debug().Msg("cache sweep job disabled: no in-memory cache")
		<-ctx.Done()
		return
	}
	every(ctx, j.interval, j.runOnce)
}

func (j *CacheSweepJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "cache-sweep-job.run-once")
	defer span.End()

	removed := j.sweeper.Sweep()
	span.SetAttributes(attribute.Int("cache.removed", removed))
	if removed > 0 {
		j.log.Debug().Int("removed", removed).Msg("expired cache entries swept")
	}
}

// every runs fn immediately and then on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
