package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type DecisionPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DecisionRetentionJob deletes audit rows older than the retention window.
type DecisionRetentionJob struct {
	tracer    trace.Tracer
	pruner    DecisionPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewDecisionRetentionJob(tracer trace.Tracer, pruner DecisionPruner, retention, interval time.Duration, log zerolog.Logger) *DecisionRetentionJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DecisionRetentionJob{
		tracer:    tracer,
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		log:       log,
	}
}

func (j *DecisionRetentionJob) Start(ctx context.Context) {
	if j.pruner == nil || j.retention <= 0 {
		j.log.Debug().Msg("decision retention job disabled")
		<-ctx.Done()
		return
	}
	every(ctx, j.interval, j.runOnce)
}

func (j *DecisionRetentionJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "decision-retention-job.run-once")
	defer span.End()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		j.log.Error().Err(err).Msg("decision retention cycle failed")
		return
	}
	span.SetAttributes(attribute.Int64("decisions.deleted", deleted))
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("old decisions pruned")
	}
}
