package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/projection"
	"github.com/profiledex/profiledex/internal/services/projector/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 2 * time.Second
)

// LoopConfig controls mutation feed consumption.
type LoopConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func (c LoopConfig) normalized() LoopConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// Loop consumes the source mutation feed in seq order and applies each
// mutation through the propagator. A single consumer draining in seq order
// serializes same-key mutations; the store's seq guard covers redelivery.
type Loop struct {
	source     storage.SourceStore
	propagator *projection.Propagator
	cfg        LoopConfig
	tracer     trace.Tracer
}

// NewLoop creates a mutation consumer loop.
func NewLoop(source storage.SourceStore, propagator *projection.Propagator, cfg LoopConfig) *Loop {
	return &Loop{
		source:     source,
		propagator: propagator,
		cfg:        cfg.normalized(),
		tracer:     otel.Tracer("profiledex/projector"),
	}
}

// Run drains the feed until ctx is cancelled, sleeping PollInterval while
// the feed is empty. A failed projection is still acknowledged: per the
// propagation contract there is no retry, only the warning and the next
// mutation or reconcile pass.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.source == nil || l.propagator == nil {
		return fmt.Errorf("loop is not configured")
	}
	for {
		processed, err := l.processBatch(ctx)
		if err != nil {
			return err
		}
		if processed > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.PollInterval):
		}
	}
}

func (l *Loop) processBatch(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	mutations, err := l.source.ListPendingMutations(ctx, l.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending mutations: %w", err)
	}
	for _, mutation := range mutations {
		outcome := l.apply(ctx, mutation)
		if err := l.source.AckMutation(ctx, mutation.Seq); err != nil {
			return 0, fmt.Errorf("ack mutation %d: %w", mutation.Seq, err)
		}
		if outcome.Status == projection.OutcomeFailed {
			log.Printf("projector: mutation %d (%s %q) not projected", mutation.Seq, mutation.Op, outcome.Key)
		}
	}
	return len(mutations), nil
}

func (l *Loop) apply(ctx context.Context, mutation storage.Mutation) projection.Outcome {
	ctx, span := l.tracer.Start(ctx, "projector.apply",
		trace.WithAttributes(
			attribute.Int64("mutation.seq", int64(mutation.Seq)),
			attribute.String("mutation.op", string(mutation.Op)),
		),
	)
	defer span.End()

	var outcome projection.Outcome
	switch mutation.Op {
	case storage.MutationDelete:
		outcome = l.propagator.OnSourceDelete(ctx, mutation.KeyHint)
	default:
		rec, err := l.source.GetSourceRecord(ctx, mutation.SourceID)
		if errors.Is(err, storage.ErrNotFound) {
			// Source row vanished after enqueue; the matching delete
			// mutation is already behind this one.
			outcome = projection.Outcome{Status: projection.OutcomeSkippedEmpty, Key: mutation.KeyHint}
		} else if err != nil {
			outcome = projection.Outcome{Status: projection.OutcomeFailed, Key: mutation.KeyHint, Err: err}
		} else {
			outcome = l.propagator.OnSourceInsertOrUpdate(ctx, rec, mutation.Seq)
		}
	}

	span.SetAttributes(
		attribute.String("mutation.outcome", string(outcome.Status)),
		attribute.String("profile.key", outcome.Key),
	)
	return outcome
}
