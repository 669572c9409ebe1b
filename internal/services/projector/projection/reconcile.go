package projection

import (
	"context"
	"fmt"

	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

const reconcilePageSize = 200

// Report summarizes one reconciliation pass. Gap is the coarse failure
// signal: source rows that did not produce a written profile.
type Report struct {
	Considered int64
	Written    int64
	Gap        int64
}

// Reconciler replays the normalizer over the whole source set, bypassing the
// mutation feed.
type Reconciler struct {
	source     SourceReader
	propagator *Propagator
	pageSize   int
}

// SourceReader is the slice of the source store the reconciler needs.
type SourceReader interface {
	ListSourceWinners(ctx context.Context, afterKey string, limit int) ([]storage.SourceRecord, error)
	CountSourceRecords(ctx context.Context) (int64, error)
}

// NewReconciler creates a reconciler reading winners from source and writing
// through propagator.
func NewReconciler(source SourceReader, propagator *Propagator) *Reconciler {
	return &Reconciler{source: source, propagator: propagator, pageSize: reconcilePageSize}
}

// Reconcile re-derives every source record with a resolvable key and a
// non-empty document. Duplicate keys are already collapsed by the store's
// winner query (greatest updated_at per key, lowest id on ties), so each key
// is written at most once per pass. Individual failures are counted, never
// fatal.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	if r == nil || r.source == nil || r.propagator == nil {
		return Report{}, fmt.Errorf("reconciler is not configured")
	}

	report := Report{}
	total, err := r.source.CountSourceRecords(ctx)
	if err != nil {
		return report, fmt.Errorf("count source records: %w", err)
	}
	report.Considered = total

	afterKey := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := r.source.ListSourceWinners(ctx, afterKey, r.pageSize)
		if err != nil {
			return report, fmt.Errorf("list source page after %q: %w", afterKey, err)
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			afterKey = rec.Key
			outcome := r.propagator.OnSourceInsertOrUpdate(ctx, rec, 0)
			if outcome.Status == OutcomeApplied {
				report.Written++
			}
		}
	}

	report.Gap = report.Considered - report.Written
	return report, nil
}
