// Package projection propagates source mutations into the derived profile
// store and rebuilds it wholesale. Projection failures are contained here:
// nothing in this package returns an error to the source-mutation path for a
// failed transform.
package projection

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/domain"
	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

// OutcomeStatus classifies how one mutation was handled.
type OutcomeStatus string

const (
	// OutcomeApplied means the flattened record was written.
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeDeleted means the flattened record was removed (or was absent).
	OutcomeDeleted OutcomeStatus = "deleted"
	// OutcomeSkippedNoKey means no usable key could be resolved.
	OutcomeSkippedNoKey OutcomeStatus = "skipped_no_key"
	// OutcomeSkippedEmpty means the document payload was null or empty.
	OutcomeSkippedEmpty OutcomeStatus = "skipped_empty_document"
	// OutcomeFailed means the transform or the store write faulted; any
	// prior flattened record is untouched.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome reports how the propagator handled one mutation. Err is diagnostic
// only; it is never surfaced to the source-mutation caller.
type Outcome struct {
	Status OutcomeStatus
	Key    string
	Err    error
}

// Propagator applies one source mutation at a time to the derived store.
type Propagator struct {
	profiles storage.ProfileStore
	opts     domain.Options
	clock    func() time.Time
	warnf    func(format string, args ...any)
}

// NewPropagator creates a propagator writing to profiles with the given
// normalization policy.
func NewPropagator(profiles storage.ProfileStore, opts domain.Options) *Propagator {
	return &Propagator{
		profiles: profiles,
		opts:     opts,
		clock:    time.Now,
		warnf:    log.Printf,
	}
}

// OnSourceInsertOrUpdate projects one inserted or updated source record.
// Every failure mode short of a nil store resolves to a warning plus an
// Outcome; the source mutation is never blocked or rolled back by the
// projection.
func (p *Propagator) OnSourceInsertOrUpdate(ctx context.Context, rec storage.SourceRecord, seq uint64) Outcome {
	if p == nil || p.profiles == nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("profile store is not configured")}
	}

	doc, err := domain.DocumentFromJSON(rec.Document)
	if err != nil {
		p.warnf("projector: skip source %d: %v", rec.ID, err)
		return Outcome{Status: OutcomeFailed, Err: err}
	}

	key, ok := domain.ResolveKey(rec.Key, doc)
	if !ok {
		p.warnf("projector: skip source %d: no resolvable key", rec.ID)
		return Outcome{Status: OutcomeSkippedNoKey}
	}
	if doc.IsEmpty() {
		p.warnf("projector: skip key %q: empty document", key)
		return Outcome{Status: OutcomeSkippedEmpty, Key: key}
	}

	flattened, err := p.normalize(doc, key)
	if err != nil {
		p.warnf("projector: transform failed for key %q: %v", key, err)
		return Outcome{Status: OutcomeFailed, Key: key, Err: err}
	}

	if err := p.profiles.PutProfile(ctx, storage.ProfileRecord{
		Flattened: *flattened,
		SourceSeq: seq,
		UpdatedAt: p.clock().UTC(),
	}); err != nil {
		p.warnf("projector: write failed for key %q: %v", key, err)
		return Outcome{Status: OutcomeFailed, Key: key, Err: err}
	}
	return Outcome{Status: OutcomeApplied, Key: key}
}

// OnSourceDelete removes the flattened record for the outgoing key. Deleting
// an absent record is a no-op; the caller always sees success unless the
// store itself is unreachable.
func (p *Propagator) OnSourceDelete(ctx context.Context, keyHint string) Outcome {
	if p == nil || p.profiles == nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Errorf("profile store is not configured")}
	}
	key, ok := domain.ResolveKey(keyHint, domain.Document{})
	if !ok {
		p.warnf("projector: skip delete: no resolvable key")
		return Outcome{Status: OutcomeSkippedNoKey}
	}
	if err := p.profiles.DeleteProfile(ctx, key); err != nil {
		p.warnf("projector: delete failed for key %q: %v", key, err)
		return Outcome{Status: OutcomeFailed, Key: key, Err: err}
	}
	return Outcome{Status: OutcomeDeleted, Key: key}
}

// normalize guards the pure transform: a panic anywhere inside the extractor
// or analyzer is recovered into an error so one malformed document cannot
// take down the mutation path.
func (p *Propagator) normalize(doc domain.Document, key string) (rec *domain.FlattenedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("transform panic: %v", r)
		}
	}()
	return domain.Normalize(doc, key, p.opts)
}
