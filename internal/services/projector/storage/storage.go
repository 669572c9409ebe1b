// Package storage defines the persistence contracts between the projection
// engine and its SQLite stores: the source-of-truth document table with its
// mutation feed, and the derived profile table with full-text search.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/domain"
)

// ErrNotFound reports a missing record for lookups that require one.
var ErrNotFound = errors.New("record not found")

// SourceRecord is one row of the source-of-truth document table. Key is
// authoritative when present; Document may follow any supported shape.
type SourceRecord struct {
	ID        int64
	Key       string
	Label     string
	Document  json.RawMessage
	UpdatedAt time.Time
}

// MutationOp is the kind of source mutation carried by the feed.
type MutationOp string

const (
	MutationUpsert MutationOp = "upsert"
	MutationDelete MutationOp = "delete"
)

// Mutation is one entry of the seq-ordered, at-least-once mutation feed.
// Seq is assigned at enqueue time in source-commit order, so consuming in
// seq order serializes same-key mutations.
type Mutation struct {
	Seq        uint64
	Op         MutationOp
	KeyHint    string
	SourceID   int64
	EnqueuedAt time.Time
}

// ProfileRecord is one derived row: the flattened record plus write metadata.
// SourceSeq guards against an older mutation overwriting a newer write.
type ProfileRecord struct {
	Flattened domain.FlattenedRecord
	SourceSeq uint64
	UpdatedAt time.Time
}

// SearchResult pairs a profile key with its relevance score.
type SearchResult struct {
	Key      string
	FullName string
	Score    float64
}

// ProfileStore persists the derived projection. PutProfile is a full-column
// overwrite upsert that also refreshes the search index atomically;
// DeleteProfile is a no-op for missing keys.
type ProfileStore interface {
	PutProfile(ctx context.Context, rec ProfileRecord) error
	DeleteProfile(ctx context.Context, key string) error
	GetProfile(ctx context.Context, key string) (ProfileRecord, error)
	CountProfiles(ctx context.Context) (int64, error)
}

// ProfileSearcher exposes the query surface of the derived store.
type ProfileSearcher interface {
	// Search runs weighted full-text search over the search representation.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// LookupByCompany matches current company by exact or prefix match.
	LookupByCompany(ctx context.Context, company string, limit int) ([]string, error)
}

// SourceStore exposes the source-of-truth table and its mutation feed.
// PutSourceRecord and DeleteSourceRecord enqueue the matching mutation in the
// same transaction, which is what gives the feed source-commit order.
type SourceStore interface {
	PutSourceRecord(ctx context.Context, rec SourceRecord) (int64, error)
	DeleteSourceRecord(ctx context.Context, key string) error
	GetSourceRecord(ctx context.Context, id int64) (SourceRecord, error)

	ListPendingMutations(ctx context.Context, limit int) ([]Mutation, error)
	AckMutation(ctx context.Context, seq uint64) error

	// ListSourceWinners pages the deduplicated source set for reconciliation:
	// one row per key after afterKey, in ascending key order. Per key the
	// winner is the greatest updated_at, ties broken by lowest id.
	ListSourceWinners(ctx context.Context, afterKey string, limit int) ([]SourceRecord, error)
	CountSourceRecords(ctx context.Context) (int64, error)
}
