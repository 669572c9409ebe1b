package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

// Source-of-truth table and mutation feed methods.

// resolvedKeySQL mirrors the key fallback chain (explicit key, embedded id,
// alternate profile id) so dedup and paging group rows the same way the
// propagator resolves them. json_extract aborts the whole query on malformed
// JSON, so the embedded fallbacks only run when json_valid holds; a malformed
// keyless row resolves to NULL and drops out of the winner set.
const resolvedKeySQL = `COALESCE(
	NULLIF(TRIM(key), ''),
	CASE WHEN json_valid(document)
		THEN NULLIF(TRIM(COALESCE(json_extract(document, '$.id'), '')), '')
	END,
	CASE WHEN json_valid(document)
		THEN NULLIF(TRIM(COALESCE(json_extract(document, '$.profile_id'), '')), '')
	END
)`

// PutSourceRecord inserts or updates one source row and enqueues the
// matching upsert mutation in the same transaction, giving the feed
// source-commit order. It returns the row id.
func (s *Store) PutSourceRecord(ctx context.Context, rec storage.SourceRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin source write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := rec.ID
	if id > 0 {
		if _, err := tx.ExecContext(ctx, `
UPDATE source_records SET key = ?, label = ?, document = ?, updated_at = ? WHERE id = ?
`, rec.Key, rec.Label, string(rec.Document), toMillis(rec.UpdatedAt), id); err != nil {
			return 0, fmt.Errorf("update source record %d: %w", id, err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
INSERT INTO source_records (key, label, document, updated_at) VALUES (?, ?, ?, ?)
`, rec.Key, rec.Label, string(rec.Document), toMillis(rec.UpdatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert source record: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("source record id: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO source_mutations (op, key_hint, source_id, enqueued_at) VALUES (?, ?, ?, ?)
`, string(storage.MutationUpsert), rec.Key, id, toMillis(rec.UpdatedAt)); err != nil {
		return 0, fmt.Errorf("enqueue upsert mutation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit source write: %w", err)
	}
	return id, nil
}

// DeleteSourceRecord removes source rows for the key and enqueues the delete
// mutation. Deleting an unknown key still enqueues, so the derived row is
// cleared even if the source row was already gone.
func (s *Store) DeleteSourceRecord(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("source key is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin source delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM source_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete source record %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO source_mutations (op, key_hint, source_id, enqueued_at) VALUES (?, ?, 0, ?)
`, string(storage.MutationDelete), key, toMillis(time.Now().UTC())); err != nil {
		return fmt.Errorf("enqueue delete mutation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit source delete: %w", err)
	}
	return nil
}

// GetSourceRecord loads one source row by id.
func (s *Store) GetSourceRecord(ctx context.Context, id int64) (storage.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SourceRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SourceRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, key, label, document, updated_at FROM source_records WHERE id = ?
`, id)
	rec, err := scanSourceRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SourceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SourceRecord{}, fmt.Errorf("get source record %d: %w", id, err)
	}
	return rec, nil
}

// ListPendingMutations returns up to limit unacknowledged mutations in seq
// order.
func (s *Store) ListPendingMutations(ctx context.Context, limit int) ([]storage.Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, op, key_hint, source_id, enqueued_at
FROM source_mutations
ORDER BY seq
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}
	defer rows.Close()

	var mutations []storage.Mutation
	for rows.Next() {
		var m storage.Mutation
		var seq, enqueuedAt int64
		var op string
		if err := rows.Scan(&seq, &op, &m.KeyHint, &m.SourceID, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Seq = uint64(seq)
		m.Op = storage.MutationOp(op)
		m.EnqueuedAt = fromMillis(enqueuedAt)
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return mutations, nil
}

// AckMutation removes one processed mutation from the feed. Acking an
// unknown seq is a no-op, which keeps redelivery after a crash safe.
func (s *Store) AckMutation(ctx context.Context, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM source_mutations WHERE seq = ?`, int64(seq)); err != nil {
		return fmt.Errorf("ack mutation %d: %w", seq, err)
	}
	return nil
}

// ListSourceWinners pages the deduplicated source set: one winning row per
// resolved key after afterKey, ascending. The winner per key is the greatest
// updated_at, ties broken by lowest id.
func (s *Store) ListSourceWinners(ctx context.Context, afterKey string, limit int) ([]storage.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
WITH resolved AS (
	SELECT id, label, document, updated_at, `+resolvedKeySQL+` AS resolved_key
	FROM source_records
	WHERE document != '' AND document != '{}' AND document != 'null'
)
SELECT r.id, r.resolved_key, r.label, r.document, r.updated_at
FROM resolved r
WHERE r.resolved_key IS NOT NULL
  AND r.resolved_key > ?
  AND r.id = (
	SELECT r2.id FROM resolved r2
	WHERE r2.resolved_key = r.resolved_key
	ORDER BY r2.updated_at DESC, r2.id ASC
	LIMIT 1
  )
ORDER BY r.resolved_key ASC
LIMIT ?
`, afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list source winners: %w", err)
	}
	defer rows.Close()

	var records []storage.SourceRecord
	for rows.Next() {
		rec, err := scanSourceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source winner: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source winners: %w", err)
	}
	return records, nil
}

// CountSourceRecords reports the total number of source rows.
func (s *Store) CountSourceRecords(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM source_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count source records: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSourceRecord(row rowScanner) (storage.SourceRecord, error) {
	var rec storage.SourceRecord
	var document string
	var updatedAt int64
	if err := row.Scan(&rec.ID, &rec.Key, &rec.Label, &document, &updatedAt); err != nil {
		return storage.SourceRecord{}, err
	}
	if document != "" {
		rec.Document = []byte(document)
	}
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}
