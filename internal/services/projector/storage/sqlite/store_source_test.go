package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

func TestPutSourceRecordEnqueuesMutation(t *testing.T) {
	store := openTempStore(t)

	id, err := store.PutSourceRecord(context.Background(), storage.SourceRecord{
		Key:      "p1",
		Label:    "import-batch-1",
		Document: []byte(`{"name":"Jane"}`),
	})
	if err != nil {
		t.Fatalf("put source record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned row id")
	}

	mutations, err := store.ListPendingMutations(context.Background(), 10)
	if err != nil {
		t.Fatalf("list mutations: %v", err)
	}
	if len(mutations) != 1 {
		t.Fatalf("expected one mutation, got %d", len(mutations))
	}
	m := mutations[0]
	if m.Op != storage.MutationUpsert || m.KeyHint != "p1" || m.SourceID != id {
		t.Fatalf("unexpected mutation %+v", m)
	}

	rec, err := store.GetSourceRecord(context.Background(), id)
	if err != nil {
		t.Fatalf("get source record: %v", err)
	}
	if rec.Key != "p1" || rec.Label != "import-batch-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestMutationFeedPreservesCommitOrder(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{Key: "a", Document: []byte(`{"name":"A"}`)}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{Key: "b", Document: []byte(`{"name":"B"}`)}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := store.DeleteSourceRecord(ctx, "a"); err != nil {
		t.Fatalf("delete a: %v", err)
	}

	mutations, err := store.ListPendingMutations(ctx, 10)
	if err != nil {
		t.Fatalf("list mutations: %v", err)
	}
	if len(mutations) != 3 {
		t.Fatalf("expected 3 mutations, got %d", len(mutations))
	}
	for i := 1; i < len(mutations); i++ {
		if mutations[i].Seq <= mutations[i-1].Seq {
			t.Fatalf("expected ascending seqs, got %d then %d", mutations[i-1].Seq, mutations[i].Seq)
		}
	}
	if mutations[2].Op != storage.MutationDelete || mutations[2].KeyHint != "a" {
		t.Fatalf("expected trailing delete for a, got %+v", mutations[2])
	}
}

func TestAckMutationRemovesFromFeed(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{Key: "p1", Document: []byte(`{"name":"Jane"}`)}); err != nil {
		t.Fatalf("put source: %v", err)
	}
	mutations, err := store.ListPendingMutations(ctx, 10)
	if err != nil {
		t.Fatalf("list mutations: %v", err)
	}
	if err := store.AckMutation(ctx, mutations[0].Seq); err != nil {
		t.Fatalf("ack mutation: %v", err)
	}

	remaining, err := store.ListPendingMutations(ctx, 10)
	if err != nil {
		t.Fatalf("list after ack: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty feed, got %d", len(remaining))
	}
	// Acking the same seq again is safe.
	if err := store.AckMutation(ctx, mutations[0].Seq); err != nil {
		t.Fatalf("re-ack mutation: %v", err)
	}
}

func TestListSourceWinnersDedupPolicy(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two rows share key "dup"; the later updated_at wins.
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "dup", Document: []byte(`{"name":"Old"}`), UpdatedAt: base,
	}); err != nil {
		t.Fatalf("put old dup: %v", err)
	}
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "dup", Document: []byte(`{"name":"New"}`), UpdatedAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("put new dup: %v", err)
	}
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "solo", Document: []byte(`{"name":"Solo"}`), UpdatedAt: base,
	}); err != nil {
		t.Fatalf("put solo: %v", err)
	}
	// Empty or unusable documents never win.
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "empty", Document: []byte(`{}`), UpdatedAt: base,
	}); err != nil {
		t.Fatalf("put empty: %v", err)
	}

	winners, err := store.ListSourceWinners(ctx, "", 10)
	if err != nil {
		t.Fatalf("list winners: %v", err)
	}
	byKey := map[string]storage.SourceRecord{}
	for _, rec := range winners {
		byKey[rec.Key] = rec
	}
	if len(winners) != 2 {
		t.Fatalf("expected winners for dup and solo only, got %d", len(winners))
	}
	if _, ok := byKey["empty"]; ok {
		t.Fatal("expected empty document excluded from winners")
	}
	if string(byKey["dup"].Document) != `{"name":"New"}` {
		t.Fatalf("expected most recent row to win, got %s", byKey["dup"].Document)
	}
}

func TestListSourceWinnersTieBreaksOnLowestID(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	firstID, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "tie", Document: []byte(`{"name":"First"}`), UpdatedAt: same,
	})
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "tie", Document: []byte(`{"name":"Second"}`), UpdatedAt: same,
	}); err != nil {
		t.Fatalf("put second: %v", err)
	}

	winners, err := store.ListSourceWinners(ctx, "", 10)
	if err != nil {
		t.Fatalf("list winners: %v", err)
	}
	if len(winners) != 1 {
		t.Fatalf("expected one winner, got %d", len(winners))
	}
	if winners[0].ID != firstID {
		t.Fatalf("expected lowest id to win the tie, got %d", winners[0].ID)
	}
}

func TestListSourceWinnersResolvesEmbeddedKey(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Document: []byte(`{"id":"embedded-1","name":"Jane"}`),
	}); err != nil {
		t.Fatalf("put embedded: %v", err)
	}
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Document: []byte(`{"name":"keyless"}`),
	}); err != nil {
		t.Fatalf("put keyless: %v", err)
	}

	winners, err := store.ListSourceWinners(ctx, "", 10)
	if err != nil {
		t.Fatalf("list winners: %v", err)
	}
	if len(winners) != 1 {
		t.Fatalf("expected only resolvable rows, got %d", len(winners))
	}
	if winners[0].Key != "embedded-1" {
		t.Fatalf("expected resolved key from document, got %q", winners[0].Key)
	}
}

func TestListSourceWinnersToleratesMalformedDocument(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "good", Document: []byte(`{"name":"Jane"}`),
	}); err != nil {
		t.Fatalf("put good: %v", err)
	}
	// A keyless row with broken JSON must not abort the whole query; it
	// resolves to no key and is left for the gap count.
	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Document: []byte(`not json`),
	}); err != nil {
		t.Fatalf("put malformed: %v", err)
	}

	winners, err := store.ListSourceWinners(ctx, "", 10)
	if err != nil {
		t.Fatalf("list winners: %v", err)
	}
	if len(winners) != 1 || winners[0].Key != "good" {
		t.Fatalf("expected only the good winner, got %v", winners)
	}
}

func TestListSourceWinnersKeepsKeyedMalformedDocument(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
		Key: "broken", Document: []byte(`{"name":`),
	}); err != nil {
		t.Fatalf("put keyed malformed: %v", err)
	}

	// The explicit key still resolves, so the row stays in the winner set
	// and its document failure is reported downstream per entry.
	winners, err := store.ListSourceWinners(ctx, "", 10)
	if err != nil {
		t.Fatalf("list winners: %v", err)
	}
	if len(winners) != 1 || winners[0].Key != "broken" {
		t.Fatalf("expected keyed row to survive, got %v", winners)
	}
}

func TestListSourceWinnersKeysetPaging(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		if _, err := store.PutSourceRecord(ctx, storage.SourceRecord{
			Key: key, Document: []byte(`{"name":"X"}`),
		}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	first, err := store.ListSourceWinners(ctx, "", 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || first[0].Key != "k1" || first[1].Key != "k2" {
		t.Fatalf("unexpected first page %v", first)
	}
	second, err := store.ListSourceWinners(ctx, first[1].Key, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 || second[0].Key != "k3" {
		t.Fatalf("unexpected second page %v", second)
	}
}
