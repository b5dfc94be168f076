package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"meridian/contexts/finance-core/settlement-engine/adapters/memory"
	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

func seedPayout(t *testing.T, store *memory.Store, version int64) entities.Payout {
	t.Helper()
	payout := entities.Payout{
		PayoutID:     "payout-1",
		CreatorID:    "creator-1",
		CompanyID:    "company-1",
		SubmissionID: "submission-1",
		Amount:       50,
		Currency:     "USD",
		Status:       entities.PayoutStatusPending,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
		UpdatedAt:    time.Now().UTC().Add(-time.Hour),
		Version:      version,
	}
	if err := store.CreatePayout(context.Background(), payout); err != nil {
		t.Fatalf("seed payout failed: %v", err)
	}
	return payout
}

func TestCompareAndSwapBumpsVersionAndKeepsIdentity(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seeded := seedPayout(t, store, 1)

	updated, err := store.CompareAndSwapPayout(ctx, "payout-1", 1, func(p entities.Payout) entities.Payout {
		p.Status = entities.PayoutStatusSent
		p.PayoutID = "tampered"
		p.Version = 99
		return p
	})
	if err != nil {
		t.Fatalf("cas failed: %v", err)
	}
	if updated.PayoutID != seeded.PayoutID {
		t.Fatalf("store must own identity, got %s", updated.PayoutID)
	}
	if updated.Version != 2 {
		t.Fatalf("store must own the version counter, got %d", updated.Version)
	}
	if !updated.CreatedAt.Equal(seeded.CreatedAt) {
		t.Fatalf("created_at must be preserved")
	}
	if !updated.UpdatedAt.After(seeded.UpdatedAt) {
		t.Fatalf("updated_at must be stamped")
	}
}

func TestCompareAndSwapRejectsStaleVersion(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedPayout(t, store, 1)

	if _, err := store.CompareAndSwapPayout(ctx, "payout-1", 1, func(p entities.Payout) entities.Payout {
		p.Status = entities.PayoutStatusSent
		return p
	}); err != nil {
		t.Fatalf("first cas failed: %v", err)
	}

	_, err := store.CompareAndSwapPayout(ctx, "payout-1", 1, func(p entities.Payout) entities.Payout {
		p.Status = entities.PayoutStatusFailed
		return p
	})
	if !errors.Is(err, domainerrors.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	current, err := store.GetPayout(ctx, "payout-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.Status != entities.PayoutStatusSent {
		t.Fatalf("losing write must not land, got %s", current.Status)
	}
}

func TestCompareAndSwapUnknownPayout(t *testing.T) {
	store := memory.NewStore()
	_, err := store.CompareAndSwapPayout(context.Background(), "missing", 1, func(p entities.Payout) entities.Payout {
		return p
	})
	if !errors.Is(err, domainerrors.ErrPayoutNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreatePayoutRejectsDuplicate(t *testing.T) {
	store := memory.NewStore()
	payout := seedPayout(t, store, 1)
	if err := store.CreatePayout(context.Background(), payout); !errors.Is(err, domainerrors.ErrPayoutExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestReserveEventDedupSemantics(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	replayed, err := store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || replayed {
		t.Fatalf("first reservation must succeed fresh, got %v %v", replayed, err)
	}
	replayed, err = store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || !replayed {
		t.Fatalf("same payload must report replay, got %v %v", replayed, err)
	}
	if _, err := store.ReserveEvent(ctx, "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrEventDuplicate) {
		t.Fatalf("differing payload for a known event must error, got %v", err)
	}
}

func TestOutboxAppendListMarkCycle(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	data, _ := json.Marshal(map[string]string{"payout_id": "payout-1"})
	envelope := ports.EventEnvelope{
		EventID:       "evt-out-1",
		EventType:     "payout.sent",
		OccurredAt:    time.Now().UTC(),
		SourceService: "settlement-engine",
		SchemaVersion: 1,
		PartitionKey:  "payout-1",
		Data:          data,
	}

	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("idempotent re-append must succeed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending message, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, "evt-out-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("published message must leave the pending set")
	}
}
