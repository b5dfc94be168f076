package workers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"meridian/contexts/finance-core/settlement-engine/adapters/memory"
	"meridian/contexts/finance-core/settlement-engine/application/workers"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
		BatchSize: 10,
	}
	ctx := context.Background()

	if err := store.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:       "evt-relay-1",
		EventType:     "payout.sent",
		OccurredAt:    time.Now().UTC(),
		SourceService: "settlement-engine",
		SchemaVersion: 1,
		PartitionKey:  "payout-1",
		Data:          []byte(`{"payout_id":"payout-1"}`),
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.topics) != 1 || publisher.topics[0] != "payout.sent" {
		t.Fatalf("expected publish on event type topic, got %v", publisher.topics)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("relayed message must be marked published")
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("idle relay run failed: %v", err)
	}
	if len(publisher.topics) != 1 {
		t.Fatalf("second run must not republish, got %v", publisher.topics)
	}
}
