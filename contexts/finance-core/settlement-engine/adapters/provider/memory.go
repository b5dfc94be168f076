package provider

import (
	"context"
	"strings"
	"sync"

	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

// MemoryProvider is an in-memory settlement provider that deduplicates on
// the idempotency key the way a real payment rail would: a repeated key
// returns the original receipt without moving funds again. It backs the
// in-memory module wiring and the concurrency tests.
type MemoryProvider struct {
	mu sync.Mutex

	receipts    map[string]ports.SettlementReceipt
	invocations int

	// FailFor marks idempotency keys whose first invocation should fail
	// with ErrProviderUnavailable.
	failFor map[string]bool
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		receipts: make(map[string]ports.SettlementReceipt),
		failFor:  make(map[string]bool),
	}
}

func (p *MemoryProvider) Send(_ context.Context, request ports.SettlementRequest) (ports.SettlementReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.TrimSpace(request.IdempotencyKey)
	if key == "" || strings.TrimSpace(request.PayoutID) == "" {
		return ports.SettlementReceipt{}, domainerrors.ErrInvalidInput
	}

	if receipt, ok := p.receipts[key]; ok {
		return receipt, nil
	}

	p.invocations++
	if p.failFor[key] {
		delete(p.failFor, key)
		return ports.SettlementReceipt{}, domainerrors.ErrProviderUnavailable
	}

	ref := key
	if len(ref) > 12 {
		ref = ref[:12]
	}
	receipt := ports.SettlementReceipt{ExternalRef: "ext-" + ref}
	p.receipts[key] = receipt
	return receipt, nil
}

// FailNextFor makes the next unseen invocation for the key fail once.
func (p *MemoryProvider) FailNextFor(idempotencyKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFor[strings.TrimSpace(idempotencyKey)] = true
}

// Invocations reports how many distinct fund movements were attempted.
// Deduplicated replays do not count.
func (p *MemoryProvider) Invocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invocations
}
