package services_test

import (
	"testing"

	"meridian/contexts/finance-core/settlement-engine/domain/services"
)

func TestSettlementKeyIsDeterministic(t *testing.T) {
	first := services.SettlementKey("payout-1", 1)
	second := services.SettlementKey("payout-1", 1)
	if first != second {
		t.Fatalf("same payout and version must yield the same key")
	}
	if len(first) != 64 {
		t.Fatalf("expected sha256 hex key, got %d chars", len(first))
	}
}

func TestSettlementKeyVariesByPayoutAndVersion(t *testing.T) {
	base := services.SettlementKey("payout-1", 1)
	if services.SettlementKey("payout-1", 2) == base {
		t.Fatalf("a new version must mint a new key")
	}
	if services.SettlementKey("payout-2", 1) == base {
		t.Fatalf("different payouts must mint different keys")
	}
}
