package entities_test

import (
	"testing"

	"meridian/contexts/finance-core/settlement-engine/domain/entities"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	if !entities.CanTransition(entities.PayoutStatusPending, entities.PayoutStatusSent) {
		t.Fatalf("pending must advance to sent")
	}
	if !entities.CanTransition(entities.PayoutStatusPending, entities.PayoutStatusFailed) {
		t.Fatalf("pending must be allowed to fail")
	}
	if !entities.CanTransition(entities.PayoutStatusSent, entities.PayoutStatusPaid) {
		t.Fatalf("sent must advance to paid")
	}
	if !entities.CanTransition(entities.PayoutStatusSent, entities.PayoutStatusFailed) {
		t.Fatalf("sent must be allowed to fail")
	}
}

func TestCanTransitionRejectsSkipsAndReversals(t *testing.T) {
	if entities.CanTransition(entities.PayoutStatusPending, entities.PayoutStatusPaid) {
		t.Fatalf("pending must never skip straight to paid")
	}
	if entities.CanTransition(entities.PayoutStatusSent, entities.PayoutStatusPending) {
		t.Fatalf("sent must never revert to pending")
	}
	if entities.CanTransition(entities.PayoutStatusPaid, entities.PayoutStatusSent) {
		t.Fatalf("paid is terminal")
	}
	if entities.CanTransition(entities.PayoutStatusFailed, entities.PayoutStatusSent) {
		t.Fatalf("failed never advances without an explicit reset")
	}
	if entities.CanTransition(entities.PayoutStatus("unknown"), entities.PayoutStatusSent) {
		t.Fatalf("unknown status must be rejected")
	}
}
