package entities

import (
	"strings"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusSent    PayoutStatus = "sent"
	PayoutStatusPaid    PayoutStatus = "paid"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// Payout is an obligation to pay a creator for an approved submission.
// The record is only ever mutated through the store's compare-and-swap
// primitive; Version increments by exactly one per successful write.
type Payout struct {
	PayoutID      string
	CreatorID     string
	CompanyID     string
	SubmissionID  string
	Amount        float64
	Currency      string
	Status        PayoutStatus
	ExternalRef   *string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

func (p Payout) ValidateCreate() bool {
	return strings.TrimSpace(p.PayoutID) != "" &&
		strings.TrimSpace(p.CreatorID) != "" &&
		strings.TrimSpace(p.CompanyID) != "" &&
		p.Amount > 0 &&
		strings.TrimSpace(p.Currency) != ""
}

// CanTransition encodes the forward-only state machine:
// pending -> sent -> paid, with pending/sent -> failed as terminal failures.
func CanTransition(from, to PayoutStatus) bool {
	switch from {
	case PayoutStatusPending:
		return to == PayoutStatusSent || to == PayoutStatusFailed
	case PayoutStatusSent:
		return to == PayoutStatusPaid || to == PayoutStatusFailed
	default:
		return false
	}
}
