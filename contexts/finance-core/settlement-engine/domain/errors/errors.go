package errors

import "errors"

var (
	ErrUnauthenticated     = errors.New("no authenticated principal")
	ErrForbidden           = errors.New("principal is not allowed to perform this action")
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrPayoutExists        = errors.New("payout already exists")
	ErrInvalidPayoutState  = errors.New("payout is not in a state that allows this transition")
	ErrVersionConflict     = errors.New("payout was modified concurrently")
	ErrSettlementFailed    = errors.New("settlement provider rejected the payout")
	ErrProviderUnavailable = errors.New("settlement provider unavailable")
	ErrExternalRefMismatch = errors.New("settlement confirmation does not match stored external reference")
	ErrInvalidInput        = errors.New("payout input is invalid")
	ErrEventDuplicate      = errors.New("event payload differs from an already processed event")
	ErrOutboxNotFound      = errors.New("outbox message not found")
)
