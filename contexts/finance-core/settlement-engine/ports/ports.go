package ports

import (
	"context"
	"time"

	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	contractsv1 "meridian/contracts/gen/events/v1"
)

// PayoutStore is the only write path to payout records. Reads that feed a
// transition decision must be paired with a CompareAndSwapPayout using the
// version observed at decision time.
type PayoutStore interface {
	GetPayout(ctx context.Context, payoutID string) (entities.Payout, error)
	CreatePayout(ctx context.Context, payout entities.Payout) error
	// CompareAndSwapPayout applies mutate to the stored payout iff its
	// version still equals expectedVersion, bumps the version by one and
	// stamps UpdatedAt. Returns ErrVersionConflict when another writer won.
	CompareAndSwapPayout(
		ctx context.Context,
		payoutID string,
		expectedVersion int64,
		mutate func(entities.Payout) entities.Payout,
	) (entities.Payout, error)
	ListPayouts(ctx context.Context, query PayoutListQuery) ([]entities.Payout, int, error)
}

type PayoutListQuery struct {
	CompanyID string
	CreatorID string
	Status    entities.PayoutStatus
	Limit     int
	Offset    int
}

// SettlementRequest is the boundary contract with the external provider.
// The provider is expected to deduplicate on IdempotencyKey.
type SettlementRequest struct {
	PayoutID       string
	Amount         float64
	Currency       string
	IdempotencyKey string
}

type SettlementReceipt struct {
	ExternalRef string
}

// SettlementProvider moves real funds. The call is irreversible once
// issued: the engine never invokes it twice for the same pending payout
// version and never retries it internally.
type SettlementProvider interface {
	Send(ctx context.Context, request SettlementRequest) (SettlementReceipt, error)
}

type RewardPayoutEligibleEvent struct {
	SubmissionID string
	CreatorID    string
	CompanyID    string
	Amount       float64
	Currency     string
	EligibleAt   time.Time
}

type EventDedupStore interface {
	// ReserveEvent returns true when the event was already processed with
	// the same payload hash. A differing hash for a known event id is an
	// error.
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Subscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
