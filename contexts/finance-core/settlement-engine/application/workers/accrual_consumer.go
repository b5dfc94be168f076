package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "meridian/contexts/finance-core/settlement-engine/application"
	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

const (
	rewardPayoutEligibleTopic = "reward.payout_eligible"
	defaultAccrualConsumerGrp = "settlement-engine-accrual-cg"
	defaultAccrualDedupTTL    = 7 * 24 * time.Hour
)

// AccrualConsumer turns approved-submission reward events into pending
// payout records. This is the only creation path for payouts.
type AccrualConsumer struct {
	Subscriber    ports.Subscriber
	Payouts       ports.PayoutStore
	Dedup         ports.EventDedupStore
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type rewardPayoutEligiblePayload struct {
	SubmissionID string    `json:"submission_id"`
	CreatorID    string    `json:"creator_id"`
	CompanyID    string    `json:"company_id"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	EligibleAt   time.Time `json:"eligible_at"`
}

func (c AccrualConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultAccrualConsumerGrp
	}
	return c.Subscriber.Subscribe(ctx, rewardPayoutEligibleTopic, group, c.handleEligible)
}

func (c AccrualConsumer) handleEligible(ctx context.Context, event ports.EventEnvelope) error {
	var payload rewardPayoutEligiblePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return err
	}
	return c.Consume(ctx, event.EventID, ports.RewardPayoutEligibleEvent{
		SubmissionID: payload.SubmissionID,
		CreatorID:    payload.CreatorID,
		CompanyID:    payload.CompanyID,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		EligibleAt:   payload.EligibleAt,
	})
}

// Consume accrues one pending payout for the event. The dedup
// reservation and the payout insert are separate writes, so every step
// after the reservation must be idempotent: the payout id is a pure
// function of the event id, a redelivery that finds the reservation but
// no payout re-runs the insert, and a duplicate insert defers to the
// stored row.
func (c AccrualConsumer) Consume(
	ctx context.Context,
	eventID string,
	event ports.RewardPayoutEligibleEvent,
) error {
	logger := application.ResolveLogger(c.Logger)
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || !isValidEligibleEvent(event) {
		return domainerrors.ErrInvalidInput
	}

	payloadHash := hashAccrualPayload(event)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, eventID, payloadHash, c.now().Add(c.dedupTTL()))
	if err != nil {
		return err
	}

	payoutID := accrualPayoutID(eventID)
	if alreadyProcessed {
		existing, getErr := c.Payouts.GetPayout(ctx, payoutID)
		if getErr == nil {
			logger.Info("reward event already accrued",
				"event", "payout_accrual_deduplicated",
				"module", "finance-core/settlement-engine",
				"layer", "worker",
				"event_id", eventID,
				"payout_id", existing.PayoutID,
			)
			return c.appendCreatedEvent(ctx, eventID, existing)
		}
		if !errors.Is(getErr, domainerrors.ErrPayoutNotFound) {
			return getErr
		}
		// The reservation landed but the payout write was lost to a
		// transient failure; redo the insert.
	}

	now := c.now()
	payout := entities.Payout{
		PayoutID:     payoutID,
		CreatorID:    strings.TrimSpace(event.CreatorID),
		CompanyID:    strings.TrimSpace(event.CompanyID),
		SubmissionID: strings.TrimSpace(event.SubmissionID),
		Amount:       event.Amount,
		Currency:     strings.ToUpper(strings.TrimSpace(event.Currency)),
		Status:       entities.PayoutStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if !payout.ValidateCreate() {
		return domainerrors.ErrInvalidInput
	}
	if err := c.Payouts.CreatePayout(ctx, payout); err != nil {
		if !errors.Is(err, domainerrors.ErrPayoutExists) {
			return err
		}
		stored, getErr := c.Payouts.GetPayout(ctx, payoutID)
		if getErr != nil {
			return getErr
		}
		payout = stored
	}

	logger.Info("payout accrued",
		"event", "payout_accrued",
		"module", "finance-core/settlement-engine",
		"layer", "worker",
		"payout_id", payout.PayoutID,
		"creator_id", payout.CreatorID,
		"company_id", payout.CompanyID,
		"amount", payout.Amount,
	)
	return c.appendCreatedEvent(ctx, eventID, payout)
}

// appendCreatedEvent records payout.created with values fixed at
// creation time, so replays marshal byte-identical envelopes and the
// outbox append stays idempotent even after the payout advances.
func (c AccrualConsumer) appendCreatedEvent(ctx context.Context, sourceEventID string, payout entities.Payout) error {
	if c.Outbox == nil {
		return nil
	}
	data, err := json.Marshal(map[string]any{
		"payout_id":       payout.PayoutID,
		"creator_id":      payout.CreatorID,
		"company_id":      payout.CompanyID,
		"submission_id":   payout.SubmissionID,
		"amount":          payout.Amount,
		"currency":        payout.Currency,
		"status":          string(entities.PayoutStatusPending),
		"source_event_id": sourceEventID,
	})
	if err != nil {
		return err
	}
	return c.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          accrualCreatedEventID(sourceEventID),
		EventType:        "payout.created",
		OccurredAt:       payout.CreatedAt,
		SourceService:    "settlement-engine",
		TraceID:          sourceEventID,
		SchemaVersion:    1,
		PartitionKeyPath: "payout_id",
		PartitionKey:     payout.PayoutID,
		Data:             data,
	})
}

func (c AccrualConsumer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}

func (c AccrualConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return defaultAccrualDedupTTL
	}
	return c.DedupTTL
}

func isValidEligibleEvent(event ports.RewardPayoutEligibleEvent) bool {
	return strings.TrimSpace(event.SubmissionID) != "" &&
		strings.TrimSpace(event.CreatorID) != "" &&
		strings.TrimSpace(event.CompanyID) != "" &&
		strings.TrimSpace(event.Currency) != "" &&
		event.Amount > 0
}

// accrualPayoutID derives the payout id from the event id so that
// redeliveries and concurrent consumers converge on one row.
func accrualPayoutID(eventID string) string {
	sum := sha256.Sum256([]byte("payout:" + eventID))
	return hex.EncodeToString(sum[:])
}

func accrualCreatedEventID(sourceEventID string) string {
	sum := sha256.Sum256([]byte("payout.created:" + sourceEventID))
	return hex.EncodeToString(sum[:])
}

func hashAccrualPayload(event ports.RewardPayoutEligibleEvent) string {
	raw, _ := json.Marshal(map[string]any{
		"submission_id": strings.TrimSpace(event.SubmissionID),
		"creator_id":    strings.TrimSpace(event.CreatorID),
		"company_id":    strings.TrimSpace(event.CompanyID),
		"amount":        event.Amount,
		"currency":      strings.ToUpper(strings.TrimSpace(event.Currency)),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
