package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "meridian/contexts/finance-core/settlement-engine/application"
	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

const (
	settlementConfirmedTopic    = "settlement.confirmed"
	defaultConfirmationConsumer = "settlement-engine-confirmation-cg"
)

// ConfirmationConsumer advances sent payouts to paid when the provider
// reports that funds actually moved.
type ConfirmationConsumer struct {
	Subscriber    ports.Subscriber
	Engine        confirmer
	ConsumerGroup string
	Logger        *slog.Logger
}

type confirmer interface {
	ConfirmSettlement(ctx context.Context, payoutID string, externalRef string) (entities.Payout, error)
}

type settlementConfirmedPayload struct {
	PayoutID    string    `json:"payout_id"`
	ExternalRef string    `json:"external_ref"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (c ConfirmationConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultConfirmationConsumer
	}
	return c.Subscriber.Subscribe(ctx, settlementConfirmedTopic, group, c.handleConfirmed)
}

func (c ConfirmationConsumer) handleConfirmed(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload settlementConfirmedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return err
	}

	_, err := c.Engine.ConfirmSettlement(ctx, payload.PayoutID, payload.ExternalRef)
	if err != nil {
		// A confirmation for an unknown or already-terminal payout is not
		// retryable; log for manual follow-up and drop it.
		if errors.Is(err, domainerrors.ErrPayoutNotFound) ||
			errors.Is(err, domainerrors.ErrInvalidPayoutState) ||
			errors.Is(err, domainerrors.ErrExternalRefMismatch) {
			logger.Warn("settlement confirmation dropped",
				"event", "payout_confirmation_dropped",
				"module", "finance-core/settlement-engine",
				"layer", "worker",
				"payout_id", payload.PayoutID,
				"external_ref", payload.ExternalRef,
				"error", err.Error(),
			)
			return nil
		}
		return err
	}
	return nil
}
