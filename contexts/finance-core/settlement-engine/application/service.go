package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/domain/services"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

type Service struct {
	Payouts  ports.PayoutStore
	Provider ports.SettlementProvider
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// SendPayout advances one pending payout through settlement:
// load -> authorize -> pending guard -> provider call -> persist outcome.
// The provider call is the single irreversible step; everything before it
// is side-effect-free and everything after it is conflict-tolerant
// reconciliation against the store's compare-and-swap.
func (s Service) SendPayout(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (entities.Payout, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(principal.UserID) == "" {
		return entities.Payout{}, domainerrors.ErrUnauthenticated
	}
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return entities.Payout{}, domainerrors.ErrInvalidInput
	}

	payout, err := s.Payouts.GetPayout(ctx, payoutID)
	if err != nil {
		return entities.Payout{}, err
	}

	if !services.AdminOnly(principal, payout.CompanyID) {
		logger.Warn("payout send denied",
			"event", "payout_send_forbidden",
			"module", "finance-core/settlement-engine",
			"layer", "application",
			"payout_id", payout.PayoutID,
			"actor_id", principal.UserID,
			"actor_role", string(principal.Role),
		)
		return entities.Payout{}, domainerrors.ErrForbidden
	}

	if !entities.CanTransition(payout.Status, entities.PayoutStatusSent) {
		// The primary double-send defense: a retry that arrives after the
		// payout advanced observes the current state instead of a second
		// provider call. The snapshot is returned so transport can name
		// the current status.
		return payout, domainerrors.ErrInvalidPayoutState
	}

	key := services.SettlementKey(payout.PayoutID, payout.Version)
	receipt, sendErr := s.Provider.Send(ctx, ports.SettlementRequest{
		PayoutID:       payout.PayoutID,
		Amount:         payout.Amount,
		Currency:       payout.Currency,
		IdempotencyKey: key,
	})

	// Money may have moved once Send was issued. Persist the outcome even
	// if the caller cancelled while waiting; the store is the source of
	// truth for the caller's next retry.
	persistCtx := context.WithoutCancel(ctx)

	if sendErr != nil {
		return s.persistSettlementFailure(persistCtx, payout, sendErr)
	}
	return s.persistSettlementSuccess(persistCtx, payout, receipt)
}

func (s Service) persistSettlementSuccess(
	ctx context.Context,
	payout entities.Payout,
	receipt ports.SettlementReceipt,
) (entities.Payout, error) {
	logger := ResolveLogger(s.Logger)
	updated, casErr := s.Payouts.CompareAndSwapPayout(ctx, payout.PayoutID, payout.Version,
		func(p entities.Payout) entities.Payout {
			ref := receipt.ExternalRef
			p.Status = entities.PayoutStatusSent
			p.ExternalRef = &ref
			p.FailureReason = ""
			return p
		})
	if casErr != nil {
		if errors.Is(casErr, domainerrors.ErrVersionConflict) {
			// Another authorized writer advanced the payout between the
			// load and this write. The provider has already committed, so
			// never call it again; the winner's state is the answer.
			current, getErr := s.Payouts.GetPayout(ctx, payout.PayoutID)
			if getErr != nil {
				return entities.Payout{}, getErr
			}
			logger.Warn("payout already advanced by concurrent writer",
				"event", "payout_send_reconciled",
				"module", "finance-core/settlement-engine",
				"layer", "application",
				"payout_id", payout.PayoutID,
				"status", string(current.Status),
			)
			return current, nil
		}
		return entities.Payout{}, casErr
	}

	logger.Info("payout sent",
		"event", "payout_sent",
		"module", "finance-core/settlement-engine",
		"layer", "application",
		"payout_id", updated.PayoutID,
		"company_id", updated.CompanyID,
		"amount", updated.Amount,
		"currency", updated.Currency,
	)
	s.appendPayoutEvent(ctx, "payout.sent", updated)
	return updated, nil
}

func (s Service) persistSettlementFailure(
	ctx context.Context,
	payout entities.Payout,
	sendErr error,
) (entities.Payout, error) {
	logger := ResolveLogger(s.Logger)
	updated, casErr := s.Payouts.CompareAndSwapPayout(ctx, payout.PayoutID, payout.Version,
		func(p entities.Payout) entities.Payout {
			p.Status = entities.PayoutStatusFailed
			p.FailureReason = sendErr.Error()
			return p
		})
	if casErr != nil {
		if errors.Is(casErr, domainerrors.ErrVersionConflict) {
			// A concurrent writer already recorded an outcome; defer to it.
			current, getErr := s.Payouts.GetPayout(ctx, payout.PayoutID)
			if getErr != nil {
				return entities.Payout{}, getErr
			}
			return current, nil
		}
		return entities.Payout{}, casErr
	}

	logger.Error("payout settlement failed",
		"event", "payout_settlement_failed",
		"module", "finance-core/settlement-engine",
		"layer", "application",
		"payout_id", updated.PayoutID,
		"error", sendErr.Error(),
	)
	s.appendPayoutEvent(ctx, "payout.failed", updated)
	return updated, domainerrors.ErrSettlementFailed
}

// ConfirmSettlement records provider confirmation for a sent payout and
// advances it to paid. Driven by the settlement.confirmed consumer, not by
// callers.
func (s Service) ConfirmSettlement(
	ctx context.Context,
	payoutID string,
	externalRef string,
) (entities.Payout, error) {
	logger := ResolveLogger(s.Logger)
	payoutID = strings.TrimSpace(payoutID)
	externalRef = strings.TrimSpace(externalRef)
	if payoutID == "" || externalRef == "" {
		return entities.Payout{}, domainerrors.ErrInvalidInput
	}

	payout, err := s.Payouts.GetPayout(ctx, payoutID)
	if err != nil {
		return entities.Payout{}, err
	}
	if payout.Status == entities.PayoutStatusPaid {
		if payout.ExternalRef != nil && *payout.ExternalRef == externalRef {
			return payout, nil
		}
		return entities.Payout{}, domainerrors.ErrExternalRefMismatch
	}
	if !entities.CanTransition(payout.Status, entities.PayoutStatusPaid) {
		return payout, domainerrors.ErrInvalidPayoutState
	}
	if payout.ExternalRef == nil || *payout.ExternalRef != externalRef {
		return entities.Payout{}, domainerrors.ErrExternalRefMismatch
	}

	updated, casErr := s.Payouts.CompareAndSwapPayout(ctx, payout.PayoutID, payout.Version,
		func(p entities.Payout) entities.Payout {
			p.Status = entities.PayoutStatusPaid
			return p
		})
	if casErr != nil {
		if errors.Is(casErr, domainerrors.ErrVersionConflict) {
			current, getErr := s.Payouts.GetPayout(ctx, payout.PayoutID)
			if getErr != nil {
				return entities.Payout{}, getErr
			}
			if current.Status == entities.PayoutStatusPaid {
				return current, nil
			}
			return current, domainerrors.ErrInvalidPayoutState
		}
		return entities.Payout{}, casErr
	}

	logger.Info("payout paid",
		"event", "payout_paid",
		"module", "finance-core/settlement-engine",
		"layer", "application",
		"payout_id", updated.PayoutID,
		"external_ref", externalRef,
	)
	s.appendPayoutEvent(ctx, "payout.paid", updated)
	return updated, nil
}

// ResetPayout is the explicit compensating action for failed payouts.
// Never automatic: a failed payout stays failed until a tenant admin
// resets it to pending.
func (s Service) ResetPayout(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (entities.Payout, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(principal.UserID) == "" {
		return entities.Payout{}, domainerrors.ErrUnauthenticated
	}
	payout, err := s.Payouts.GetPayout(ctx, strings.TrimSpace(payoutID))
	if err != nil {
		return entities.Payout{}, err
	}
	if !services.AdminOnly(principal, payout.CompanyID) {
		return entities.Payout{}, domainerrors.ErrForbidden
	}
	if payout.Status != entities.PayoutStatusFailed {
		return payout, domainerrors.ErrInvalidPayoutState
	}

	updated, casErr := s.Payouts.CompareAndSwapPayout(ctx, payout.PayoutID, payout.Version,
		func(p entities.Payout) entities.Payout {
			p.Status = entities.PayoutStatusPending
			p.ExternalRef = nil
			p.FailureReason = ""
			return p
		})
	if casErr != nil {
		if errors.Is(casErr, domainerrors.ErrVersionConflict) {
			current, getErr := s.Payouts.GetPayout(ctx, payout.PayoutID)
			if getErr != nil {
				return entities.Payout{}, getErr
			}
			if current.Status == entities.PayoutStatusPending {
				return current, nil
			}
			return current, domainerrors.ErrInvalidPayoutState
		}
		return entities.Payout{}, casErr
	}

	logger.Info("payout reset to pending",
		"event", "payout_reset",
		"module", "finance-core/settlement-engine",
		"layer", "application",
		"payout_id", updated.PayoutID,
		"actor_id", principal.UserID,
	)
	return updated, nil
}

func (s Service) GetPayout(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (entities.Payout, error) {
	if strings.TrimSpace(principal.UserID) == "" {
		return entities.Payout{}, domainerrors.ErrUnauthenticated
	}
	payout, err := s.Payouts.GetPayout(ctx, strings.TrimSpace(payoutID))
	if err != nil {
		return entities.Payout{}, err
	}
	if payout.CreatorID == principal.UserID && payout.CompanyID == principal.CompanyID {
		return payout, nil
	}
	if !services.AdminOnly(principal, payout.CompanyID) {
		return entities.Payout{}, domainerrors.ErrForbidden
	}
	return payout, nil
}

func (s Service) ListPayouts(
	ctx context.Context,
	principal entities.Principal,
	query ports.PayoutListQuery,
) ([]entities.Payout, int, error) {
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, 0, domainerrors.ErrUnauthenticated
	}
	// Listing never crosses the caller's tenant; non-admin principals only
	// see their own payouts.
	query.CompanyID = principal.CompanyID
	if !services.AdminOnly(principal, principal.CompanyID) {
		query.CreatorID = principal.UserID
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.Payouts.ListPayouts(ctx, query)
}

// appendPayoutEvent is best effort: by the time it runs the provider
// outcome is already durable in the store, so an outbox error must not
// fail the operation.
func (s Service) appendPayoutEvent(ctx context.Context, eventType string, payout entities.Payout) {
	if s.Outbox == nil {
		return
	}
	logger := ResolveLogger(s.Logger)
	eventID, err := s.newID(ctx)
	if err != nil {
		logger.Error("payout event id generation failed",
			"event", "payout_outbox_append_failed",
			"module", "finance-core/settlement-engine",
			"layer", "application",
			"payout_id", payout.PayoutID,
			"error", err.Error(),
		)
		return
	}
	externalRef := ""
	if payout.ExternalRef != nil {
		externalRef = *payout.ExternalRef
	}
	data, err := json.Marshal(map[string]any{
		"payout_id":      payout.PayoutID,
		"creator_id":     payout.CreatorID,
		"company_id":     payout.CompanyID,
		"amount":         payout.Amount,
		"currency":       payout.Currency,
		"status":         string(payout.Status),
		"external_ref":   externalRef,
		"failure_reason": payout.FailureReason,
		"version":        payout.Version,
	})
	if err != nil {
		return
	}
	if err := s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       s.now(),
		SourceService:    "settlement-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "payout_id",
		PartitionKey:     payout.PayoutID,
		Data:             data,
	}); err != nil {
		logger.Error("payout event append failed",
			"event", "payout_outbox_append_failed",
			"module", "finance-core/settlement-engine",
			"layer", "application",
			"payout_id", payout.PayoutID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) newID(ctx context.Context) (string, error) {
	if s.IDGen == nil {
		return "", domainerrors.ErrInvalidInput
	}
	return s.IDGen.NewID(ctx)
}
