package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"meridian/contexts/finance-core/settlement-engine/application"
	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	"meridian/contexts/finance-core/settlement-engine/ports"
	httptransport "meridian/contexts/finance-core/settlement-engine/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

// SendPayoutHandler settles one pending payout for an authenticated admin.
func (h Handler) SendPayoutHandler(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (httptransport.PayoutResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http payout send received",
		"event", "payout_http_send_received",
		"module", "finance-core/settlement-engine",
		"layer", "transport",
		"payout_id", payoutID,
		"actor_id", principal.UserID,
	)

	payout, err := h.Service.SendPayout(ctx, principal, payoutID)
	if err != nil {
		return httptransport.PayoutResponse{}, err
	}
	return httptransport.PayoutResponse{
		Status: "success",
		Data:   toDTO(payout),
	}, nil
}

func (h Handler) GetPayoutHandler(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (httptransport.PayoutResponse, error) {
	payout, err := h.Service.GetPayout(ctx, principal, payoutID)
	if err != nil {
		return httptransport.PayoutResponse{}, err
	}
	return httptransport.PayoutResponse{
		Status: "success",
		Data:   toDTO(payout),
	}, nil
}

func (h Handler) ListPayoutsHandler(
	ctx context.Context,
	principal entities.Principal,
	req httptransport.ListPayoutsRequest,
) (httptransport.ListPayoutsResponse, error) {
	items, total, err := h.Service.ListPayouts(ctx, principal, ports.PayoutListQuery{
		CreatorID: req.CreatorID,
		Status:    entities.PayoutStatus(req.Status),
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return httptransport.ListPayoutsResponse{}, err
	}
	resp := httptransport.ListPayoutsResponse{
		Status: "success",
		Total:  total,
		Data:   make([]httptransport.PayoutDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toDTO(item))
	}
	return resp, nil
}

// ResetPayoutHandler moves a failed payout back to pending so an admin can
// retry settlement with a fresh version.
func (h Handler) ResetPayoutHandler(
	ctx context.Context,
	principal entities.Principal,
	payoutID string,
) (httptransport.PayoutResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http payout reset received",
		"event", "payout_http_reset_received",
		"module", "finance-core/settlement-engine",
		"layer", "transport",
		"payout_id", payoutID,
		"actor_id", principal.UserID,
	)

	payout, err := h.Service.ResetPayout(ctx, principal, payoutID)
	if err != nil {
		return httptransport.PayoutResponse{}, err
	}
	return httptransport.PayoutResponse{
		Status: "success",
		Data:   toDTO(payout),
	}, nil
}

func toDTO(payout entities.Payout) httptransport.PayoutDTO {
	externalRef := ""
	if payout.ExternalRef != nil {
		externalRef = *payout.ExternalRef
	}
	return httptransport.PayoutDTO{
		PayoutID:      payout.PayoutID,
		CreatorID:     payout.CreatorID,
		CompanyID:     payout.CompanyID,
		SubmissionID:  payout.SubmissionID,
		Amount:        payout.Amount,
		Currency:      payout.Currency,
		Status:        string(payout.Status),
		ExternalRef:   externalRef,
		FailureReason: payout.FailureReason,
		CreatedAt:     payout.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     payout.UpdatedAt.UTC().Format(time.RFC3339),
		Version:       payout.Version,
	}
}
