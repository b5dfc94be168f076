package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

type HTTPProviderConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPProvider talks to the external settlement rail over HTTPS. The
// idempotency key travels as a header so the rail can deduplicate
// retried deliveries on its side.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type sendPayoutRequest struct {
	PayoutID string  `json:"payout_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type sendPayoutResponse struct {
	ExternalRef string `json:"external_ref"`
}

func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (p *HTTPProvider) Send(ctx context.Context, request ports.SettlementRequest) (ports.SettlementReceipt, error) {
	if strings.TrimSpace(request.PayoutID) == "" || strings.TrimSpace(request.IdempotencyKey) == "" {
		return ports.SettlementReceipt{}, domainerrors.ErrInvalidInput
	}

	body, err := json.Marshal(sendPayoutRequest{
		PayoutID: request.PayoutID,
		Amount:   request.Amount,
		Currency: request.Currency,
	})
	if err != nil {
		return ports.SettlementReceipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return ports.SettlementReceipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", request.IdempotencyKey)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("settlement provider request failed",
			"event", "payout_provider_request_failed",
			"module", "finance-core/settlement-engine",
			"layer", "adapter",
			"payout_id", request.PayoutID,
			"error", err.Error(),
		)
		return ports.SettlementReceipt{}, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.SettlementReceipt{}, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Error("settlement provider rejected transfer",
			"event", "payout_provider_rejected",
			"module", "finance-core/settlement-engine",
			"layer", "adapter",
			"payout_id", request.PayoutID,
			"status_code", resp.StatusCode,
		)
		return ports.SettlementReceipt{}, fmt.Errorf("%w: status %d", domainerrors.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload sendPayoutResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.SettlementReceipt{}, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	if strings.TrimSpace(payload.ExternalRef) == "" {
		return ports.SettlementReceipt{}, fmt.Errorf("%w: empty external ref", domainerrors.ErrProviderUnavailable)
	}
	return ports.SettlementReceipt{ExternalRef: payload.ExternalRef}, nil
}
