package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	settlementengine "meridian/contexts/finance-core/settlement-engine"
	settlemententities "meridian/contexts/finance-core/settlement-engine/domain/entities"
	sessionservice "meridian/contexts/identity-access/session-service"
	sessionentities "meridian/contexts/identity-access/session-service/domain/entities"
)

type testEnv struct {
	server     *Server
	settlement settlementengine.Module
	sessions   sessionservice.Module
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	settlement := settlementengine.NewInMemoryModule(nil)
	sessions := sessionservice.NewInMemoryModule(nil)
	return &testEnv{
		server:     New(settlement, sessions, nil, ":0"),
		settlement: settlement,
		sessions:   sessions,
	}
}

func (e *testEnv) seedPayout(t *testing.T, payoutID string, companyID string, creatorID string) {
	t.Helper()
	err := e.settlement.Store.CreatePayout(context.Background(), settlemententities.Payout{
		PayoutID:     payoutID,
		CreatorID:    creatorID,
		CompanyID:    companyID,
		SubmissionID: "submission-1",
		Amount:       40,
		Currency:     "USD",
		Status:       settlemententities.PayoutStatusPending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
		Version:      1,
	})
	if err != nil {
		t.Fatalf("seed payout failed: %v", err)
	}
}

func (e *testEnv) loginAs(t *testing.T, userID string, companyID string, role string) string {
	t.Helper()
	session, err := e.sessions.Service.IssueSession(context.Background(), sessionentities.Principal{
		UserID:    userID,
		CompanyID: companyID,
		Role:      sessionentities.Role(role),
	})
	if err != nil {
		t.Fatalf("issue session failed: %v", err)
	}
	return session.Token
}

func TestSendPayoutRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayout(t, "payout-sec-1", "company-1", "creator-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-1/send", nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-1/send", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	rr = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSendPayoutForbiddenForMemberAndCrossTenantAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayout(t, "payout-sec-2", "company-1", "creator-1")

	memberToken := env.loginAs(t, "creator-1", "company-1", "member")
	req := httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-2/send", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d body=%s", rr.Code, rr.Body.String())
	}

	outsiderToken := env.loginAs(t, "admin-2", "company-2", "admin")
	req = httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-2/send", nil)
	req.Header.Set("Authorization", "Bearer "+outsiderToken)
	rr = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-tenant admin, got %d body=%s", rr.Code, rr.Body.String())
	}

	if env.settlement.Provider.Invocations() != 0 {
		t.Fatalf("denied requests must never reach the provider")
	}
}

func TestSendPayoutHappyPathOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayout(t, "payout-sec-3", "company-1", "creator-1")
	adminToken := env.loginAs(t, "admin-1", "company-1", "admin")

	req := httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-3/send", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Status      string `json:"status"`
			ExternalRef string `json:"external_ref"`
			Version     int64  `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Status != "sent" || resp.Data.ExternalRef == "" || resp.Data.Version != 2 {
		t.Fatalf("unexpected payout state: %+v", resp.Data)
	}

	retry := httptest.NewRequest(http.MethodPost, "/v1/payouts/payout-sec-3/send", nil)
	retry.Header.Set("Authorization", "Bearer "+adminToken)
	rr = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, retry)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resend, got %d body=%s", rr.Code, rr.Body.String())
	}
	if env.settlement.Provider.Invocations() != 1 {
		t.Fatalf("resend must not reach the provider again")
	}
}

func TestGetPayoutUnknownIDReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.loginAs(t, "admin-1", "company-1", "admin")

	req := httptest.NewRequest(http.MethodGet, "/v1/payouts/missing", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListPayoutsScopedToCreatorForMembers(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayout(t, "payout-sec-4", "company-1", "creator-1")
	env.seedPayout(t, "payout-sec-5", "company-1", "creator-2")

	memberToken := env.loginAs(t, "creator-1", "company-1", "member")
	req := httptest.NewRequest(http.MethodGet, "/v1/payouts", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Total int `json:"total"`
		Data  []struct {
			CreatorID string `json:"creator_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 || resp.Data[0].CreatorID != "creator-1" {
		t.Fatalf("member must only list own payouts, got %+v", resp)
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayout(t, "payout-sec-6", "company-1", "creator-1")
	adminToken := env.loginAs(t, "admin-1", "company-1", "admin")

	revoke := httptest.NewRequest(http.MethodDelete, "/v1/sessions", nil)
	revoke.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, revoke)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 revoking session, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/payouts/payout-sec-6", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revocation, got %d body=%s", rr.Code, rr.Body.String())
	}
}
