// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require a PostgreSQL database — they verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - ID and decimal parsing at the handler boundary
//   - Response format consistency (success/error envelope)
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcfin/loanledger/internal/api"
	"github.com/arcfin/loanledger/internal/config"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		Ledger: config.LedgerConfig{
			HistoryPageSize:    50,
			MaxHistoryPageSize: 500,
		},
	}
}

// buildTestRouter creates a Gin engine with nil services. Requests that fail
// at the parsing/validation layer never reach a service, so every 400-path
// assertion below works without a database.
func buildTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return api.SetupRouter(api.RouterDeps{Cfg: testCfg()})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── Agreement endpoints — validation layer ────────────────────────────────────

func TestCreateAgreement_MissingFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/agreements", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/agreements empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] == nil {
		t.Errorf("error envelope missing 'code', got: %v", body)
	}
}

func TestCreateAgreement_BadAmount(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{
		"borrower_id":"11111111-1111-1111-1111-111111111111",
		"lender_id":"22222222-2222-2222-2222-222222222222",
		"amount":"not-a-number",
		"currency":"USD",
		"start_date":"2026-01-01T00:00:00Z",
		"maturity_date":"2031-01-01T00:00:00Z"
	}`
	rr := do(t, h, http.MethodPost, "/api/agreements", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("create agreement with bad amount = %d, want 400", rr.Code)
	}
}

func TestGetAgreement_BadID(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/agreements/not-a-uuid", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/agreements/not-a-uuid = %d, want 400", rr.Code)
	}
}

// ── Facility endpoints — validation layer ─────────────────────────────────────

func TestCreateFacility_MissingFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/facilities", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/facilities empty body = %d, want 400", rr.Code)
	}
}

func TestCreateFacility_BadAgreementID(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{
		"credit_agreement_id":"nope",
		"facility_name":"Term Loan A",
		"facility_type":"TERM_LOAN",
		"commitment_amount":"1000000.00",
		"currency":"USD",
		"start_date":"2026-01-01T00:00:00Z",
		"maturity_date":"2030-01-01T00:00:00Z",
		"interest_type":"FLOATING"
	}`
	rr := do(t, h, http.MethodPost, "/api/facilities", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("create facility with bad agreement id = %d, want 400", rr.Code)
	}
}

// ── Position endpoints — validation layer ─────────────────────────────────────

func TestCreatePosition_BadShare(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"lender_id":"33333333-3333-3333-3333-333333333333","amount":"400000.00","share":"forty"}`
	rr := do(t, h, http.MethodPost, "/api/facilities/44444444-4444-4444-4444-444444444444/positions", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("create position with bad share = %d, want 400", rr.Code)
	}
}

// ── Drawdown / paydown endpoints — validation layer ───────────────────────────

func TestCreateDrawdown_BadFacilityID(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"amount":"300000.00","currency":"USD"}`
	rr := do(t, h, http.MethodPost, "/api/facilities/xyz/drawdowns", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("drawdown with bad facility id = %d, want 400", rr.Code)
	}
}

func TestPaydown_MissingAmount(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"facility_id":"44444444-4444-4444-4444-444444444444"}`
	rr := do(t, h, http.MethodPost, "/api/loans/55555555-5555-5555-5555-555555555555/paydowns", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("paydown without amount = %d, want 400", rr.Code)
	}
}

// ── Trade endpoints — validation layer ────────────────────────────────────────

func TestBookTrade_MissingFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/trades", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/trades empty body = %d, want 400", rr.Code)
	}
}

func TestValidateTrade_BadPrice(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{
		"facility_id":"44444444-4444-4444-4444-444444444444",
		"seller_lender_id":"33333333-3333-3333-3333-333333333333",
		"buyer_lender_id":"66666666-6666-6666-6666-666666666666",
		"settlement_date":"2026-09-15T00:00:00Z",
		"par_amount":"100000.00",
		"price":"ninety-nine"
	}`
	rr := do(t, h, http.MethodPost, "/api/trades/validate", payload)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("validate trade with bad price = %d, want 400", rr.Code)
	}
}

func TestConfirmTrade_BadID(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/trades/bogus/confirm", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("confirm trade with bad id = %d, want 400", rr.Code)
	}
}

// ── Error envelope format ─────────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/agreements", `{}`)
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}
