package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monthlyaid/internal/auth"
	"monthlyaid/internal/core"
	"monthlyaid/internal/memory"
	"monthlyaid/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewSeeded()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	donations := services.NewDonationService(store, nil)
	beneficiaries := services.NewBeneficiaryService(store, nil)
	return NewServer(":0", store, donations, beneficiaries, nil, tokens), store
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *Server, phone string) loginResponse {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Phone: phone, OTP: mockOTP})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestLoginRoles(t *testing.T) {
	srv, _ := newTestServer(t)

	if out := login(t, srv, "9392444282"); out.Role != auth.RoleAdmin {
		t.Errorf("admin phone role = %q, want admin", out.Role)
	}
	if out := login(t, srv, "1234567890"); out.Role != auth.RoleVillageAdmin {
		t.Errorf("village admin phone role = %q, want village-admin", out.Role)
	}
	if out := login(t, srv, "5550001111"); out.Role != auth.RoleDonor {
		t.Errorf("unknown phone role = %q, want donor", out.Role)
	}
}

func TestSignup(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/signup", "", signupRequest{Name: "Asha", Phone: "5550001111", OTP: mockOTP})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Role != auth.RoleDonor || out.Token == "" {
		t.Errorf("signup = %+v, want donor token", out)
	}

	// Staff phones cannot register as donors.
	rec = doJSON(t, srv, http.MethodPost, "/api/signup", "", signupRequest{Name: "X", Phone: "9392444282", OTP: mockOTP})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("staff phone signup status = %d, want 400", rec.Code)
	}
}

func TestLoginRejectsBadOTP(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Phone: "9392444282", OTP: "000000"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRecordAnonymousDonation(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/donations/anonymous", "", anonymousDonationRequest{Amount: "500"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result services.DonationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Month == "" {
		t.Error("result should carry the month key")
	}

	mt, err := store.MonthlyTotal(httptest.NewRequest("GET", "/", nil).Context(), result.Month)
	if err != nil {
		t.Fatalf("monthly total: %v", err)
	}
	if mt.Total.Paise != 50000 || mt.AnonymousDonations != 1 {
		t.Errorf("month = %+v, want 50000 paise and 1 anonymous", mt)
	}
}

func TestRecordDonationInvalidAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, amount := range []string{"", "0", "-5", "abc"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/donations/anonymous", "", anonymousDonationRequest{Amount: amount})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("amount %q status = %d, want 400", amount, rec.Code)
		}
	}
}

func TestRecordForDonorAndReadBack(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/donations", "", donorDonationRequest{
		DonorID: "d1", Name: "Asha", Phone: "111", Amount: "120.50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/donors/d1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get donor status = %d", rec.Code)
	}
	var d core.Donor
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode donor: %v", err)
	}
	if d.TotalDonated.Paise != 12050 || len(d.Donations) != 1 {
		t.Errorf("donor = %+v, want one 12050 paise entry", d)
	}
}

func TestRecordForDonorMissingIDIsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/donations", "", donorDonationRequest{
		Name: "Asha", Phone: "111", Amount: "100",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for a missing donor id", rec.Code)
	}
}

func TestMonthlyTotalUnknownMonthReadsZero(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/months/2019-07", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var mt core.MonthlyTotal
	if err := json.Unmarshal(rec.Body.Bytes(), &mt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mt.Total.Paise != 0 || mt.Month != "2019-07" {
		t.Errorf("total = %+v, want zero for 2019-07", mt)
	}
}

func TestCurrentMonthlyTotal(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doJSON(t, srv, http.MethodPost, "/api/donations/anonymous", "", anonymousDonationRequest{Amount: "250"}); rec.Code != http.StatusCreated {
		t.Fatalf("record status = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/months/current", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var mt core.MonthlyTotal
	if err := json.Unmarshal(rec.Body.Bytes(), &mt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mt.Month != core.MonthKeyFor(time.Now()) || mt.Total.Paise != 25000 {
		t.Errorf("total = %+v, want 25000 paise in the current month", mt)
	}
}

func TestMonthlyTotalRejectsBadKey(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/months/2024-13", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBeneficiaryFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	adminToken := login(t, srv, "9392444282").Token
	vaToken := login(t, srv, "1234567890").Token

	// Submit requires the village-admin role.
	body := submitBeneficiaryRequest{Name: "Ravi", Category: "medical", Story: "needs surgery", VillageID: 1}
	if rec := doJSON(t, srv, http.MethodPost, "/api/beneficiaries", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated submit status = %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/api/beneficiaries", adminToken, body); rec.Code != http.StatusForbidden {
		t.Errorf("admin submit status = %d, want 403", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/beneficiaries", vaToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created submitBeneficiaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Deciding requires the admin role.
	decide := decideRequest{Decision: "APPROVED"}
	path := fmt.Sprintf("/api/beneficiaries/%d/decide", created.ID)
	if rec := doJSON(t, srv, http.MethodPost, path, vaToken, decide); rec.Code != http.StatusForbidden {
		t.Errorf("village admin decide status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, path, adminToken, decide); rec.Code != http.StatusNoContent {
		t.Errorf("admin decide status = %d, want 204", rec.Code)
	}

	// A second decision is refused.
	if rec := doJSON(t, srv, http.MethodPost, path, adminToken, decideRequest{Decision: "REJECTED", RejectionReason: "late"}); rec.Code != http.StatusBadRequest {
		t.Errorf("re-decide status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/beneficiaries/%d", created.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var b core.Beneficiary
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode beneficiary: %v", err)
	}
	if b.Status != core.StatusApproved {
		t.Errorf("status = %s, want APPROVED", b.Status)
	}
}

func TestVillageAdminEndpointsRequireAdmin(t *testing.T) {
	srv, _ := newTestServer(t)
	vaToken := login(t, srv, "1234567890").Token

	if rec := doJSON(t, srv, http.MethodPost, "/api/villages/import", vaToken, importVillagesRequest{}); rec.Code != http.StatusForbidden {
		t.Errorf("import status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPut, "/api/villages/1/status", "", villageStatusRequest{Status: "active"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("status update without token = %d, want 401", rec.Code)
	}
}

func TestImportVillages(t *testing.T) {
	srv, store := newTestServer(t)
	adminToken := login(t, srv, "9392444282").Token

	rec := doJSON(t, srv, http.MethodPost, "/api/villages/import", adminToken, importVillagesRequest{
		Villages: []villagePayload{{Name: "Chinnagottigallu"}, {Name: "Yerravaripalem"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Imported != 2 {
		t.Errorf("imported = %d, want 2", out.Imported)
	}

	villages, _ := store.Villages(httptest.NewRequest("GET", "/", nil).Context())
	// 5 seeded plus 2 imported.
	if len(villages) != 7 {
		t.Errorf("villages = %d, want 7", len(villages))
	}
}

func TestListVillages(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/villages", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var villages []core.Village
	if err := json.Unmarshal(rec.Body.Bytes(), &villages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(villages) != 5 {
		t.Errorf("villages = %d, want 5 seeded", len(villages))
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	vaToken := login(t, srv, "1234567890").Token

	if rec := doJSON(t, srv, http.MethodPost, "/api/summaries", "", summarizeRequest{Story: "a story"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}
	// No summarizer is configured in the test server.
	if rec := doJSON(t, srv, http.MethodPost, "/api/summaries", vaToken, summarizeRequest{Story: "a story"}); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/api/summaries", vaToken, summarizeRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty story status = %d, want 400", rec.Code)
	}
}

func TestPaymentsNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/payments/order", "", paymentOrderRequest{Amount: "100"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
