package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"monthlyaid/internal/auth"
	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
)

// mockOTP is the development verification code. Real OTP delivery is
// intentionally not wired up.
const mockOTP = "123456"

type loginRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
}

// handleLogin resolves the phone number against admins, then village admins,
// and falls back to a donor principal keyed by the phone itself.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		s.writeError(w, r, core.Validationf("phone is required"))
		return
	}
	if req.OTP != mockOTP {
		s.writeError(w, r, core.Authenticationf("invalid verification code"))
		return
	}

	p := auth.Principal{Role: auth.RoleDonor, SubjectID: req.Phone}
	if admin, err := s.store.AdminByPhone(r.Context(), req.Phone); err == nil {
		p = auth.Principal{
			Role:      auth.RoleAdmin,
			SubjectID: strconv.FormatInt(admin.ID, 10),
			Name:      admin.Name,
		}
	} else if va, err := s.store.VillageAdminByPhone(r.Context(), req.Phone); err == nil {
		p = auth.Principal{
			Role:      auth.RoleVillageAdmin,
			SubjectID: strconv.FormatInt(va.ID, 10),
			Name:      va.Name,
			VillageID: va.VillageID,
		}
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		s.writeError(w, r, core.Persistencef(err, "issue token"))
		return
	}

	slog.InfoContext(r.Context(), "Login successful", "role", p.Role)
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: p.Role, Name: p.Name})
}

type signupRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// handleSignup registers a donor identity. Staff phones cannot sign up as
// donors.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		s.writeError(w, r, core.Validationf("phone is required"))
		return
	}
	if req.OTP != mockOTP {
		s.writeError(w, r, core.Authenticationf("invalid verification code"))
		return
	}
	if _, err := s.store.AdminByPhone(r.Context(), req.Phone); err == nil {
		s.writeError(w, r, core.Validationf("phone %s belongs to a staff account", req.Phone))
		return
	}
	if _, err := s.store.VillageAdminByPhone(r.Context(), req.Phone); err == nil {
		s.writeError(w, r, core.Validationf("phone %s belongs to a staff account", req.Phone))
		return
	}

	p := auth.Principal{Role: auth.RoleDonor, SubjectID: req.Phone, Name: strings.TrimSpace(req.Name)}
	token, err := s.tokens.Issue(p)
	if err != nil {
		s.writeError(w, r, core.Persistencef(err, "issue token"))
		return
	}

	slog.InfoContext(r.Context(), "Donor signed up")
	s.writeJSON(w, http.StatusCreated, loginResponse{Token: token, Role: p.Role, Name: p.Name})
}

type anonymousDonationRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleRecordAnonymous(w http.ResponseWriter, r *http.Request) {
	var req anonymousDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.donations.RecordAnonymous(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

type donorDonationRequest struct {
	DonorID       string `json:"donorId"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Amount        string `json:"amount"`
	BeneficiaryID int64  `json:"beneficiaryId,omitempty"`
}

func (s *Server) handleRecordForDonor(w http.ResponseWriter, r *http.Request) {
	var req donorDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.donations.RecordForDonor(r.Context(), req.DonorID, req.Name, req.Phone, amount, req.BeneficiaryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

type logDonationRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Amount        string `json:"amount"`
	BeneficiaryID int64  `json:"beneficiaryId,omitempty"`
}

func (s *Server) handleLogDonation(w http.ResponseWriter, r *http.Request) {
	var req logDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.donations.LogDonation(r.Context(), req.Name, req.Phone, amount, req.BeneficiaryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleRecentDonations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	donations, err := s.store.RecentDonations(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, donations)
}

func (s *Server) handleMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	key := core.MonthKey(r.PathValue("key"))
	if err := key.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMonthlyTotal(w, r, key)
}

func (s *Server) handleCurrentMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	s.writeMonthlyTotal(w, r, core.MonthKeyFor(time.Now()))
}

func (s *Server) writeMonthlyTotal(w http.ResponseWriter, r *http.Request, key core.MonthKey) {
	total, err := s.store.MonthlyTotal(r.Context(), key)
	if errors.Is(err, core.ErrNotFound) {
		// A month with no donations reads as zero, not as an error.
		s.writeJSON(w, http.StatusOK, core.MonthlyTotal{Month: key})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, total)
}

type summarizeRequest struct {
	Story string `json:"story"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.beneficiaries.Summarize(r.Context(), req.Story)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}

type paymentOrderRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleCreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	if s.payments == nil {
		s.writeError(w, r, core.ExternalServicef(nil, "payments not configured"))
		return
	}
	var req paymentOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.payments.CreateOrder(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListVillages(w http.ResponseWriter, r *http.Request) {
	villages, err := s.store.Villages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, villages)
}

type seedResponse struct {
	Seeded int `json:"seeded"`
}

func (s *Server) handleSeedVillages(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.SeedVillages(r.Context(), ledger.VillageSeed())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, seedResponse{Seeded: n})
}

type importVillagesRequest struct {
	Villages []villagePayload `json:"villages"`
}

type villagePayload struct {
	Name     string `json:"name"`
	Mandal   string `json:"mandal"`
	District string `json:"district"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleImportVillages(w http.ResponseWriter, r *http.Request) {
	var req importVillagesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rows := make([]core.Village, 0, len(req.Villages))
	for _, v := range req.Villages {
		if strings.TrimSpace(v.Name) == "" {
			s.writeError(w, r, core.Validationf("village name is required"))
			return
		}
		rows = append(rows, core.Village{Name: v.Name, Mandal: v.Mandal, District: v.District})
	}

	n, err := s.store.ImportVillages(r.Context(), rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

type villageStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateVillageStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req villageStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateVillageStatus(r.Context(), id, core.VillageStatus(req.Status)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitBeneficiaryRequest struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	OtherCategory string   `json:"otherCategory,omitempty"`
	Story         string   `json:"story"`
	Proofs        []string `json:"proofs,omitempty"`
	YoutubeURL    string   `json:"youtubeUrl,omitempty"`
	VillageID     int64    `json:"villageId"`
}

type submitBeneficiaryResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleSubmitBeneficiary(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		s.writeError(w, r, core.Authenticationf("missing principal"))
		return
	}
	adminID, err := strconv.ParseInt(p.SubjectID, 10, 64)
	if err != nil {
		s.writeError(w, r, core.Authenticationf("invalid principal subject"))
		return
	}

	var req submitBeneficiaryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.beneficiaries.Submit(r.Context(), adminID, core.BeneficiarySubmission{
		Name:          req.Name,
		Category:      req.Category,
		OtherCategory: req.OtherCategory,
		Story:         req.Story,
		Proofs:        req.Proofs,
		YoutubeURL:    req.YoutubeURL,
		VillageID:     req.VillageID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, submitBeneficiaryResponse{ID: id})
}

func (s *Server) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	status := core.BeneficiaryStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	if status != "" {
		if err := status.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	var villageID int64
	if v := strings.TrimSpace(r.URL.Query().Get("village")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, core.Validationf("invalid village id %q", v))
			return
		}
		villageID = id
	}

	list, err := s.store.ListBeneficiaries(r.Context(), status, villageID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.store.Beneficiary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

type decideRequest struct {
	Decision        string `json:"decision"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

func (s *Server) handleDecideBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req decideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	decision := core.BeneficiaryStatus(strings.ToUpper(strings.TrimSpace(req.Decision)))
	if err := s.beneficiaries.Decide(r.Context(), id, decision, req.RejectionReason); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.beneficiaries.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

func (s *Server) handleSetBeneficiaryFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req featuredRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetBeneficiaryFeatured(r.Context(), id, req.Featured); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeaturedDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := s.store.FeaturedDonors(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, donors)
}

func (s *Server) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, r, core.Validationf("donor id is required"))
		return
	}
	d, err := s.store.Donor(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSetDonorFeatured(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, r, core.Validationf("donor id is required"))
		return
	}
	var req featuredRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetDonorFeatured(r.Context(), id, req.Featured); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid id %q", raw)
	}
	return id, nil
}

func parseAmount(s string) (core.Money, error) {
	paise, err := core.ParseDecimalToPaise(s)
	if err != nil {
		return core.Money{}, err
	}
	amount := core.Money{Paise: paise}
	if err := amount.Validate(); err != nil {
		return core.Money{}, err
	}
	return amount, nil
}
