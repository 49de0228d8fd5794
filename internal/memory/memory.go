// Package memory is the in-memory backend used for development
// (DATA_BACKEND=memory) and as the test double for the ledger ports.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	months        map[core.MonthKey]*core.MonthlyTotal
	donors        map[string]*core.Donor
	log           []core.LoggedDonation
	exported      map[int64]bool
	exportErrs    map[int64]bool
	beneficiaries map[int64]*core.Beneficiary
	villages      map[int64]*core.Village
	villageAdmins map[int64]core.VillageAdmin
	admins        map[int64]core.Admin

	nextLogID         int64
	nextBeneficiaryID int64
	nextVillageID     int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		months:            make(map[core.MonthKey]*core.MonthlyTotal),
		donors:            make(map[string]*core.Donor),
		exported:          make(map[int64]bool),
		exportErrs:        make(map[int64]bool),
		beneficiaries:     make(map[int64]*core.Beneficiary),
		villages:          make(map[int64]*core.Village),
		villageAdmins:     make(map[int64]core.VillageAdmin),
		admins:            make(map[int64]core.Admin),
		nextLogID:         1,
		nextBeneficiaryID: 1,
		nextVillageID:     1,
	}
}

// NewSeeded returns a store with the fixed village dataset and the mock
// principals, matching what the sqlite migrations install.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	_, _ = s.SeedVillages(ctx, ledger.VillageSeed())
	s.mu.Lock()
	s.admins[101] = core.Admin{ID: 101, Name: "Super Admin", Phone: "9392444282"}
	s.villageAdmins[1] = core.VillageAdmin{ID: 1, Name: "Village Admin 1", Phone: "1234567890", VillageID: 1}
	s.villageAdmins[2] = core.VillageAdmin{ID: 2, Name: "Village Admin 2", Phone: "0987654321", VillageID: 2}
	s.mu.Unlock()
	return s
}

// RecordIntoMonth implements ledger.MonthRecorder. The whole increment is
// applied under one lock; there is no partial application.
func (s *Store) RecordIntoMonth(_ context.Context, amount core.Money, isAnonymous bool, now time.Time) (core.MonthKey, error) {
	if err := amount.Validate(); err != nil {
		return "", err
	}
	key := core.MonthKeyFor(now)
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.months[key]
	if !ok {
		mt = &core.MonthlyTotal{Month: key}
		s.months[key] = mt
	}
	mt.Total.Paise += amount.Paise
	if isAnonymous {
		mt.AnonymousDonations++
	}
	return key, nil
}

func (s *Store) MonthlyTotal(_ context.Context, key core.MonthKey) (core.MonthlyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.months[key]
	if !ok {
		return core.MonthlyTotal{}, core.ErrNotFound
	}
	return *mt, nil
}

// AppendDonation implements ledger.DonorLedger. The lock serializes
// concurrent appends for the same donor, so the entry list, the running
// total and the identity fields always move together.
func (s *Store) AppendDonation(_ context.Context, donorID, name, phone string, amount core.Money, beneficiaryID int64, now time.Time) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	entry := core.DonationEntry{Amount: amount, CreatedAt: now, BeneficiaryID: beneficiaryID}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		s.donors[donorID] = &core.Donor{
			ID:           donorID,
			Name:         name,
			Phone:        phone,
			TotalDonated: amount,
			Donations:    []core.DonationEntry{entry},
			IsFeatured:   false,
			CreatedAt:    now,
		}
		return nil
	}
	d.Donations = append(d.Donations, entry)
	d.TotalDonated.Paise += amount.Paise
	d.Name = name
	d.Phone = phone
	return nil
}

func (s *Store) Donor(_ context.Context, donorID string) (core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return core.Donor{}, core.ErrNotFound
	}
	out := *d
	out.Donations = append([]core.DonationEntry(nil), d.Donations...)
	return out, nil
}

func (s *Store) FeaturedDonors(_ context.Context) ([]core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Donor
	for _, d := range s.donors {
		if d.IsFeatured {
			cp := *d
			cp.Donations = append([]core.DonationEntry(nil), d.Donations...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetDonorFeatured(_ context.Context, donorID string, featured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return core.ErrNotFound
	}
	d.IsFeatured = featured
	return nil
}

func (s *Store) AppendLog(_ context.Context, d core.LoggedDonation) (int64, error) {
	if err := d.Amount.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextLogID
	s.nextLogID++
	s.log = append(s.log, d)
	return d.ID, nil
}

func (s *Store) LoggedDonation(_ context.Context, id int64) (core.LoggedDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.log {
		if d.ID == id {
			return d, nil
		}
	}
	return core.LoggedDonation{}, core.ErrNotFound
}

func (s *Store) RecentDonations(_ context.Context, limit int) ([]core.LoggedDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.LoggedDonation(nil), s.log...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PendingExport(_ context.Context, limit int) ([]core.LoggedDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LoggedDonation
	for _, d := range s.log {
		if !s.exported[d.ID] {
			out = append(out, d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported[id] = true
	delete(s.exportErrs, id)
	return nil
}

func (s *Store) MarkExportError(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportErrs[id] = true
	return nil
}

func (s *Store) CreateBeneficiary(_ context.Context, b core.Beneficiary) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextBeneficiaryID
	s.nextBeneficiaryID++
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	cp := b
	s.beneficiaries[b.ID] = &cp
	return b.ID, nil
}

func (s *Store) Beneficiary(_ context.Context, id int64) (core.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.beneficiaries[id]
	if !ok {
		return core.Beneficiary{}, core.ErrNotFound
	}
	out := *b
	// Denormalized donation view from the flat log, beneficiaryId stripped.
	for _, d := range s.log {
		if d.BeneficiaryID == id {
			out.Donations = append(out.Donations, core.DonationEntry{Amount: d.Amount, CreatedAt: d.CreatedAt})
		}
	}
	return out, nil
}

func (s *Store) ListBeneficiaries(_ context.Context, status core.BeneficiaryStatus, villageID int64) ([]core.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Beneficiary
	for _, b := range s.beneficiaries {
		if status != "" && b.Status != status {
			continue
		}
		if villageID > 0 && b.VillageID != villageID {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DecideBeneficiary(_ context.Context, id int64, decision core.BeneficiaryStatus, rejectionReason string) error {
	if decision != core.StatusApproved && decision != core.StatusRejected {
		return core.Validationf("decision must be APPROVED or REJECTED, got %q", string(decision))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.beneficiaries[id]
	if !ok {
		return core.ErrNotFound
	}
	if b.Status != core.StatusPending {
		return core.Validationf("case %d already decided (%s)", id, b.Status)
	}
	b.Status = decision
	if decision == core.StatusRejected {
		b.RejectionReason = rejectionReason
	}
	return nil
}

func (s *Store) DeleteBeneficiary(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.beneficiaries[id]; !ok {
		return core.ErrNotFound
	}
	// Donations already recorded stay recorded; the dangling reference in
	// the log is accepted.
	delete(s.beneficiaries, id)
	return nil
}

func (s *Store) SetBeneficiaryFeatured(_ context.Context, id int64, featured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.beneficiaries[id]
	if !ok {
		return core.ErrNotFound
	}
	b.IsFeatured = featured
	return nil
}

func (s *Store) Villages(_ context.Context) ([]core.Village, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Village, 0, len(s.villages))
	for _, v := range s.villages {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Village(_ context.Context, id int64) (core.Village, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.villages[id]
	if !ok {
		return core.Village{}, core.ErrNotFound
	}
	return *v, nil
}

func (s *Store) UpdateVillageStatus(_ context.Context, id int64, status core.VillageStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.villages[id]
	if !ok {
		return core.ErrNotFound
	}
	v.Status = status
	return nil
}

func (s *Store) SeedVillages(_ context.Context, villages []core.Village) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.villages) > 0 {
		return 0, nil
	}
	for _, v := range villages {
		v.ID = s.nextVillageID
		s.nextVillageID++
		cp := v
		s.villages[v.ID] = &cp
	}
	return len(villages), nil
}

func (s *Store) ImportVillages(_ context.Context, rows []core.Village) (int, error) {
	if len(rows) == 0 {
		return 0, core.Validationf("import dataset is empty, nothing to upload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range rows {
		v.ID = s.nextVillageID
		s.nextVillageID++
		v.Status = core.VillageInactive
		cp := v
		s.villages[v.ID] = &cp
	}
	return len(rows), nil
}

func (s *Store) AdminByPhone(_ context.Context, phone string) (core.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Phone == phone {
			return a, nil
		}
	}
	return core.Admin{}, core.ErrNotFound
}

func (s *Store) VillageAdminByPhone(_ context.Context, phone string) (core.VillageAdmin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, va := range s.villageAdmins {
		if va.Phone == phone {
			return va, nil
		}
	}
	return core.VillageAdmin{}, core.ErrNotFound
}

func (s *Store) VillageAdmin(_ context.Context, id int64) (core.VillageAdmin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	va, ok := s.villageAdmins[id]
	if !ok {
		return core.VillageAdmin{}, core.ErrNotFound
	}
	return va, nil
}
