package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

var testTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRecordIntoMonthCreateAndUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	key, err := repo.RecordIntoMonth(ctx, core.Money{Paise: 10000}, false, testTime)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if key != "2024-03" {
		t.Fatalf("key = %q, want 2024-03", key)
	}
	if _, err := repo.RecordIntoMonth(ctx, core.Money{Paise: 2500}, true, testTime); err != nil {
		t.Fatalf("second record: %v", err)
	}

	mt, err := repo.MonthlyTotal(ctx, key)
	if err != nil {
		t.Fatalf("monthly total: %v", err)
	}
	if mt.Total.Paise != 12500 {
		t.Errorf("total = %d, want 12500", mt.Total.Paise)
	}
	if mt.AnonymousDonations != 1 {
		t.Errorf("anonymous = %d, want 1", mt.AnonymousDonations)
	}
}

func TestAppendDonationRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.AppendDonation(ctx, "d1", "Asha", "111", core.Money{Paise: 10000}, 0, testTime); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := repo.AppendDonation(ctx, "d1", "Asha R", "222", core.Money{Paise: 5000}, 7, testTime.Add(time.Hour)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	d, err := repo.Donor(ctx, "d1")
	if err != nil {
		t.Fatalf("donor: %v", err)
	}
	if d.TotalDonated.Paise != 15000 || len(d.Donations) != 2 {
		t.Errorf("donor = %+v, want total 15000 over 2 entries", d)
	}
	if d.Name != "Asha R" || d.Phone != "222" {
		t.Errorf("identity = %q/%q, want latest values", d.Name, d.Phone)
	}
	if d.Donations[1].BeneficiaryID != 7 {
		t.Errorf("second entry beneficiary = %d, want 7", d.Donations[1].BeneficiaryID)
	}
}

func TestAppendDonationConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AppendDonation(ctx, "d1", "Asha", "111", core.Money{Paise: 10000}, 0, testTime)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	d, err := repo.Donor(ctx, "d1")
	if err != nil {
		t.Fatalf("donor: %v", err)
	}
	if len(d.Donations) != 2 || d.TotalDonated.Paise != 20000 {
		t.Errorf("donor = %+v, want 2 entries totalling 20000", d)
	}
}

func TestDonationLogLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AppendLog(ctx, core.LoggedDonation{
		Name: "Asha", Phone: "111", Amount: core.Money{Paise: 10000}, BeneficiaryID: 3, CreatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("append log: %v", err)
	}

	got, err := repo.LoggedDonation(ctx, id)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Amount.Paise != 10000 || got.BeneficiaryID != 3 {
		t.Errorf("row = %+v, want 10000 paise for beneficiary 3", got)
	}
	if !got.CreatedAt.Equal(testTime) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, testTime)
	}

	pending, err := repo.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	if err := repo.MarkExported(ctx, id); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, _ = repo.PendingExport(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending after export = %d, want 0", len(pending))
	}
}

func TestBeneficiaryDecidePolicy(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateBeneficiary(ctx, core.Beneficiary{
		Name: "Ravi", Category: "medical", Story: "story", VillageID: 1,
		Proofs: []string{"doc-a", "doc-b"}, CreatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	b, err := repo.Beneficiary(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Status != core.StatusPending {
		t.Errorf("status = %s, want PENDING", b.Status)
	}
	if len(b.Proofs) != 2 {
		t.Errorf("proofs = %v, want 2 entries", b.Proofs)
	}

	if err := repo.DecideBeneficiary(ctx, id, core.StatusRejected, "incomplete"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	err = repo.DecideBeneficiary(ctx, id, core.StatusApproved, "")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("re-decide err = %v, want validation error", err)
	}
	if err := repo.DecideBeneficiary(ctx, 9999, core.StatusApproved, ""); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want not found", err)
	}

	b, _ = repo.Beneficiary(ctx, id)
	if b.Status != core.StatusRejected || b.RejectionReason != "incomplete" {
		t.Errorf("case = %s/%q, want REJECTED with reason", b.Status, b.RejectionReason)
	}
}

func TestSeedAndImportVillages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.SeedVillages(ctx, ledger.VillageSeed())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(ledger.VillageSeed()) {
		t.Fatalf("seeded = %d, want %d", n, len(ledger.VillageSeed()))
	}
	if n, err := repo.SeedVillages(ctx, ledger.VillageSeed()); err != nil || n != 0 {
		t.Fatalf("second seed = %d/%v, want 0 and no error", n, err)
	}

	imported, err := repo.ImportVillages(ctx, []core.Village{
		{Name: "Chinnagottigallu", Status: core.VillageActive},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 1 {
		t.Fatalf("imported = %d, want 1", imported)
	}

	villages, err := repo.Villages(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, v := range villages {
		if v.Name == "Chinnagottigallu" && v.Status != core.VillageInactive {
			t.Errorf("imported village status = %s, want inactive", v.Status)
		}
	}
}

func TestSeededPrincipals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	admin, err := repo.AdminByPhone(ctx, "9392444282")
	if err != nil {
		t.Fatalf("admin lookup: %v", err)
	}
	if admin.ID != 101 {
		t.Errorf("admin id = %d, want 101", admin.ID)
	}

	va, err := repo.VillageAdminByPhone(ctx, "1234567890")
	if err != nil {
		t.Fatalf("village admin lookup: %v", err)
	}
	if va.VillageID != 1 {
		t.Errorf("village admin village = %d, want 1", va.VillageID)
	}
}
