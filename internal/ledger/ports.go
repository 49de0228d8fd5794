// Package ledger defines the ports between the donation protocol and its
// storage backends. The sqlite repository and the in-memory store both
// implement every interface here.
package ledger

import (
	"context"
	"time"

	"monthlyaid/internal/core"
)

type (
	// MonthRecorder maintains the per-month aggregate. RecordIntoMonth is a
	// single atomic read-modify-write keyed by the UTC month of now: either
	// the whole increment applies or none of it does. It is deliberately not
	// idempotent; the orchestrator calls it exactly once per donation.
	MonthRecorder interface {
		RecordIntoMonth(ctx context.Context, amount core.Money, isAnonymous bool, now time.Time) (core.MonthKey, error)
		MonthlyTotal(ctx context.Context, key core.MonthKey) (core.MonthlyTotal, error)
	}

	// DonorLedger maintains the per-donor record and its append-only history.
	// AppendDonation must serialize concurrent appends for the same donor
	// (compare-and-retry) so no entry is ever lost; donations, totalDonated
	// and the identity fields update together or not at all.
	DonorLedger interface {
		AppendDonation(ctx context.Context, donorID, name, phone string, amount core.Money, beneficiaryID int64, now time.Time) error
		Donor(ctx context.Context, donorID string) (core.Donor, error)
		FeaturedDonors(ctx context.Context) ([]core.Donor, error)
		SetDonorFeatured(ctx context.Context, donorID string, featured bool) error
	}

	// DonationLog is the standalone flat log used for reporting and export.
	DonationLog interface {
		AppendLog(ctx context.Context, d core.LoggedDonation) (int64, error)
		LoggedDonation(ctx context.Context, id int64) (core.LoggedDonation, error)
		RecentDonations(ctx context.Context, limit int) ([]core.LoggedDonation, error)
		PendingExport(ctx context.Context, limit int) ([]core.LoggedDonation, error)
		MarkExported(ctx context.Context, id int64) error
		MarkExportError(ctx context.Context, id int64) error
	}

	// BeneficiaryStore persists cases and their approval state.
	BeneficiaryStore interface {
		CreateBeneficiary(ctx context.Context, b core.Beneficiary) (int64, error)
		Beneficiary(ctx context.Context, id int64) (core.Beneficiary, error)
		ListBeneficiaries(ctx context.Context, status core.BeneficiaryStatus, villageID int64) ([]core.Beneficiary, error)
		// DecideBeneficiary transitions a PENDING case to APPROVED or
		// REJECTED. A non-PENDING target is refused with a validation error.
		DecideBeneficiary(ctx context.Context, id int64, decision core.BeneficiaryStatus, rejectionReason string) error
		DeleteBeneficiary(ctx context.Context, id int64) error
		SetBeneficiaryFeatured(ctx context.Context, id int64, featured bool) error
	}

	// VillageStore persists villages, their activation state, seeding and
	// bulk import.
	VillageStore interface {
		Villages(ctx context.Context) ([]core.Village, error)
		Village(ctx context.Context, id int64) (core.Village, error)
		UpdateVillageStatus(ctx context.Context, id int64, status core.VillageStatus) error
		// SeedVillages inserts the fixed dataset only when the collection is
		// currently empty; a seeded collection is left untouched.
		SeedVillages(ctx context.Context, villages []core.Village) (int, error)
		// ImportVillages writes rows in batches of at most 500 per commit and
		// forces status=inactive on every imported row.
		ImportVillages(ctx context.Context, rows []core.Village) (int, error)
	}

	// IdentityStore resolves the mock-OTP principals.
	IdentityStore interface {
		AdminByPhone(ctx context.Context, phone string) (core.Admin, error)
		VillageAdminByPhone(ctx context.Context, phone string) (core.VillageAdmin, error)
		VillageAdmin(ctx context.Context, id int64) (core.VillageAdmin, error)
	}
)

// Store bundles every port a full backend provides.
type Store interface {
	MonthRecorder
	DonorLedger
	DonationLog
	BeneficiaryStore
	VillageStore
	IdentityStore
}
