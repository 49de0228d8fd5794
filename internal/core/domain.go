package core

import (
	"strings"
	"time"
)

// BeneficiaryStatus is the approval state of a submitted case.
type BeneficiaryStatus string

const (
	StatusPending  BeneficiaryStatus = "PENDING"
	StatusApproved BeneficiaryStatus = "APPROVED"
	StatusRejected BeneficiaryStatus = "REJECTED"
	// StatusFunded is written by an out-of-band reconciliation once a case's
	// funding goal is met; no operation in this service sets it.
	StatusFunded BeneficiaryStatus = "FUNDED"
)

func (s BeneficiaryStatus) Validate() error {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFunded:
		return nil
	}
	return Validationf("invalid beneficiary status %q", string(s))
}

// VillageStatus gates whether new beneficiary submissions are accepted.
type VillageStatus string

const (
	VillageActive    VillageStatus = "active"
	VillageQueued    VillageStatus = "queued"
	VillageInactive  VillageStatus = "inactive"
	VillageCompleted VillageStatus = "completed"
)

func (s VillageStatus) Validate() error {
	switch s {
	case VillageActive, VillageQueued, VillageInactive, VillageCompleted:
		return nil
	}
	return Validationf("invalid village status %q", string(s))
}

type (
	// DonationEntry is one recorded donation. Entries are immutable once
	// written; there is no edit or delete operation in the protocol.
	DonationEntry struct {
		Amount        Money     `json:"amount"`
		CreatedAt     time.Time `json:"createdAt"`
		BeneficiaryID int64     `json:"beneficiaryId,omitempty"` // 0 means not tied to a beneficiary
	}

	// Donor is the per-donor ledger record: latest identity fields, a
	// running total and the append-only donation history. The invariant
	// TotalDonated == sum(Donations[].Amount) holds at all times.
	Donor struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Phone        string          `json:"phone"`
		TotalDonated Money           `json:"totalDonated"`
		Donations    []DonationEntry `json:"donations"`
		IsFeatured   bool            `json:"isFeatured"`
		CreatedAt    time.Time       `json:"createdAt"`
	}

	// LoggedDonation is a row of the standalone flat donation log used for
	// reporting and export. It duplicates ledger data on purpose and is
	// never authoritative.
	LoggedDonation struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		Phone         string    `json:"phone"`
		Amount        Money     `json:"amount"`
		BeneficiaryID int64     `json:"beneficiaryId,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	// Beneficiary is a funding case submitted by a village admin,
	// independent of the ledger's financial bookkeeping.
	Beneficiary struct {
		ID               int64             `json:"id"`
		Name             string            `json:"name"`
		Category         string            `json:"category"`
		OtherCategory    string            `json:"otherCategory,omitempty"`
		Story            string            `json:"story"`
		Summary          string            `json:"summary,omitempty"`
		Status           BeneficiaryStatus `json:"status"`
		IsFeatured       bool              `json:"isFeatured"`
		Proofs           []string          `json:"proofs,omitempty"`
		YoutubeURL       string            `json:"youtubeUrl,omitempty"`
		VillageID        int64             `json:"villageId"`
		VillageAdminID   int64             `json:"villageAdminId"`
		VillageAdminName string            `json:"villageAdminName"`
		RejectionReason  string            `json:"rejectionReason,omitempty"`
		CreatedAt        time.Time         `json:"createdAt"`
		// Donations is a read-time view over the flat log filtered by this
		// beneficiary; it is not stored with the case.
		Donations []DonationEntry `json:"donations"`
	}

	Village struct {
		ID       int64         `json:"id"`
		Name     string        `json:"name"`
		Mandal   string        `json:"mandal,omitempty"`
		District string        `json:"district,omitempty"`
		Status   VillageStatus `json:"status"`
	}

	// VillageAdmin may submit cases only for its assigned village.
	VillageAdmin struct {
		ID        int64
		Name      string
		Phone     string
		VillageID int64
	}

	Admin struct {
		ID    int64
		Name  string
		Phone string
	}

	// BeneficiarySubmission carries the fields of a new case before it is
	// accepted into PENDING.
	BeneficiarySubmission struct {
		Name          string
		Category      string
		OtherCategory string
		Story         string
		Summary       string
		Proofs        []string
		YoutubeURL    string
		VillageID     int64
	}
)

func (s BeneficiarySubmission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Validationf("beneficiary name is required")
	}
	if strings.TrimSpace(s.Category) == "" {
		return Validationf("beneficiary category is required")
	}
	if strings.TrimSpace(s.Story) == "" {
		return Validationf("beneficiary story is required")
	}
	if s.VillageID <= 0 {
		return Validationf("target village is required")
	}
	return nil
}
