// Package services orchestrates ledger operations across storage and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monthlyaid/internal/amqp"
	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
)

// DonationService runs the two-step recording protocol: the monthly total is
// always credited first, then the donor ledger or the flat log. The steps are
// separate transactions; a failure after the month step leaves the month
// credited and is reported to the caller without rollback.
type DonationService struct {
	store      ledger.Store
	amqpClient *amqp.Client
	now        func() time.Time
}

// DonationResult is what a successful recording returns to the caller.
type DonationResult struct {
	Month      core.MonthKey `json:"month"`
	DonationID int64         `json:"donationId,omitempty"`
	Message    string        `json:"message"`
}

func NewDonationService(store ledger.Store, amqpClient *amqp.Client) *DonationService {
	return &DonationService{
		store:      store,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// RecordAnonymous credits the monthly total and the anonymous counter only.
// No donor ledger entry and no log row are written.
func (s *DonationService) RecordAnonymous(ctx context.Context, amount core.Money) (DonationResult, error) {
	key, err := s.store.RecordIntoMonth(ctx, amount, true, s.now())
	if err != nil {
		return DonationResult{}, err
	}

	slog.InfoContext(ctx, "Recorded anonymous donation",
		"month", key, "amount_paise", amount.Paise)

	return DonationResult{
		Month:   key,
		Message: fmt.Sprintf("Thank you for your generous anonymous donation of %s!", amount),
	}, nil
}

// RecordForDonor credits the monthly total, then appends to the donor's
// ledger, then best-effort writes the flat log row and queues it for export.
// If the donor step fails the month stays credited and the error is returned.
func (s *DonationService) RecordForDonor(ctx context.Context, donorID, name, phone string, amount core.Money, beneficiaryID int64) (DonationResult, error) {
	if donorID == "" {
		return DonationResult{}, core.Authenticationf("donor id is required")
	}
	now := s.now()

	key, err := s.store.RecordIntoMonth(ctx, amount, false, now)
	if err != nil {
		return DonationResult{}, err
	}

	if err := s.store.AppendDonation(ctx, donorID, name, phone, amount, beneficiaryID, now); err != nil {
		slog.ErrorContext(ctx, "Donor ledger append failed after month credit",
			"month", key, "donor_id", donorID, "error", err)
		return DonationResult{}, err
	}

	// The log row is best effort; the donation is already fully recorded.
	id, err := s.store.AppendLog(ctx, core.LoggedDonation{
		Name:          name,
		Phone:         phone,
		Amount:        amount,
		BeneficiaryID: beneficiaryID,
		CreatedAt:     now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append donation log",
			"donor_id", donorID, "error", err)
	} else {
		s.publishExport(ctx, id)
	}

	slog.InfoContext(ctx, "Recorded donor donation",
		"month", key, "donor_id", donorID, "amount_paise", amount.Paise)

	return DonationResult{
		Month:      key,
		DonationID: id,
		Message:    fmt.Sprintf("Thank you, %s, for your generous donation of %s!", name, amount),
	}, nil
}

// LogDonation credits the monthly total and appends to the flat log without
// touching any donor ledger.
func (s *DonationService) LogDonation(ctx context.Context, name, phone string, amount core.Money, beneficiaryID int64) (DonationResult, error) {
	now := s.now()

	key, err := s.store.RecordIntoMonth(ctx, amount, false, now)
	if err != nil {
		return DonationResult{}, err
	}

	id, err := s.store.AppendLog(ctx, core.LoggedDonation{
		Name:          name,
		Phone:         phone,
		Amount:        amount,
		BeneficiaryID: beneficiaryID,
		CreatedAt:     now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Month credited but log append failed",
			"month", key, "error", err)
		return DonationResult{}, err
	}
	s.publishExport(ctx, id)

	return DonationResult{
		Month:      key,
		DonationID: id,
		Message:    fmt.Sprintf("Thank you for your generous donation of %s!", amount),
	}, nil
}

func (s *DonationService) publishExport(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return
	}
	if err := s.amqpClient.PublishDonationExport(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", id, "error", err)
		// Don't fail the request, the sweep worker will pick the row up.
	}
}
