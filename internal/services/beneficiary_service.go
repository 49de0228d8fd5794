package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
)

// Summarizer condenses a beneficiary story into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, story string) (string, error)
}

// BeneficiaryService handles case submission and review.
type BeneficiaryService struct {
	store      ledger.Store
	summarizer Summarizer
	now        func() time.Time
}

func NewBeneficiaryService(store ledger.Store, summarizer Summarizer) *BeneficiaryService {
	return &BeneficiaryService{
		store:      store,
		summarizer: summarizer,
		now:        time.Now,
	}
}

// Submit creates a PENDING case on behalf of a village admin. The admin must
// be assigned to the target village and the village must be active. A
// summarizer failure never blocks the submission.
func (s *BeneficiaryService) Submit(ctx context.Context, villageAdminID int64, sub core.BeneficiarySubmission) (int64, error) {
	if err := sub.Validate(); err != nil {
		return 0, err
	}

	admin, err := s.store.VillageAdmin(ctx, villageAdminID)
	if err != nil {
		return 0, core.Authenticationf("village admin %d not recognized", villageAdminID)
	}
	if admin.VillageID != sub.VillageID {
		return 0, core.Authorizationf("village admin %d is not assigned to village %d", villageAdminID, sub.VillageID)
	}

	village, err := s.store.Village(ctx, sub.VillageID)
	if err != nil {
		return 0, core.Validationf("village %d does not exist", sub.VillageID)
	}
	if village.Status != core.VillageActive {
		return 0, core.Validationf("village %s is not active (%s)", village.Name, village.Status)
	}

	summary := ""
	if s.summarizer != nil {
		summary, err = s.summarizer.Summarize(ctx, sub.Story)
		if err != nil {
			slog.WarnContext(ctx, "Story summarization failed, continuing without summary",
				"error", err)
			summary = ""
		}
	}

	id, err := s.store.CreateBeneficiary(ctx, core.Beneficiary{
		Name:             sub.Name,
		Category:         sub.Category,
		OtherCategory:    sub.OtherCategory,
		Story:            sub.Story,
		Summary:          summary,
		Status:           core.StatusPending,
		Proofs:           sub.Proofs,
		YoutubeURL:       sub.YoutubeURL,
		VillageID:        sub.VillageID,
		VillageAdminID:   admin.ID,
		VillageAdminName: admin.Name,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Beneficiary case submitted",
		"id", id, "village_id", sub.VillageID, "village_admin_id", villageAdminID)
	return id, nil
}

// Summarize condenses a story on demand, before any case is submitted.
func (s *BeneficiaryService) Summarize(ctx context.Context, story string) (string, error) {
	if strings.TrimSpace(story) == "" {
		return "", core.Validationf("story is required")
	}
	if s.summarizer == nil {
		return "", core.ExternalServicef(nil, "summarizer not configured")
	}
	return s.summarizer.Summarize(ctx, story)
}

// Decide approves or rejects a PENDING case. Rejection requires a reason.
// A case that was already decided is refused.
func (s *BeneficiaryService) Decide(ctx context.Context, id int64, decision core.BeneficiaryStatus, rejectionReason string) error {
	if decision == core.StatusRejected && rejectionReason == "" {
		return core.Validationf("rejection requires a reason")
	}
	if err := s.store.DecideBeneficiary(ctx, id, decision, rejectionReason); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Beneficiary case decided", "id", id, "decision", decision)
	return nil
}

// Delete removes a case in any state. Ledger totals and log rows that
// reference it are left untouched.
func (s *BeneficiaryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteBeneficiary(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Beneficiary case deleted", "id", id)
	return nil
}
