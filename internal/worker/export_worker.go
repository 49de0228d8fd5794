// Package worker exports donation log rows to the reporting sheet, driven by
// AMQP messages with a periodic sweep as backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"monthlyaid/internal/amqp"
	"monthlyaid/internal/core"
	"monthlyaid/internal/export"
	"monthlyaid/internal/ledger"
)

type ExportWorker struct {
	log       ledger.DonationLog
	writer    export.DonationWriter
	batchSize int
}

func NewExportWorker(log ledger.DonationLog, writer export.DonationWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		log:       log,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single donation export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.DonationExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "id", msg.ID)

	donation, err := w.log.LoggedDonation(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get donation from storage: %w", err)
	}

	return w.exportDonation(ctx, donation.ID, donation)
}

// ProcessPending exports any donations that haven't been exported yet. This
// is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.log.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending donations: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending donations", "count", len(pending))

	for _, d := range pending {
		if err := w.exportDonation(ctx, d.ID, d); err != nil {
			slog.ErrorContext(ctx, "Failed to export donation", "id", d.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck exports pending donations at worker startup, with a larger
// batch to recover from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.log.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending donations for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending donations found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending donations on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, d := range pending {
		if err := w.exportDonation(ctx, d.ID, d); err != nil {
			slog.ErrorContext(ctx, "Failed to export donation during startup",
				"id", d.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)
	return nil
}

func (w *ExportWorker) exportDonation(ctx context.Context, id int64, d core.LoggedDonation) error {
	ref, err := w.writer.Append(ctx, d)
	if err != nil {
		if markErr := w.log.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.log.MarkExported(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", id, "error", err)
		// Don't return an error here, the export actually worked.
	}

	slog.InfoContext(ctx, "Successfully exported donation",
		"id", id,
		"sheet_ref", ref,
		"amount_paise", d.Amount.Paise)
	return nil
}
