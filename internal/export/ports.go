// Package export defines the ports for writing donation log rows to an
// external reporting sheet.
package export

import (
	"context"

	"monthlyaid/internal/core"
)

// DonationWriter appends a logged donation to the reporting destination and
// returns a reference to the written row.
type DonationWriter interface {
	Append(ctx context.Context, d core.LoggedDonation) (string, error)
}
