package core

import (
	"fmt"
	"regexp"
	"time"
)

// MonthKey identifies one calendar month of donations, formatted "YYYY-MM".
// The key is always derived from the UTC instant of the donation, so a
// donation at 2024-01-31T23:59:59Z lands in "2024-01" regardless of the
// server's local zone.
type MonthKey string

var monthKeyRE = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKeyFor derives the key for the given instant.
func MonthKeyFor(t time.Time) MonthKey {
	u := t.UTC()
	return MonthKey(fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month())))
}

func (k MonthKey) Validate() error {
	if !monthKeyRE.MatchString(string(k)) {
		return Validationf("invalid month key %q, want YYYY-MM", string(k))
	}
	return nil
}

func (k MonthKey) String() string { return string(k) }

// MonthlyTotal is the per-month aggregate record. It is created lazily on
// the first donation of a month, never deleted, and mutated only by the
// recording transaction. Total never decreases.
type MonthlyTotal struct {
	Month              MonthKey `json:"month"`
	Total              Money    `json:"total"`
	AnonymousDonations int64    `json:"anonymousDonations"`
}
