// Package core holds the domain model of the donation ledger:
// money amounts, month keys, donors, beneficiaries and villages.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a donation amount in paise (1/100 rupee).
// All arithmetic happens on the integer paise value.
type Money struct {
	Paise int64 `json:"paise"`
}

// Rupees returns the rupee value as a float64 for display purposes.
// Use paise for calculations to avoid floating-point precision issues.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// String formats the amount as rupees with the ₹ sign, e.g. "₹500.00".
func (m Money) String() string {
	paise := m.Paise
	neg := paise < 0
	if neg {
		paise = -paise
	}
	s := fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
	if neg {
		return "-" + s
	}
	return s
}

func (m Money) Validate() error {
	if m.Paise <= 0 {
		return Validationf("donation amount must be greater than zero")
	}
	return nil
}

// ParseDecimalToPaise converts a decimal rupee string to paise with
// half-up rounding on the third decimal place. Both dot (12.34) and
// comma (12,34) separators are accepted. Only positive amounts parse.
//
// Examples:
//
//	ParseDecimalToPaise("500")    -> 50000, nil
//	ParseDecimalToPaise("12,34")  -> 1234, nil
//	ParseDecimalToPaise("12.346") -> 1235, nil (rounds up)
func ParseDecimalToPaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Validationf("donation amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, Validationf("donation amount must be greater than zero")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, Validationf("invalid donation amount %q", s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, Validationf("invalid donation amount %q", s)
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, Validationf("invalid donation amount %q", s)
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, Validationf("invalid donation amount %q", s)
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, Validationf("donation amount %q out of range", s)
	}
	// First two fractional digits, half-up rounding on the third.
	var fracPaise int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracPaise = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracPaise += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracPaise++
			}
		}
	}
	paise := iv*100 + fracPaise
	if paise <= 0 {
		return 0, Validationf("donation amount must be greater than zero")
	}
	return paise, nil
}
