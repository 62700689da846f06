// Package billing prices a stay. Amounts are integer cents so totals stay exact.
package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"innkeeper/shared/constant"
	"innkeeper/shared/failure"
	"innkeeper/shared/timezone"
)

const centDigits = 2

// Stay is the priced result of a reservation request.
type Stay struct {
	Nights           int
	NightlyRateCents int64
	TotalCents       int64
}

// ComputeStay counts whole nights between two calendar dates and multiplies by
// the nightly rate. Time of day and location of the inputs are ignored.
func ComputeStay(checkIn, checkOut time.Time, nightlyRateCents int64) (Stay, error) {
	in := timezone.DateOf(checkIn)
	out := timezone.DateOf(checkOut)

	if !out.After(in) {
		return Stay{}, failure.Validation("check_out must be after check_in")
	}

	if nightlyRateCents <= 0 {
		return Stay{}, failure.Validation("nightly_rate must be greater than 0")
	}

	nights := int(out.Sub(in).Hours() / constant.HoursPerDay)

	return Stay{
		Nights:           nights,
		NightlyRateCents: nightlyRateCents,
		TotalCents:       int64(nights) * nightlyRateCents,
	}, nil
}

// ToCents converts a decimal amount to cents, rounding half away from zero.
// The float is first rendered at its shortest exact decimal form so 1.005
// becomes 101 rather than falling victim to binary representation.
func ToCents(amount float64) int64 {
	cents, err := ParseCents(strconv.FormatFloat(amount, 'f', -1, 64))
	if err != nil {
		return 0
	}

	return cents
}

// ParseCents parses a decimal string such as "100", "99.9" or "-12.345".
func ParseCents(value string) (int64, error) {
	value = strings.TrimSpace(value)

	negative := strings.HasPrefix(value, "-")
	value = strings.TrimLeft(value, "+-")

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}

	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", value)
		}
	}

	frac += strings.Repeat("0", centDigits+1)

	fraction, _ := strconv.ParseInt(frac[:centDigits], 10, 64)
	cents := units*constant.CentsPerUnit + fraction

	if frac[centDigits] >= '5' {
		cents++
	}

	if negative {
		cents = -cents
	}

	return cents, nil
}

// FromCents converts minor units back to a two-decimal amount for responses.
func FromCents(cents int64) float64 {
	return float64(cents) / constant.CentsPerUnit
}
