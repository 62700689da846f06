// Package availability derives how many units of a room are free for a stay.
// It is the only place that decides whether two stays collide.
package availability

import (
	"slices"
	"time"
)

// Status values that hold inventory. Mirrors the reservation lifecycle.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
)

// openEnd stands in for "no check-out" when browsing from today onward.
var openEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Range is a half-open stay [CheckIn, CheckOut) of calendar dates.
type Range struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Open returns the range starting at from with no upper bound.
func Open(from time.Time) Range {
	return Range{CheckIn: from, CheckOut: openEnd}
}

// Booking is the minimum a calculator needs to know about a reservation.
type Booking struct {
	ID       string
	Status   string
	CheckIn  time.Time
	CheckOut time.Time
}

func (b Booking) Range() Range {
	return Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// Overlaps reports whether two half-open ranges share at least one night.
// A check-out on the same day as another check-in does not overlap.
func Overlaps(a, b Range) bool {
	return a.CheckIn.Before(b.CheckOut) && a.CheckOut.After(b.CheckIn)
}

// Blocks reports whether a reservation in status consumes a unit.
func Blocks(status string) bool {
	return status == StatusPending || status == StatusApproved
}

// AvailableUnits returns totalUnits minus the blocking bookings overlapping
// stay, ignoring excludeID. The result is never negative.
func AvailableUnits(totalUnits int, bookings []Booking, stay Range, excludeID string) int {
	taken := 0

	for _, b := range bookings {
		if excludeID != "" && b.ID == excludeID {
			continue
		}

		if !Blocks(b.Status) || !Overlaps(b.Range(), stay) {
			continue
		}

		taken++
	}

	return max(totalUnits-taken, 0)
}

// Bookable reports whether at least one unit is free for stay.
func Bookable(totalUnits int, bookings []Booking, stay Range, excludeID string) bool {
	return AvailableUnits(totalUnits, bookings, stay, excludeID) > 0
}

// PeakUsage returns the largest number of blocking bookings sharing a single
// night. A room needs at least this many units to honour them all.
func PeakUsage(bookings []Booking) int {
	type edge struct {
		at    time.Time
		delta int
	}

	edges := make([]edge, 0, 2*len(bookings))

	for _, b := range bookings {
		if !Blocks(b.Status) || !b.CheckIn.Before(b.CheckOut) {
			continue
		}

		edges = append(edges, edge{b.CheckIn, 1}, edge{b.CheckOut, -1})
	}

	// Check-outs sort before check-ins on the same day: the unit is handed over.
	slices.SortFunc(edges, func(a, b edge) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}

		return a.delta - b.delta
	})

	peak, current := 0, 0

	for _, e := range edges {
		current += e.delta
		peak = max(peak, current)
	}

	return peak
}
