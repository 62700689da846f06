package availability_test

import (
	"testing"
	"time"

	"innkeeper/internal/domains/availability"

	"github.com/stretchr/testify/assert"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}

	return t
}

func stay(in, out string) availability.Range {
	return availability.Range{CheckIn: day(in), CheckOut: day(out)}
}

func booking(id, status, in, out string) availability.Booking {
	return availability.Booking{ID: id, Status: status, CheckIn: day(in), CheckOut: day(out)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a        availability.Range
		b        availability.Range
		expected bool
	}{
		{name: "identical", a: stay("2024-05-01", "2024-05-04"), b: stay("2024-05-01", "2024-05-04"), expected: true},
		{name: "partial", a: stay("2024-05-01", "2024-05-04"), b: stay("2024-05-03", "2024-05-06"), expected: true},
		{name: "contained", a: stay("2024-05-01", "2024-05-10"), b: stay("2024-05-03", "2024-05-04"), expected: true},
		{name: "check out on next check in", a: stay("2024-05-01", "2024-05-04"), b: stay("2024-05-04", "2024-05-06"), expected: false},
		{name: "check in on previous check out", a: stay("2024-05-04", "2024-05-06"), b: stay("2024-05-01", "2024-05-04"), expected: false},
		{name: "disjoint", a: stay("2024-05-01", "2024-05-02"), b: stay("2024-06-01", "2024-06-02"), expected: false},
		{name: "open range", a: availability.Open(day("2024-05-01")), b: stay("2030-01-01", "2030-01-02"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, availability.Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.expected, availability.Overlaps(tt.b, tt.a))
		})
	}
}

func TestBlocks(t *testing.T) {
	assert.True(t, availability.Blocks("PENDING"))
	assert.True(t, availability.Blocks("APPROVED"))
	assert.False(t, availability.Blocks("REJECTED"))
	assert.False(t, availability.Blocks(""))
}

func TestAvailableUnits(t *testing.T) {
	bookings := []availability.Booking{
		booking("r1", "PENDING", "2024-05-01", "2024-05-04"),
		booking("r2", "APPROVED", "2024-05-02", "2024-05-05"),
		booking("r3", "REJECTED", "2024-05-01", "2024-05-04"),
		booking("r4", "APPROVED", "2024-05-04", "2024-05-06"),
	}

	tests := []struct {
		name      string
		total     int
		stay      availability.Range
		excludeID string
		expected  int
	}{
		{name: "two blocking overlaps", total: 3, stay: stay("2024-05-01", "2024-05-04"), expected: 1},
		{name: "rejected does not block", total: 2, stay: stay("2024-05-01", "2024-05-02"), expected: 1},
		{name: "boundary stay is free", total: 1, stay: stay("2024-05-06", "2024-05-08"), expected: 1},
		{name: "self exclusion", total: 2, stay: stay("2024-05-01", "2024-05-04"), excludeID: "r1", expected: 1},
		{name: "clamped at zero", total: 1, stay: stay("2024-05-03", "2024-05-05"), expected: 0},
		{name: "open range sees every future booking", total: 5, stay: availability.Open(day("2024-04-01")), expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := availability.AvailableUnits(tt.total, bookings, tt.stay, tt.excludeID)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected > 0, availability.Bookable(tt.total, bookings, tt.stay, tt.excludeID))
		})
	}
}

func TestOpen(t *testing.T) {
	r := availability.Open(day("2024-05-01"))

	assert.True(t, r.CheckIn.Equal(day("2024-05-01")))
	assert.True(t, availability.Overlaps(r, stay("2099-01-01", "2099-01-02")))
	assert.False(t, availability.Overlaps(r, stay("2024-04-30", "2024-05-01")))
}

func TestPeakUsage(t *testing.T) {
	tests := []struct {
		name     string
		bookings []availability.Booking
		want     int
	}{
		{"none", nil, 0},
		{
			name: "identical stays stack",
			bookings: []availability.Booking{
				booking("a", availability.StatusPending, "2024-07-01", "2024-07-05"),
				booking("b", availability.StatusPending, "2024-07-01", "2024-07-05"),
				booking("c", availability.StatusApproved, "2024-07-01", "2024-07-05"),
			},
			want: 3,
		},
		{
			name: "back to back stays share a unit",
			bookings: []availability.Booking{
				booking("a", availability.StatusApproved, "2024-07-01", "2024-07-03"),
				booking("b", availability.StatusApproved, "2024-07-03", "2024-07-05"),
			},
			want: 1,
		},
		{
			name: "peak is on the busiest night only",
			bookings: []availability.Booking{
				booking("a", availability.StatusApproved, "2024-07-01", "2024-07-10"),
				booking("b", availability.StatusPending, "2024-07-02", "2024-07-04"),
				booking("c", availability.StatusPending, "2024-07-03", "2024-07-06"),
				booking("d", availability.StatusPending, "2024-07-08", "2024-07-09"),
			},
			want: 3,
		},
		{
			name: "rejected stays are ignored",
			bookings: []availability.Booking{
				booking("a", availability.StatusApproved, "2024-07-01", "2024-07-05"),
				booking("b", "REJECTED", "2024-07-01", "2024-07-05"),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, availability.PeakUsage(tt.bookings))
		})
	}
}
