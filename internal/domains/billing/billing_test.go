package billing_test

import (
	"testing"
	"time"

	"innkeeper/internal/domains/billing"
	"innkeeper/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}

	return t
}

func TestComputeStay(t *testing.T) {
	tests := []struct {
		name           string
		checkIn        time.Time
		checkOut       time.Time
		rateCents      int64
		expectedNights int
		expectedTotal  int64
		expectedErr    bool
	}{
		{
			name:           "three nights at 100",
			checkIn:        date("2024-05-01"),
			checkOut:       date("2024-05-04"),
			rateCents:      10000,
			expectedNights: 3,
			expectedTotal:  30000,
		},
		{
			name:           "single night",
			checkIn:        date("2024-12-31"),
			checkOut:       date("2025-01-01"),
			rateCents:      12550,
			expectedNights: 1,
			expectedTotal:  12550,
		},
		{
			name:           "leap day stay",
			checkIn:        date("2024-02-28"),
			checkOut:       date("2024-03-01"),
			rateCents:      999,
			expectedNights: 2,
			expectedTotal:  1998,
		},
		{
			name:           "ignores time of day and zone",
			checkIn:        time.Date(2024, 3, 30, 23, 0, 0, 0, time.FixedZone("CET", 3600)),
			checkOut:       time.Date(2024, 4, 2, 1, 0, 0, 0, time.FixedZone("CEST", 7200)),
			rateCents:      5000,
			expectedNights: 3,
			expectedTotal:  15000,
		},
		{
			name:        "same day",
			checkIn:     date("2024-05-01"),
			checkOut:    date("2024-05-01"),
			rateCents:   10000,
			expectedErr: true,
		},
		{
			name:        "check out before check in",
			checkIn:     date("2024-05-04"),
			checkOut:    date("2024-05-01"),
			rateCents:   10000,
			expectedErr: true,
		},
		{
			name:        "zero rate",
			checkIn:     date("2024-05-01"),
			checkOut:    date("2024-05-04"),
			rateCents:   0,
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stay, err := billing.ComputeStay(tt.checkIn, tt.checkOut, tt.rateCents)

			if tt.expectedErr {
				require.Error(t, err)
				assert.True(t, failure.IsKind(err, failure.KindValidation))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedNights, stay.Nights)
			assert.Equal(t, tt.expectedTotal, stay.TotalCents)
			assert.Equal(t, tt.rateCents, stay.NightlyRateCents)
		})
	}
}

func TestToCents(t *testing.T) {
	tests := []struct {
		input    float64
		expected int64
	}{
		{input: 100, expected: 10000},
		{input: 99.99, expected: 9999},
		{input: 1.005, expected: 101},
		{input: 0.004, expected: 0},
		{input: 0.005, expected: 1},
		{input: -2.345, expected: -235},
		{input: 123456.78, expected: 12345678},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, billing.ToCents(tt.input), "input %v", tt.input)
	}
}

func TestParseCents(t *testing.T) {
	cents, err := billing.ParseCents(" 150.5 ")
	require.NoError(t, err)
	assert.Equal(t, int64(15050), cents)

	cents, err = billing.ParseCents(".75")
	require.NoError(t, err)
	assert.Equal(t, int64(75), cents)

	_, err = billing.ParseCents("12.3x")
	assert.Error(t, err)

	_, err = billing.ParseCents("abc")
	assert.Error(t, err)
}

func TestFromCents(t *testing.T) {
	assert.InDelta(t, 300.0, billing.FromCents(30000), 0.0001)
	assert.InDelta(t, 125.5, billing.FromCents(12550), 0.0001)
}
