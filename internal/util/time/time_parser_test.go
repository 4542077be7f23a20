package time_parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseTimestamp_WithEmptyString_ReturnsError(t *testing.T) {
	_, err := ParseTimestamp("  ")

	assert.ErrorIs(t, err, ErrEmptyTimestamp)
}

func Test_ParseTimestamp_WithValidISOStrings_ParsesCorrectly(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "RFC3339 format",
			input:    "2023-12-25T15:30:45Z",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "RFC3339 with timezone",
			input:    "2023-12-25T15:30:45+02:00",
			expected: time.Date(2023, 12, 25, 13, 30, 45, 0, time.UTC),
		},
		{
			name:     "RFC3339Nano format",
			input:    "2023-12-25T15:30:45.123456789Z",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 123456789, time.UTC),
		},
		{
			name:     "ISO without timezone",
			input:    "2023-12-25T15:30:45",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "Space separated",
			input:    "2023-12-25 15:30:45",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "Date only",
			input:    "2023-12-25",
			expected: time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.input)

			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(result), "expected %v, got %v", tt.expected, result)
			assert.Equal(t, time.UTC, result.Location())
		})
	}
}

func Test_ParseTimestamp_WithUnixNumbers_DistinguishesSecondsAndMillis(t *testing.T) {
	seconds, err := ParseTimestamp("1703518245")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC), seconds)

	millis, err := ParseTimestamp("1703518245123")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 30, 45, 123_000_000, time.UTC), millis)

	fractional, err := ParseTimestamp("1703518245.5")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 30, 45, 500_000_000, time.UTC), fractional)
}

func Test_ParseTimestamp_WithGarbage_ReturnsError(t *testing.T) {
	_, err := ParseTimestamp("yesterday")

	assert.Error(t, err)
}

func Test_TimeRange_Contains_FromInclusiveToExclusive(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	timeRange := TimeRange{From: &from, To: &to}

	assert.True(t, timeRange.Contains(from))
	assert.True(t, timeRange.Contains(to.Add(-time.Nanosecond)))
	assert.False(t, timeRange.Contains(to))
	assert.False(t, timeRange.Contains(from.Add(-time.Nanosecond)))
	assert.True(t, TimeRange{}.Contains(from))
	assert.True(t, TimeRange{}.IsEmpty())
}

func Test_ParseBetween_WithOpenSide_LeavesBoundNil(t *testing.T) {
	timeRange, err := ParseBetween("2024-01-01T00:00:00Z,")
	require.NoError(t, err)

	require.NotNil(t, timeRange.From)
	assert.Nil(t, timeRange.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *timeRange.From)
}

func Test_ParseBetween_WithoutComma_ReturnsError(t *testing.T) {
	_, err := ParseBetween("2024-01-01T00:00:00Z")

	assert.Error(t, err)
}
