package time_parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyTimestamp = errors.New("timestamp is empty")

// unixMillisThreshold separates unix seconds from unix milliseconds
// (values above it are later than ~2001-09-09 when read as milliseconds).
const unixMillisThreshold = 1e12

// ParseTimestamp converts a query parameter into a UTC time.
// Supported formats:
//   - ISO strings: RFC3339, RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"
//   - Unix timestamps: seconds (< 1e12) or milliseconds (>= 1e12), integer or fractional
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimestamp
	}

	if number, err := strconv.ParseFloat(value, 64); err == nil {
		return fromUnixNumber(number), nil
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", value)
}

func fromUnixNumber(value float64) time.Time {
	if value >= unixMillisThreshold {
		return time.UnixMilli(int64(value)).UTC()
	}

	seconds := int64(value)
	nanos := int64((value - float64(seconds)) * float64(time.Second))
	return time.Unix(seconds, nanos).UTC()
}

// TimeRange is a half-open interval: From is inclusive, To is exclusive.
// A nil bound is open.
type TimeRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (r TimeRange) IsEmpty() bool {
	return r.From == nil && r.To == nil
}

func (r TimeRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(*r.To) {
		return false
	}
	return true
}

// ParseBetween reads "from,to". Either side may be empty.
func ParseBetween(value string) (TimeRange, error) {
	fromValue, toValue, found := strings.Cut(value, ",")
	if !found {
		return TimeRange{}, fmt.Errorf("between must be \"from,to\", got %q", value)
	}

	var timeRange TimeRange

	if strings.TrimSpace(fromValue) != "" {
		from, err := ParseTimestamp(fromValue)
		if err != nil {
			return TimeRange{}, fmt.Errorf("between from: %w", err)
		}
		timeRange.From = &from
	}

	if strings.TrimSpace(toValue) != "" {
		to, err := ParseTimestamp(toValue)
		if err != nil {
			return TimeRange{}, fmt.Errorf("between to: %w", err)
		}
		timeRange.To = &to
	}

	return timeRange, nil
}
