package query_params

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	time_parser "logrelay/internal/util/time"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidBoolean   = errors.New("invalid boolean")
	ErrInvalidInteger   = errors.New("invalid non-negative integer")
)

// ParamError names the query parameter that failed to parse.
type ParamError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// TimeRange reads from/to or between. Mixing both forms is rejected, as is
// a range whose start is after its end.
func TimeRange(values url.Values) (time_parser.TimeRange, error) {
	var timeRange time_parser.TimeRange

	from := strings.TrimSpace(values.Get("from"))
	to := strings.TrimSpace(values.Get("to"))
	between := strings.TrimSpace(values.Get("between"))

	if between != "" {
		if from != "" || to != "" {
			return timeRange, &ParamError{"between", "cannot be combined with from or to", ErrInvalidTimeRange}
		}

		parsed, err := time_parser.ParseBetween(between)
		if err != nil {
			return timeRange, &ParamError{"between", err.Error(), ErrInvalidTimeRange}
		}
		timeRange = parsed
	}

	if from != "" {
		parsed, err := time_parser.ParseTimestamp(from)
		if err != nil {
			return timeRange, &ParamError{"from", err.Error(), ErrInvalidTimestamp}
		}
		timeRange.From = &parsed
	}

	if to != "" {
		parsed, err := time_parser.ParseTimestamp(to)
		if err != nil {
			return timeRange, &ParamError{"to", err.Error(), ErrInvalidTimestamp}
		}
		timeRange.To = &parsed
	}

	if timeRange.From != nil && timeRange.To != nil && timeRange.From.After(*timeRange.To) {
		return timeRange, &ParamError{"from", "must not be after to", ErrInvalidTimeRange}
	}

	return timeRange, nil
}

// List accepts both repeated parameters and comma-separated values.
func List(values url.Values, name string) []string {
	var items []string
	for _, value := range values[name] {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// Bool is false when the parameter is absent.
func Bool(values url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ParamError{name, fmt.Sprintf("must be true or false, got %q", raw), ErrInvalidBoolean}
	}
	return value, nil
}

// NonNegativeInt is zero when the parameter is absent.
func NonNegativeInt(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, &ParamError{name, fmt.Sprintf("must be a non-negative integer, got %q", raw), ErrInvalidInteger}
	}
	return value, nil
}
