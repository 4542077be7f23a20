package streams_querying

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	streams_core "logrelay/internal/features/streams/core"
	"logrelay/internal/util/query_params"
)

// parseStreamFilter ignores a malformed time range or order and reports it
// in the filter's warnings. Missing channel and bad pagination fail.
func parseStreamFilter(values url.Values, logger *slog.Logger) (*streams_core.StreamFilter, error) {
	channel := strings.TrimSpace(values.Get("channel"))
	if channel == "" {
		return nil, &ValidationError{
			Code:    ErrorChannelRequired,
			Message: "channel is required",
			Field:   "channel",
		}
	}

	filter := &streams_core.StreamFilter{Channel: channel}

	timeRange, err := query_params.TimeRange(values)
	if err != nil {
		skipParameter(filter, toValidationError(err), logger)
	} else {
		filter.TimeRange = timeRange
	}

	if filter.Limit, err = query_params.NonNegativeInt(values, "limit"); err != nil {
		return nil, toValidationError(err)
	}
	if filter.Offset, err = query_params.NonNegativeInt(values, "offset"); err != nil {
		return nil, toValidationError(err)
	}

	if raw := strings.TrimSpace(values.Get("order")); raw != "" {
		filter.Order = streams_core.SortOrder(strings.ToLower(raw))
		if !filter.Order.IsValid() {
			filter.Order = streams_core.SortOrderAsc
			skipParameter(filter, &ValidationError{
				Code:    ErrorInvalidOrder,
				Message: fmt.Sprintf("order must be asc or desc, got %q", raw),
				Field:   "order",
			}, logger)
		}
	}

	return filter, nil
}

func skipParameter(filter *streams_core.StreamFilter, err error, logger *slog.Logger) {
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		validationErr = &ValidationError{Code: ErrorInvalidTimeRange, Message: err.Error()}
	}

	logger.Warn("skipping malformed stream query parameter",
		slog.String("field", validationErr.Field),
		slog.String("code", validationErr.Code),
		slog.String("error", validationErr.Message))
	filter.Warnings = append(filter.Warnings, streams_core.FilterWarning{
		Code:    validationErr.Code,
		Message: validationErr.Message,
		Field:   validationErr.Field,
	})
}

func toValidationError(err error) error {
	var paramErr *query_params.ParamError
	if !errors.As(err, &paramErr) {
		return err
	}

	code := ErrorInvalidLimit
	switch {
	case errors.Is(err, query_params.ErrInvalidTimestamp):
		code = ErrorInvalidTimestamp
	case errors.Is(err, query_params.ErrInvalidTimeRange):
		code = ErrorInvalidTimeRange
	case paramErr.Param == "offset":
		code = ErrorInvalidOffset
	}

	return &ValidationError{
		Code:    code,
		Message: paramErr.Error(),
		Field:   paramErr.Param,
	}
}
