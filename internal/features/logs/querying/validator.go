package logs_querying

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/util/query_params"
)

// QueryValidator turns query-string parameters into a LogFilter.
type QueryValidator struct {
	logger *slog.Logger
}

const maxValueLength = 1000

// ParseFilter builds a LogFilter. A malformed predicate parameter drops
// its stage and is reported in Warnings; only malformed pagination fails
// the query.
func (v *QueryValidator) ParseFilter(values url.Values) (*logs_core.LogFilter, error) {
	filter := &logs_core.LogFilter{}

	timeRange, err := query_params.TimeRange(values)
	if err != nil {
		v.skip(filter, toValidationError(err))
	} else {
		filter.TimeRange = timeRange
	}

	for _, field := range []struct {
		name   string
		target *string
	}{
		{"session", &filter.Session},
		{"sessionContains", &filter.SessionContains},
		{"sessionPattern", &filter.SessionPattern},
		{"message", &filter.Message},
		{"messagePattern", &filter.MessagePattern},
		{"title", &filter.Title},
		{"titlePattern", &filter.TitlePattern},
		{"appName", &filter.AppName},
		{"hostName", &filter.HostName},
	} {
		value := values.Get(field.name)
		if len(value) > maxValueLength {
			v.skip(filter, &logs_core.ValidationError{
				Code:    logs_core.ErrorInvalidQueryValue,
				Message: fmt.Sprintf("%s exceeds %d characters", field.name, maxValueLength),
				Field:   field.name,
			})
			continue
		}
		*field.target = value
	}

	filter.Sessions = query_params.List(values, "sessions")
	filter.AppNames = query_params.List(values, "appNames")

	// a malformed flag leaves the stage uninverted
	if filter.SessionInverse, err = query_params.Bool(values, "sessionInverse"); err != nil {
		v.skip(filter, toValidationError(err))
	}
	if filter.MessageInverse, err = query_params.Bool(values, "messageInverse"); err != nil {
		v.skip(filter, toValidationError(err))
	}

	for _, raw := range query_params.List(values, "level") {
		level, err := protocol.ParseLevel(raw)
		if err != nil {
			v.skip(filter, &logs_core.ValidationError{
				Code:    logs_core.ErrorInvalidLevel,
				Message: err.Error(),
				Field:   "level",
			})
			continue
		}
		filter.Levels = append(filter.Levels, level)
	}

	for _, raw := range query_params.List(values, "entryType") {
		entryType, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			v.skip(filter, &logs_core.ValidationError{
				Code:    logs_core.ErrorInvalidEntryType,
				Message: fmt.Sprintf("entryType %q is not a number", raw),
				Field:   "entryType",
			})
			continue
		}
		filter.EntryTypes = append(filter.EntryTypes, protocol.LogEntryType(entryType))
	}

	if filter.Limit, err = query_params.NonNegativeInt(values, "limit"); err != nil {
		return nil, toValidationError(err)
	}
	if filter.Offset, err = query_params.NonNegativeInt(values, "offset"); err != nil {
		return nil, toValidationError(err)
	}

	if raw := strings.TrimSpace(values.Get("order")); raw != "" {
		filter.Order = logs_core.SortOrder(strings.ToLower(raw))
		if !filter.Order.IsValid() {
			filter.Order = logs_core.SortOrderAsc
			v.skip(filter, &logs_core.ValidationError{
				Code:    logs_core.ErrorInvalidOrder,
				Message: fmt.Sprintf("order must be asc or desc, got %q", raw),
				Field:   "order",
			})
		}
	}

	if filter.Limit > logs_core.MaxQueryLimit {
		v.logger.Debug("query limit capped",
			slog.Int("requested", filter.Limit),
			slog.Int("max", logs_core.MaxQueryLimit))
	}

	filter.Normalize()
	return filter, nil
}

func (v *QueryValidator) skip(filter *logs_core.LogFilter, err error) {
	var validationErr *logs_core.ValidationError
	if !errors.As(err, &validationErr) {
		validationErr = &logs_core.ValidationError{Code: logs_core.ErrorInvalidQueryValue, Message: err.Error()}
	}

	v.logger.Warn("skipping malformed query parameter",
		slog.String("field", validationErr.Field),
		slog.String("code", validationErr.Code),
		slog.String("error", validationErr.Message))
	filter.Warnings = append(filter.Warnings, *validationErr)
}

// toValidationError maps a query parameter error onto an API error code.
func toValidationError(err error) error {
	var paramErr *query_params.ParamError
	if !errors.As(err, &paramErr) {
		return err
	}

	code := logs_core.ErrorInvalidQueryValue
	switch {
	case errors.Is(err, query_params.ErrInvalidTimestamp):
		code = logs_core.ErrorInvalidTimestamp
	case errors.Is(err, query_params.ErrInvalidTimeRange):
		code = logs_core.ErrorInvalidTimeRange
	case errors.Is(err, query_params.ErrInvalidBoolean):
		code = logs_core.ErrorInvalidBoolean
	case paramErr.Param == "limit":
		code = logs_core.ErrorInvalidLimit
	case paramErr.Param == "offset":
		code = logs_core.ErrorInvalidOffset
	}

	return &logs_core.ValidationError{
		Code:    code,
		Message: paramErr.Error(),
		Field:   paramErr.Param,
	}
}
