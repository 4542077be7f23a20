package logs_querying

import (
	"net/url"
	"testing"
	"time"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/util/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidator() *QueryValidator {
	return &QueryValidator{logger.GetLogger()}
}

func parse(t *testing.T, rawQuery string) (*logs_core.LogFilter, error) {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	return createValidator().ParseFilter(values)
}

func assertValidationError(t *testing.T, err error, expectedCode string, expectedField string) {
	t.Helper()
	require.Error(t, err)

	validationErr, ok := err.(*logs_core.ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	assert.Equal(t, expectedCode, validationErr.Code)
	assert.Equal(t, expectedField, validationErr.Field)
}

func Test_ParseFilter_WithNoParameters_AppliesDefaults(t *testing.T) {
	filter, err := parse(t, "")

	require.NoError(t, err)
	assert.Equal(t, logs_core.DefaultQueryLimit, filter.Limit)
	assert.Equal(t, 0, filter.Offset)
	assert.Equal(t, logs_core.SortOrderAsc, filter.Order)
	assert.True(t, filter.TimeRange.IsEmpty())
}

func Test_ParseFilter_WithAllStages_PopulatesFilter(t *testing.T) {
	filter, err := parse(t, "session=Main&sessionContains=ai&sessionPattern=^M&sessions=A,+B&sessionInverse=true"+
		"&message=boot&messagePattern=b.*t&title=boot&titlePattern=t$&messageInverse=1"+
		"&level=warning,ERROR&level=0&entryType=100,101&appName=svc&appNames=a,b&hostName=web-1"+
		"&limit=20&offset=5&order=DESC")

	require.NoError(t, err)
	assert.Equal(t, "Main", filter.Session)
	assert.Equal(t, "ai", filter.SessionContains)
	assert.Equal(t, "^M", filter.SessionPattern)
	assert.Equal(t, []string{"A", "B"}, filter.Sessions)
	assert.True(t, filter.SessionInverse)
	assert.Equal(t, "boot", filter.Message)
	assert.Equal(t, "b.*t", filter.MessagePattern)
	assert.Equal(t, "t$", filter.TitlePattern)
	assert.True(t, filter.MessageInverse)
	assert.Equal(t, []protocol.Level{protocol.LevelWarning, protocol.LevelError, protocol.LevelDebug}, filter.Levels)
	assert.Equal(t, []protocol.LogEntryType{protocol.LogEntryTypeMessage, protocol.LogEntryTypeWarning}, filter.EntryTypes)
	assert.Equal(t, "svc", filter.AppName)
	assert.Equal(t, []string{"a", "b"}, filter.AppNames)
	assert.Equal(t, "web-1", filter.HostName)
	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, 5, filter.Offset)
	assert.Equal(t, logs_core.SortOrderDesc, filter.Order)
}

func Test_ParseFilter_LimitAboveMaximum_IsCapped(t *testing.T) {
	filter, err := parse(t, "limit=50000")

	require.NoError(t, err)
	assert.Equal(t, logs_core.MaxQueryLimit, filter.Limit)
}

func Test_ParseFilter_FromAndTo_ParsesBothFormats(t *testing.T) {
	filter, err := parse(t, "from=2024-05-01T12:00:00Z&to=1714568400000")

	require.NoError(t, err)
	require.NotNil(t, filter.TimeRange.From)
	require.NotNil(t, filter.TimeRange.To)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), filter.TimeRange.From.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), filter.TimeRange.To.UTC())
}

func Test_ParseFilter_Between_SetsBothBounds(t *testing.T) {
	filter, err := parse(t, "between=1714564800,1714568400")

	require.NoError(t, err)
	require.NotNil(t, filter.TimeRange.From)
	require.NotNil(t, filter.TimeRange.To)
	assert.Equal(t, time.Hour, filter.TimeRange.To.Sub(*filter.TimeRange.From))
}

func Test_ParseFilter_MalformedPagination_ReturnsValidationError(t *testing.T) {
	tests := []struct {
		name          string
		rawQuery      string
		expectedCode  string
		expectedField string
	}{
		{"negative limit", "limit=-1", logs_core.ErrorInvalidLimit, "limit"},
		{"limit not a number", "limit=ten", logs_core.ErrorInvalidLimit, "limit"},
		{"negative offset", "offset=-5", logs_core.ErrorInvalidOffset, "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.rawQuery)
			assertValidationError(t, err, tt.expectedCode, tt.expectedField)
		})
	}
}

func Test_ParseFilter_MalformedPredicate_SkipsStageWithWarning(t *testing.T) {
	tests := []struct {
		name          string
		rawQuery      string
		expectedCode  string
		expectedField string
	}{
		{"bad from", "from=yesterday", logs_core.ErrorInvalidTimestamp, "from"},
		{"bad to", "to=soon", logs_core.ErrorInvalidTimestamp, "to"},
		{"from after to", "from=2024-05-02T00:00:00Z&to=2024-05-01T00:00:00Z", logs_core.ErrorInvalidTimeRange, "from"},
		{"between without comma", "between=1714564800", logs_core.ErrorInvalidTimeRange, "between"},
		{"between mixed with from", "between=1,2&from=1", logs_core.ErrorInvalidTimeRange, "between"},
		{"unknown level", "level=loud", logs_core.ErrorInvalidLevel, "level"},
		{"entry type not a number", "entryType=message", logs_core.ErrorInvalidEntryType, "entryType"},
		{"unknown order", "order=newest", logs_core.ErrorInvalidOrder, "order"},
		{"bad session flag", "sessionInverse=maybe", logs_core.ErrorInvalidBoolean, "sessionInverse"},
		{"bad message flag", "messageInverse=perhaps", logs_core.ErrorInvalidBoolean, "messageInverse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := parse(t, tt.rawQuery)

			require.NoError(t, err)
			require.Len(t, filter.Warnings, 1)
			assert.Equal(t, tt.expectedCode, filter.Warnings[0].Code)
			assert.Equal(t, tt.expectedField, filter.Warnings[0].Field)

			assert.True(t, filter.TimeRange.IsEmpty())
			assert.Empty(t, filter.Levels)
			assert.Empty(t, filter.EntryTypes)
			assert.False(t, filter.SessionInverse)
			assert.False(t, filter.MessageInverse)
			assert.Equal(t, logs_core.SortOrderAsc, filter.Order)
		})
	}
}

func Test_ParseFilter_MixedLevels_KeepsOnlyValidOnes(t *testing.T) {
	filter, err := parse(t, "level=error,loud,fatal&entryType=101,x")

	require.NoError(t, err)
	assert.Equal(t, []protocol.Level{protocol.LevelError, protocol.LevelFatal}, filter.Levels)
	assert.Equal(t, []protocol.LogEntryType{protocol.LogEntryTypeWarning}, filter.EntryTypes)
	assert.Len(t, filter.Warnings, 2)
}

func Test_ParseFilter_ValueTooLong_SkipsThatValue(t *testing.T) {
	values := url.Values{
		"message": {string(make([]byte, maxValueLength+1))},
		"title":   {"boot"},
	}

	filter, err := createValidator().ParseFilter(values)

	require.NoError(t, err)
	assert.Empty(t, filter.Message)
	assert.Equal(t, "boot", filter.Title)
	require.Len(t, filter.Warnings, 1)
	assert.Equal(t, logs_core.ErrorInvalidQueryValue, filter.Warnings[0].Code)
	assert.Equal(t, "message", filter.Warnings[0].Field)
}

func Test_ParseFilter_InvalidPattern_IsAcceptedAndSkippedLater(t *testing.T) {
	filter, err := parse(t, "sessionPattern=(")

	require.NoError(t, err)
	assert.Equal(t, "(", filter.SessionPattern)
}
