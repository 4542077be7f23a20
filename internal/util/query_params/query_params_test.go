package query_params

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_List_SplitsCommasAndRepeats(t *testing.T) {
	values := url.Values{"level": {"error, warning", "", "debug,"}}

	assert.Equal(t, []string{"error", "warning", "debug"}, List(values, "level"))
	assert.Empty(t, List(values, "missing"))
}

func Test_Bool_WhenInvalid_ReturnsParamError(t *testing.T) {
	_, err := Bool(url.Values{"inverse": {"perhaps"}}, "inverse")

	var paramErr *ParamError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "inverse", paramErr.Param)
	assert.ErrorIs(t, err, ErrInvalidBoolean)
}

func Test_NonNegativeInt_RejectsNegativeAndGarbage(t *testing.T) {
	for _, raw := range []string{"-1", "1.5", "ten"} {
		_, err := NonNegativeInt(url.Values{"limit": {raw}}, "limit")
		assert.ErrorIs(t, err, ErrInvalidInteger, raw)
	}

	value, err := NonNegativeInt(url.Values{"limit": {" 25 "}}, "limit")
	require.NoError(t, err)
	assert.Equal(t, 25, value)
}

func Test_TimeRange_FromAfterTo_ReturnsInvalidTimeRange(t *testing.T) {
	values := url.Values{"from": {"2024-05-02T00:00:00Z"}, "to": {"2024-05-01T00:00:00Z"}}

	_, err := TimeRange(values)

	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func Test_TimeRange_BetweenWithOpenEnd_SetsOnlyFrom(t *testing.T) {
	timeRange, err := TimeRange(url.Values{"between": {"1714564800,"}})

	require.NoError(t, err)
	require.NotNil(t, timeRange.From)
	assert.Nil(t, timeRange.To)
}
