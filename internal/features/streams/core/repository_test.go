package streams_core

import (
	"testing"
	"time"

	time_parser "logrelay/internal/util/time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBaseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testItem(channel string, offset time.Duration, data string) StreamItem {
	return StreamItem{
		Channel:    channel,
		Data:       []byte(data),
		Timestamp:  testBaseTime.Add(offset),
		ReceivedAt: testBaseTime,
	}
}

func itemData(items []StreamItem) []string {
	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, string(item.Data))
	}
	return values
}

func Test_Append_BeyondChannelCapacity_EvictsOldestOfThatChannelOnly(t *testing.T) {
	repository := NewStreamRepository(2)

	repository.Append(testItem("cpu", 0, "a"))
	repository.Append(testItem("cpu", time.Second, "b"))
	repository.Append(testItem("cpu", 2*time.Second, "c"))
	repository.Append(testItem("mem", 0, "x"))

	assert.Equal(t, []string{"b", "c"}, itemData(repository.Snapshot("cpu")))
	assert.Equal(t, []string{"x"}, itemData(repository.Snapshot("mem")))
	assert.Equal(t, []ChannelSummaryDTO{{Channel: "cpu", Count: 2}, {Channel: "mem", Count: 1}}, repository.Channels())
}

func Test_ExecuteQuery_SortsByTimestampKeepingArrivalOrderForTies(t *testing.T) {
	repository := NewStreamRepository(10)
	repository.Append(testItem("cpu", 2*time.Second, "late"))
	repository.Append(testItem("cpu", time.Second, "first-tie"))
	repository.Append(testItem("cpu", 0, "early"))
	repository.Append(testItem("cpu", time.Second, "second-tie"))

	ascending := repository.ExecuteQuery(StreamFilter{Channel: "cpu"})
	assert.Equal(t, []string{"early", "first-tie", "second-tie", "late"}, itemData(ascending.Items))

	descending := repository.ExecuteQuery(StreamFilter{Channel: "cpu", Order: SortOrderDesc})
	assert.Equal(t, []string{"late", "first-tie", "second-tie", "early"}, itemData(descending.Items))
}

func Test_ExecuteQuery_WithTimeRange_AppliesHalfOpenInterval(t *testing.T) {
	repository := NewStreamRepository(10)
	for i := 0; i < 5; i++ {
		repository.Append(testItem("cpu", time.Duration(i)*time.Second, string(rune('a'+i))))
	}

	from := testBaseTime.Add(time.Second)
	to := testBaseTime.Add(3 * time.Second)
	result := repository.ExecuteQuery(StreamFilter{
		Channel:   "cpu",
		TimeRange: time_parser.TimeRange{From: &from, To: &to},
	})

	assert.Equal(t, []string{"b", "c"}, itemData(result.Items))
	assert.Equal(t, 2, result.Total)
}

func Test_ExecuteQuery_WithUnknownChannel_ReturnsEmptyResult(t *testing.T) {
	repository := NewStreamRepository(10)

	result := repository.ExecuteQuery(StreamFilter{Channel: "missing"})

	assert.Empty(t, result.Items)
	assert.Equal(t, 0, result.Total)
	assert.False(t, result.HasMore)
}

func Test_ClearChannel_RemovesOnlyThatChannel(t *testing.T) {
	repository := NewStreamRepository(10)
	repository.Append(testItem("cpu", 0, "a"))
	repository.Append(testItem("cpu", 0, "b"))
	repository.Append(testItem("mem", 0, "x"))

	assert.Equal(t, 2, repository.ClearChannel("cpu"))
	assert.Equal(t, 0, repository.ClearChannel("cpu"))
	assert.Equal(t, 1, repository.ChannelCount())
	assert.Equal(t, 1, repository.ClearAll())
	assert.Equal(t, 0, repository.ChannelCount())
}

func Test_QueryStream_WhenTruncated_SetsWarning(t *testing.T) {
	repository := NewStreamRepository(10)
	for i := 0; i < 5; i++ {
		repository.Append(testItem("cpu", time.Duration(i)*time.Second, "v"))
	}

	truncated := GetStreamCoreService().QueryStream(repository, StreamFilter{Channel: "cpu", Limit: 2})
	assert.Equal(t, 2, truncated.Returned)
	assert.Equal(t, 5, truncated.Total)
	assert.True(t, truncated.HasMore)
	assert.NotEmpty(t, truncated.Warning)

	complete := GetStreamCoreService().QueryStream(repository, StreamFilter{Channel: "cpu"})
	assert.Equal(t, 5, complete.Returned)
	assert.Empty(t, complete.Warning)
}

func Test_QueryStream_WithLimitAboveCap_CapsAndWarns(t *testing.T) {
	repository := NewStreamRepository(10)
	repository.Append(testItem("cpu", 0, "v"))

	response := GetStreamCoreService().QueryStream(repository, StreamFilter{Channel: "cpu", Limit: 5000})

	require.NotNil(t, response.Query)
	assert.Equal(t, MaxQueryLimit, response.Query.Limit)
	assert.Contains(t, response.Warning, "limit capped")
}

func Test_ToStreamItemDTO_EncodesDataAsBase64(t *testing.T) {
	item := testItem("cpu", 0, "hello")

	dto := ToStreamItemDTO(&item)
	data, err := dto.DecodeData()

	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", dto.Data)
	assert.Equal(t, []byte("hello"), data)
}

func Test_DeleteOlderThan_DropsExpiredItemsAndEmptyChannels(t *testing.T) {
	repository := NewStreamRepository(10)
	old := testItem("cpu", 0, "old")
	old.ReceivedAt = testBaseTime.Add(-time.Hour)
	repository.Append(old)
	repository.Append(testItem("cpu", time.Second, "fresh"))
	expired := testItem("mem", 0, "gone")
	expired.ReceivedAt = testBaseTime.Add(-time.Hour)
	repository.Append(expired)

	deleted := repository.DeleteOlderThan(testBaseTime)

	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"fresh"}, itemData(repository.Snapshot("cpu")))
	assert.Equal(t, []ChannelSummaryDTO{{Channel: "cpu", Count: 1}}, repository.Channels())
}
