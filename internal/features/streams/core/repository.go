package streams_core

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// StreamRepository keeps one bounded buffer per channel for a room.
type StreamRepository struct {
	mu                 sync.RWMutex
	channels           map[string]*channelBuffer
	capacityPerChannel int
}

func NewStreamRepository(capacityPerChannel int) *StreamRepository {
	if capacityPerChannel < 1 {
		capacityPerChannel = 1
	}

	return &StreamRepository{
		channels:           make(map[string]*channelBuffer),
		capacityPerChannel: capacityPerChannel,
	}
}

func (repository *StreamRepository) Append(item StreamItem) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	buffer, exists := repository.channels[item.Channel]
	if !exists {
		buffer = &channelBuffer{capacity: repository.capacityPerChannel}
		repository.channels[item.Channel] = buffer
	}

	buffer.push(item)
}

// Channels lists channel names with their item counts, sorted by name.
func (repository *StreamRepository) Channels() []ChannelSummaryDTO {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	summaries := make([]ChannelSummaryDTO, 0, len(repository.channels))
	for name, buffer := range repository.channels {
		summaries = append(summaries, ChannelSummaryDTO{Channel: name, Count: len(buffer.items)})
	}

	slices.SortFunc(summaries, func(a, b ChannelSummaryDTO) int {
		return cmp.Compare(a.Channel, b.Channel)
	})

	return summaries
}

func (repository *StreamRepository) ChannelCount() int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return len(repository.channels)
}

// Snapshot copies one channel in insertion order.
func (repository *StreamRepository) Snapshot(channel string) []StreamItem {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	buffer, exists := repository.channels[channel]
	if !exists {
		return nil
	}

	return buffer.snapshot()
}

// Latest returns at most limit newest items of every channel.
func (repository *StreamRepository) Latest(limit int) map[string][]StreamItem {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	latest := make(map[string][]StreamItem, len(repository.channels))
	for name, buffer := range repository.channels {
		items := buffer.snapshot()
		if limit >= 0 && len(items) > limit {
			items = items[len(items)-limit:]
		}
		latest[name] = items
	}

	return latest
}

// ClearChannel removes one channel and returns how many items it held.
func (repository *StreamRepository) ClearChannel(channel string) int {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	buffer, exists := repository.channels[channel]
	if !exists {
		return 0
	}

	delete(repository.channels, channel)
	return len(buffer.items)
}

func (repository *StreamRepository) ClearAll() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	cleared := 0
	for _, buffer := range repository.channels {
		cleared += len(buffer.items)
	}
	repository.channels = make(map[string]*channelBuffer)

	return cleared
}

// DeleteOlderThan drops items received before cutoff and forgets channels
// left empty.
func (repository *StreamRepository) DeleteOlderThan(cutoff time.Time) int {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	deleted := 0
	for name, buffer := range repository.channels {
		deleted += buffer.deleteOlderThan(cutoff)
		if len(buffer.items) == 0 {
			delete(repository.channels, name)
		}
	}

	return deleted
}

// ExecuteQuery applies the time range, sorts by timestamp (stable, so
// equal timestamps keep arrival order) and paginates.
func (repository *StreamRepository) ExecuteQuery(filter StreamFilter) *StreamQueryResult {
	filter.Normalize()
	items := repository.Snapshot(filter.Channel)

	matched := items[:0]
	for _, item := range items {
		if filter.TimeRange.Contains(item.Timestamp) {
			matched = append(matched, item)
		}
	}

	slices.SortStableFunc(matched, func(a, b StreamItem) int {
		if filter.Order == SortOrderDesc {
			return b.Timestamp.Compare(a.Timestamp)
		}
		return a.Timestamp.Compare(b.Timestamp)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)

	return &StreamQueryResult{
		Items:   matched[start:end],
		Total:   total,
		HasMore: end < total,
	}
}

type channelBuffer struct {
	items    []StreamItem
	head     int
	capacity int
}

func (buffer *channelBuffer) push(item StreamItem) {
	if len(buffer.items) < buffer.capacity {
		buffer.items = append(buffer.items, item)
		return
	}

	buffer.items[buffer.head] = item
	buffer.head = (buffer.head + 1) % buffer.capacity
}

func (buffer *channelBuffer) deleteOlderThan(cutoff time.Time) int {
	items := buffer.snapshot()
	expired := 0
	for expired < len(items) && items[expired].ReceivedAt.Before(cutoff) {
		expired++
	}
	if expired == 0 {
		return 0
	}

	buffer.items = append(make([]StreamItem, 0, len(items)-expired), items[expired:]...)
	buffer.head = 0
	return expired
}

func (buffer *channelBuffer) snapshot() []StreamItem {
	snapshot := make([]StreamItem, 0, len(buffer.items))
	snapshot = append(snapshot, buffer.items[buffer.head:]...)
	snapshot = append(snapshot, buffer.items[:buffer.head]...)
	return snapshot
}
