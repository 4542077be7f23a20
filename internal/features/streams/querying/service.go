package streams_querying

import (
	"log/slog"
	"net/url"
	"strings"

	"logrelay/internal/features/rooms"
	streams_core "logrelay/internal/features/streams/core"
)

type StreamQueryService struct {
	roomRegistry      *rooms.RoomRegistry
	streamCoreService *streams_core.StreamCoreService
	logger            *slog.Logger
}

func (s *StreamQueryService) ListChannels(roomID string) *streams_core.ChannelsResponseDTO {
	response := &streams_core.ChannelsResponseDTO{Channels: []streams_core.ChannelSummaryDTO{}}

	if room, exists := s.roomRegistry.Get(roomID); exists {
		response.Channels = room.Streams().Channels()
	}

	return response
}

// QueryStream reads one channel. An unknown room or channel yields an
// empty page, not an error.
func (s *StreamQueryService) QueryStream(
	roomID string,
	values url.Values,
) (*streams_core.StreamQueryResponseDTO, error) {
	filter, err := parseStreamFilter(values, s.logger)
	if err != nil {
		return nil, err
	}

	room, exists := s.roomRegistry.Get(roomID)
	if !exists {
		filter.Normalize()
		return &streams_core.StreamQueryResponseDTO{
			Channel: filter.Channel,
			Items:   []streams_core.StreamItemDTO{},
			Query:   filter,
		}, nil
	}

	return s.streamCoreService.QueryStream(room.Streams(), *filter), nil
}

// ClearStreams removes one channel, or every channel when none is named.
func (s *StreamQueryService) ClearStreams(roomID string, channel string) *streams_core.ClearStreamsResponseDTO {
	room, exists := s.roomRegistry.Get(roomID)
	if !exists {
		return &streams_core.ClearStreamsResponseDTO{}
	}

	channel = strings.TrimSpace(channel)

	var cleared int
	if channel == "" {
		cleared = room.Streams().ClearAll()
	} else {
		cleared = room.Streams().ClearChannel(channel)
	}

	s.logger.Info("streams cleared via api",
		slog.String("room", room.ID),
		slog.String("channel", channel),
		slog.Int("items", cleared))

	return &streams_core.ClearStreamsResponseDTO{Cleared: cleared}
}
