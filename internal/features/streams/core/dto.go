package streams_core

import (
	"encoding/base64"
	"fmt"
	"time"

	time_parser "logrelay/internal/util/time"
)

type StreamFilter struct {
	Channel   string                `json:"channel"`
	TimeRange time_parser.TimeRange `json:"timeRange"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	Order     SortOrder             `json:"order"`

	// Warnings lists malformed parameters that were ignored.
	Warnings []FilterWarning `json:"warnings,omitempty"`

	// LimitCapped is set by Normalize when the requested limit was lowered.
	LimitCapped bool `json:"-"`
}

type FilterWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (f *StreamFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
		f.LimitCapped = true
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if !f.Order.IsValid() {
		f.Order = SortOrderAsc
	}
}

type StreamQueryResult struct {
	Items   []StreamItem
	Total   int
	HasMore bool
}

type StreamItemDTO struct {
	Channel      string    `json:"channel"`
	Data         string    `json:"data"`
	StreamType   string    `json:"type"`
	Group        string    `json:"group"`
	Timestamp    time.Time `json:"timestamp"`
	ReceivedAt   time.Time `json:"receivedAt"`
	ConnectionID string    `json:"connectionId"`
}

func ToStreamItemDTO(item *StreamItem) StreamItemDTO {
	return StreamItemDTO{
		Channel:      item.Channel,
		Data:         base64.StdEncoding.EncodeToString(item.Data),
		StreamType:   item.StreamType,
		Group:        item.Group,
		Timestamp:    item.Timestamp,
		ReceivedAt:   item.ReceivedAt,
		ConnectionID: item.ConnectionID.String(),
	}
}

func ToStreamItemDTOs(items []StreamItem) []StreamItemDTO {
	dtos := make([]StreamItemDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, ToStreamItemDTO(&items[i]))
	}
	return dtos
}

func (dto *StreamItemDTO) DecodeData() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(dto.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream data: %w", err)
	}
	return data, nil
}

type ChannelSummaryDTO struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
}

type ChannelsResponseDTO struct {
	Channels []ChannelSummaryDTO `json:"channels"`
}

type StreamQueryResponseDTO struct {
	Channel  string          `json:"channel"`
	Items    []StreamItemDTO `json:"items"`
	Total    int             `json:"total"`
	Returned int             `json:"returned"`
	HasMore  bool            `json:"hasMore"`
	Query    *StreamFilter   `json:"query"`
	Warning  string          `json:"warning,omitempty"`
}

type ClearStreamsResponseDTO struct {
	Cleared int `json:"cleared"`
}
