package logs_core

import (
	"encoding/base64"
	"fmt"
	"time"

	"logrelay/internal/features/protocol"
	time_parser "logrelay/internal/util/time"
)

// LogFilter is the full set of query stages. Zero values disable a stage.
type LogFilter struct {
	TimeRange time_parser.TimeRange `json:"timeRange"`

	Session         string   `json:"session,omitempty"`
	SessionContains string   `json:"sessionContains,omitempty"`
	SessionPattern  string   `json:"sessionPattern,omitempty"`
	Sessions        []string `json:"sessions,omitempty"`
	SessionInverse  bool     `json:"sessionInverse,omitempty"`

	// Message and Title both match the entry title.
	Message        string `json:"message,omitempty"`
	MessagePattern string `json:"messagePattern,omitempty"`
	Title          string `json:"title,omitempty"`
	TitlePattern   string `json:"titlePattern,omitempty"`
	MessageInverse bool   `json:"messageInverse,omitempty"`

	Levels     []protocol.Level        `json:"levels,omitempty"`
	EntryTypes []protocol.LogEntryType `json:"entryTypes,omitempty"`
	AppName    string                  `json:"appName,omitempty"`
	AppNames   []string                `json:"appNames,omitempty"`
	HostName   string                  `json:"hostName,omitempty"`

	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Order  SortOrder `json:"order"`

	// Warnings lists malformed parameters whose stage was skipped.
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// Normalize applies pagination defaults and caps.
func (f *LogFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if !f.Order.IsValid() {
		f.Order = SortOrderAsc
	}
}

type LogQueryResult struct {
	Entries []StoredEntry
	Total   int
	HasMore bool
}

type LogQueryResponseDTO struct {
	Entries  []LogItemDTO `json:"entries"`
	Total    int          `json:"total"`
	Returned int          `json:"returned"`
	HasMore  bool         `json:"hasMore"`
	Query    *LogFilter   `json:"query"`
}

type LogItemDTO struct {
	ID           uint64                `json:"id"`
	ReceivedAt   time.Time             `json:"receivedAt"`
	EntryType    protocol.LogEntryType `json:"entryType"`
	Level        protocol.Level        `json:"level"`
	ViewerID     int32                 `json:"viewerId"`
	AppName      string                `json:"appName"`
	SessionName  string                `json:"sessionName"`
	Title        string                `json:"title"`
	HostName     string                `json:"hostName"`
	ProcessID    int32                 `json:"processId"`
	ThreadID     int32                 `json:"threadId"`
	Timestamp    time.Time             `json:"timestamp"`
	Color        protocol.Color        `json:"color"`
	Data         string                `json:"data"`
	ConnectionID string                `json:"connectionId"`
	RemoteAddr   string                `json:"remoteAddr"`
}

// ToLogItemDTO serializes the payload with standard padded base64.
func ToLogItemDTO(entry *StoredEntry) LogItemDTO {
	return LogItemDTO{
		ID:           entry.ID,
		ReceivedAt:   entry.ReceivedAt,
		EntryType:    entry.Entry.EntryType,
		Level:        entry.Level(),
		ViewerID:     entry.Entry.ViewerID,
		AppName:      entry.Entry.AppName,
		SessionName:  entry.Entry.SessionName,
		Title:        entry.Entry.Title,
		HostName:     entry.Entry.HostName,
		ProcessID:    entry.Entry.ProcessID,
		ThreadID:     entry.Entry.ThreadID,
		Timestamp:    entry.Timestamp(),
		Color:        entry.Entry.Color,
		Data:         base64.StdEncoding.EncodeToString(entry.Entry.Data),
		ConnectionID: entry.ConnectionID.String(),
		RemoteAddr:   entry.RemoteAddr,
	}
}

func ToLogItemDTOs(entries []StoredEntry) []LogItemDTO {
	items := make([]LogItemDTO, 0, len(entries))
	for i := range entries {
		items = append(items, ToLogItemDTO(&entries[i]))
	}
	return items
}

// DecodeData reverses the base64 encoding of Data.
func (dto *LogItemDTO) DecodeData() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(dto.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entry data: %w", err)
	}
	return data, nil
}
