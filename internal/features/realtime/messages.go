package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/rooms"
	streams_core "logrelay/internal/features/streams/core"
)

// Message is one envelope on the real-time channel. It serializes as a
// flat object: {"type": ..., <payload fields>}.
type Message struct {
	Type    MessageType
	Payload any
}

func (m Message) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)

	if m.Payload != nil {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", m.Type, err)
		}
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not an object: %w", m.Type, err)
		}
	}

	messageType, err := json.Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = messageType

	return json.Marshal(fields)
}

type EntryPayload struct {
	Entry logs_core.LogItemDTO `json:"entry"`
}

type EntriesPayload struct {
	Entries []logs_core.LogItemDTO `json:"entries"`
}

type WatchPayload struct {
	Watch rooms.Watch `json:"watch"`
}

type WatchesPayload struct {
	Watches map[string]rooms.Watch `json:"watches"`
}

type StreamPayload struct {
	Item streams_core.StreamItemDTO `json:"item"`
}

type ControlCommandDTO struct {
	CommandType protocol.ControlCommandType `json:"commandType"`
	Name        string                      `json:"name"`
	Data        string                      `json:"data"`
}

type ControlPayload struct {
	Command ControlCommandDTO `json:"command"`
}

type InitPayload struct {
	Room    string                                  `json:"room"`
	Entries []logs_core.LogItemDTO                  `json:"entries"`
	Watches map[string]rooms.Watch                  `json:"watches"`
	Streams map[string][]streams_core.StreamItemDTO `json:"streams"`
	Rooms   []string                                `json:"rooms"`
}

// LastEntryID is zero when the snapshot holds no entries.
func (p InitPayload) LastEntryID() uint64 {
	var last uint64
	for _, entry := range p.Entries {
		last = max(last, entry.ID)
	}
	return last
}

// ClientInfo describes one ingestion connection.
type ClientInfo struct {
	ConnectionID string `json:"connectionId"`
	RemoteAddr   string `json:"remoteAddr"`
	AppName      string `json:"appName"`
	HostName     string `json:"hostName,omitempty"`
	Room         string `json:"room"`
}

type ClientPayload struct {
	Client ClientInfo `json:"client"`
}

type RoomCreatedPayload struct {
	Room string `json:"room"`
}

type ConnectedPayload struct {
	SubscriberID string `json:"subscriberId"`
	Room         string `json:"room"`
}

type TimestampPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// ClientMessage is anything a subscriber sends: auth or ping.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	Token     string      `json:"token,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

func NewEntryMessage(entry *logs_core.StoredEntry) Message {
	return Message{MessageTypeEntry, EntryPayload{logs_core.ToLogItemDTO(entry)}}
}

func NewWatchMessage(watch rooms.Watch) Message {
	return Message{MessageTypeWatch, WatchPayload{watch}}
}

func NewStreamMessage(item *streams_core.StreamItem) Message {
	return Message{MessageTypeStream, StreamPayload{streams_core.ToStreamItemDTO(item)}}
}

func NewControlMessage(command protocol.ControlCommand) Message {
	return Message{MessageTypeControl, ControlPayload{ControlCommandDTO{
		CommandType: command.CommandType,
		Name:        command.CommandType.String(),
		Data:        base64.StdEncoding.EncodeToString(command.Data),
	}}}
}

func NewClientConnectMessage(client ClientInfo) Message {
	return Message{MessageTypeClientConnect, ClientPayload{client}}
}

func NewClientDisconnectMessage(client ClientInfo) Message {
	return Message{MessageTypeClientDisconnect, ClientPayload{client}}
}

func NewSessionMessage(client ClientInfo) Message {
	return Message{MessageTypeSession, ClientPayload{client}}
}

func NewRoomCreatedMessage(roomID string) Message {
	return Message{MessageTypeRoomCreated, RoomCreatedPayload{roomID}}
}

func NewConnectedMessage(subscriberID string, roomID string) Message {
	return Message{MessageTypeConnected, ConnectedPayload{subscriberID, roomID}}
}

func NewPongMessage(timestamp int64) Message {
	return Message{MessageTypePong, TimestampPayload{timestamp}}
}

// NewInitMessage snapshots a room for a freshly connected subscriber.
func NewInitMessage(room *rooms.Room, entriesLimit int, roomIDs []string) Message {
	streams := make(map[string][]streams_core.StreamItemDTO)
	for channel, items := range room.Streams().Latest(entriesLimit) {
		streams[channel] = streams_core.ToStreamItemDTOs(items)
	}

	return Message{MessageTypeInit, InitPayload{
		Room:    room.ID,
		Entries: logs_core.ToLogItemDTOs(room.Logs().Latest(entriesLimit)),
		Watches: room.Watches().Snapshot(),
		Streams: streams,
		Rooms:   roomIDs,
	}}
}
