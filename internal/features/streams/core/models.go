package streams_core

import (
	"time"

	"logrelay/internal/features/protocol"

	"github.com/google/uuid"
)

// StreamItem is one stored sample of a stream channel. It has no sequence
// ID; queries order by Timestamp.
type StreamItem struct {
	Channel      string
	Data         []byte
	StreamType   string
	Group        string
	Timestamp    time.Time
	ReceivedAt   time.Time
	ConnectionID uuid.UUID
}

func NewStreamItem(packet protocol.Stream, receivedAt time.Time, connectionID uuid.UUID) StreamItem {
	return StreamItem{
		Channel:      packet.Channel,
		Data:         packet.Data,
		StreamType:   packet.StreamType,
		Group:        packet.Group,
		Timestamp:    packet.Timestamp.Time(),
		ReceivedAt:   receivedAt,
		ConnectionID: connectionID,
	}
}
