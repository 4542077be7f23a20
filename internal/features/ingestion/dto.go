package ingestion

import (
	"time"

	"logrelay/internal/features/realtime"

	"github.com/google/uuid"
)

// PacketContext annotates a decoded packet with its source connection.
type PacketContext struct {
	ConnectionID uuid.UUID
	RemoteAddr   string
	AppName      string
	HostName     string
	RoomID       string
	ReceivedAt   time.Time
}

func (c PacketContext) ClientInfo() realtime.ClientInfo {
	return realtime.ClientInfo{
		ConnectionID: c.ConnectionID.String(),
		RemoteAddr:   c.RemoteAddr,
		AppName:      c.AppName,
		HostName:     c.HostName,
		Room:         c.RoomID,
	}
}

type ConnectionInfoDTO struct {
	ConnectionID   string          `json:"connectionId"`
	RemoteAddr     string          `json:"remoteAddr"`
	AppName        string          `json:"appName"`
	HostName       string          `json:"hostName"`
	Room           string          `json:"room"`
	State          ConnectionState `json:"state"`
	ClientBanner   string          `json:"clientBanner"`
	ConnectedAt    time.Time       `json:"connectedAt"`
	Packets        uint64          `json:"packets"`
	Bytes          uint64          `json:"bytes"`
	DecodeFailures uint64          `json:"decodeFailures"`
}

type ServerStatsDTO struct {
	IsListening       bool   `json:"isListening"`
	ActiveConnections int    `json:"activeConnections"`
	TotalConnections  uint64 `json:"totalConnections"`
	Packets           uint64 `json:"packets"`
	Bytes             uint64 `json:"bytes"`
	DecodeFailures    uint64 `json:"decodeFailures"`
}
