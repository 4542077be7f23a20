package dashboard

import (
	"time"

	"logrelay/internal/features/realtime"
)

type ConnectionState string

const (
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateAuthRequired ConnectionState = "auth_required"
	ConnectionStateReconnecting ConnectionState = "reconnecting"
	ConnectionStateClosed       ConnectionState = "closed"
)

const (
	// FrameInterval is how long a scheduled drain waits for the next
	// refresh opportunity.
	FrameInterval = 16 * time.Millisecond
	// DrainBudget bounds the time one drain may spend applying messages.
	DrainBudget         = 16 * time.Millisecond
	MaxMessagesPerDrain = 100

	// The backlog flag is raised above BacklogHighWater queued messages and
	// cleared below BacklogLowWater.
	BacklogHighWater = 50
	BacklogLowWater  = 25

	ReconnectDelay      = 3 * time.Second
	DefaultPingInterval = 15 * time.Second
)

// bypassTypes are applied on receipt and never wait behind queued data.
var bypassTypes = map[realtime.MessageType]struct{}{
	realtime.MessageTypeAuthRequired:     {},
	realtime.MessageTypeAuthSuccess:      {},
	realtime.MessageTypeConnected:        {},
	realtime.MessageTypeControl:          {},
	realtime.MessageTypeInit:             {},
	realtime.MessageTypeClientConnect:    {},
	realtime.MessageTypeClientDisconnect: {},
	realtime.MessageTypeSession:          {},
	realtime.MessageTypeRoomCreated:      {},
	realtime.MessageTypePing:             {},
	realtime.MessageTypePong:             {},
}

func isBypass(messageType realtime.MessageType) bool {
	_, ok := bypassTypes[messageType]
	return ok
}
