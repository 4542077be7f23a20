package realtime

type MessageType string

const (
	MessageTypeAuthRequired     MessageType = "auth_required"
	MessageTypeAuthSuccess      MessageType = "auth_success"
	MessageTypeConnected        MessageType = "connected"
	MessageTypeEntries          MessageType = "entries"
	MessageTypeEntry            MessageType = "entry"
	MessageTypeWatch            MessageType = "watch"
	MessageTypeWatches          MessageType = "watches"
	MessageTypeControl          MessageType = "control"
	MessageTypeStream           MessageType = "stream"
	MessageTypeInit             MessageType = "init"
	MessageTypeClientConnect    MessageType = "clientConnect"
	MessageTypeClientDisconnect MessageType = "clientDisconnect"
	MessageTypeSession          MessageType = "session"
	MessageTypeRoomCreated      MessageType = "roomCreated"
	MessageTypePing             MessageType = "ping"
	MessageTypePong             MessageType = "pong"

	// sent by subscribers only
	MessageTypeAuth MessageType = "auth"
)

// StatusAuthFailed is the websocket close code for a rejected token.
// Clients must not reconnect automatically after it.
const StatusAuthFailed = 4001
