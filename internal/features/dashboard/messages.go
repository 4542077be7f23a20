package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"

	"logrelay/internal/features/realtime"
)

// Message is one envelope received from the server. The payload is kept
// raw and decoded on demand into the matching realtime payload type.
type Message struct {
	Type realtime.MessageType
	Raw  json.RawMessage
}

func ParseMessage(data []byte) (Message, error) {
	var envelope struct {
		Type realtime.MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Message{}, fmt.Errorf("failed to parse message: %w", err)
	}
	if envelope.Type == "" {
		return Message{}, errors.New("message has no type")
	}

	return Message{Type: envelope.Type, Raw: json.RawMessage(data)}, nil
}

// Decode unmarshals the envelope into payload, e.g. *realtime.EntriesPayload.
func (m Message) Decode(payload any) error {
	if err := json.Unmarshal(m.Raw, payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}
