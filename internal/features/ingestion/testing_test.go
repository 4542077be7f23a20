package ingestion

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"

	"github.com/stretchr/testify/require"
)

var testTimestamp = protocol.OleDateFromTime(time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC))

type publishedMessage struct {
	roomID  string
	message realtime.Message
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (p *recordingPublisher) PublishToRoom(roomID string, message realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedMessage{roomID: roomID, message: message})
}

func (p *recordingPublisher) ofType(messageType realtime.MessageType) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matching []publishedMessage
	for _, published := range p.published {
		if published.message.Type == messageType {
			matching = append(matching, published)
		}
	}
	return matching
}

type bufferWriter struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (w *bufferWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.Write(data)
}

func (w *bufferWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Clone(w.buffer.Bytes())
}

func (w *bufferWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer.Reset()
}

func newTestRegistry() *rooms.RoomRegistry {
	return rooms.NewRoomRegistry("default", 100, 100, logs_core.NewQueryBuilder(logger.GetLogger()), logger.GetLogger())
}

type connectionFixture struct {
	connection *Connection
	registry   *rooms.RoomRegistry
	publisher  *recordingPublisher
	writer     *bufferWriter
}

func newConnectionFixture(t *testing.T, maxFrameSize int) *connectionFixture {
	t.Helper()

	registry := newTestRegistry()
	publisher := &recordingPublisher{}
	writer := &bufferWriter{}
	packetService := NewPacketService(registry, publisher, logger.GetLogger())

	connection := newConnection("127.0.0.1:50000", writer, maxFrameSize, time.Second,
		registry, packetService, publisher, logger.GetLogger())
	require.NoError(t, connection.open())

	return &connectionFixture{
		connection: connection,
		registry:   registry,
		publisher:  publisher,
		writer:     writer,
	}
}

// feed passes one read to the connection and expects it to stay open.
func (f *connectionFixture) feed(t *testing.T, data []byte) {
	t.Helper()
	require.NoError(t, f.connection.handleData(data))
}

func (f *connectionFixture) room(t *testing.T, roomID string) *rooms.Room {
	t.Helper()
	room, exists := f.registry.Get(roomID)
	require.True(t, exists, "room %q does not exist", roomID)
	return room
}

func encodeFrame(t *testing.T, packet protocol.Packet) []byte {
	t.Helper()
	frame, err := protocol.EncodeFrame(packet)
	require.NoError(t, err)
	return frame
}

func rawFrame(kind protocol.PacketKind, payload []byte) []byte {
	frame := binary.LittleEndian.AppendUint16(nil, uint16(kind))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	return append(frame, payload...)
}

func logEntry(title string) protocol.LogEntry {
	return protocol.LogEntry{
		EntryType:   protocol.LogEntryTypeMessage,
		AppName:     "svc",
		SessionName: "Main",
		Title:       title,
		HostName:    "web-1",
		Timestamp:   testTimestamp,
	}
}

func header(content string) protocol.LogHeader {
	return protocol.LogHeader{Content: content}
}

func countAcks(data []byte) int {
	return bytes.Count(data, protocol.Ack)
}
