package ingestion

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/util/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientBanner = "SmartInspect Go Library v1.0\n"

func Test_Open_SendsBannerAndJoinsDefaultRoom(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)

	assert.Equal(t, []byte(protocol.ServerBanner), fixture.writer.Bytes())
	assert.Equal(t, ConnectionStateAwaitingBanner, fixture.connection.State())
	assert.Equal(t, 1, fixture.room(t, "default").ConnectionCount())

	connects := fixture.publisher.ofType(realtime.MessageTypeClientConnect)
	require.Len(t, connects, 1)
	assert.Equal(t, "default", connects[0].roomID)
}

func Test_HandleData_BannerAndFrameInOneRead_ProcessesFrame(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.writer.Reset()

	data := append([]byte(clientBanner), encodeFrame(t, logEntry("hello"))...)
	fixture.feed(t, data)

	assert.Equal(t, ConnectionStateStreaming, fixture.connection.State())
	assert.Equal(t, "SmartInspect Go Library v1.0", fixture.connection.Info().ClientBanner)
	assert.Equal(t, 1, fixture.room(t, "default").Logs().Len())
	assert.Equal(t, protocol.Ack, fixture.writer.Bytes())
}

func Test_HandleData_BannerSplitAcrossReads_WaitsForTerminator(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)

	fixture.feed(t, []byte("SmartIns"))
	assert.Equal(t, ConnectionStateAwaitingBanner, fixture.connection.State())

	fixture.feed(t, []byte("pect\r\n"))
	assert.Equal(t, ConnectionStateStreaming, fixture.connection.State())
	assert.Equal(t, "SmartInspect", fixture.connection.Info().ClientBanner)
}

func Test_HandleData_OversizedBanner_KeepsOnlyTheLimit(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)

	fixture.feed(t, []byte(strings.Repeat("x", 1500)))
	fixture.feed(t, []byte(strings.Repeat("y", 500)+"\n"))

	info := fixture.connection.Info()
	assert.Equal(t, ConnectionStateStreaming, info.State)
	assert.Equal(t, strings.Repeat("x", maxClientBannerSize), info.ClientBanner)
}

func Test_HandleData_FrameSplitByteByByte_ProducesOnePacket(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))
	fixture.writer.Reset()

	for _, b := range encodeFrame(t, logEntry("slow")) {
		fixture.feed(t, []byte{b})
	}

	entries := fixture.room(t, "default").Logs().Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "slow", entries[0].Entry.Title)
	assert.Equal(t, 1, countAcks(fixture.writer.Bytes()))
}

func Test_HandleData_WhenHeaderNamesNewRoom_RoutesLaterPacketsThere(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))

	fixture.feed(t, encodeFrame(t, header("appname=svc\r\nroom=alpha")))
	fixture.feed(t, encodeFrame(t, logEntry("first")))

	alpha := fixture.room(t, "alpha")
	assert.Equal(t, 1, alpha.ConnectionCount())
	assert.Equal(t, 0, fixture.room(t, "default").ConnectionCount())

	fixture.feed(t, encodeFrame(t, header("room=beta")))
	fixture.feed(t, encodeFrame(t, logEntry("second")))
	fixture.feed(t, encodeFrame(t, logEntry("third")))

	beta := fixture.room(t, "beta")
	assert.Equal(t, 0, alpha.ConnectionCount())
	assert.Equal(t, 1, beta.ConnectionCount())
	assert.Equal(t, 1, alpha.Logs().Len())

	betaEntries := beta.Logs().Snapshot()
	require.Len(t, betaEntries, 2)
	assert.Equal(t, "second", betaEntries[0].Entry.Title)
	assert.Equal(t, "third", betaEntries[1].Entry.Title)

	info := fixture.connection.Info()
	assert.Equal(t, "beta", info.Room)
	assert.Equal(t, "svc", info.AppName)
}

func Test_HandleData_WhenRoomChanges_AnnouncesLeaveAndJoin(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))

	fixture.feed(t, encodeFrame(t, header("appname=svc\nroom=alpha")))

	disconnects := fixture.publisher.ofType(realtime.MessageTypeClientDisconnect)
	require.Len(t, disconnects, 1)
	assert.Equal(t, "default", disconnects[0].roomID)

	connects := fixture.publisher.ofType(realtime.MessageTypeClientConnect)
	require.Len(t, connects, 2)
	assert.Equal(t, "alpha", connects[1].roomID)
	assert.Equal(t, "svc", connects[1].message.Payload.(realtime.ClientPayload).Client.AppName)

	sessions := fixture.publisher.ofType(realtime.MessageTypeSession)
	require.Len(t, sessions, 1)
	assert.Equal(t, "alpha", sessions[0].roomID)
}

func Test_HandleData_HeaderWithoutRoom_StaysAndPublishesSession(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))

	fixture.feed(t, encodeFrame(t, header("appname=svc\nhostname=web-1")))

	info := fixture.connection.Info()
	assert.Equal(t, "default", info.Room)
	assert.Equal(t, "web-1", info.HostName)
	assert.Empty(t, fixture.publisher.ofType(realtime.MessageTypeClientDisconnect))
	assert.Len(t, fixture.publisher.ofType(realtime.MessageTypeSession), 1)
}

func Test_HandleData_UndecodableFrame_DropsWithoutAckAndContinues(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))
	fixture.writer.Reset()

	fixture.feed(t, rawFrame(protocol.PacketKindLogEntry, []byte{1, 2, 3}))
	fixture.feed(t, rawFrame(protocol.PacketKind(99), []byte{1, 2, 3, 4}))

	assert.Empty(t, fixture.writer.Bytes())
	assert.Equal(t, uint64(2), fixture.connection.Info().DecodeFailures)

	fixture.feed(t, encodeFrame(t, logEntry("after")))

	assert.Equal(t, 1, countAcks(fixture.writer.Bytes()))
	assert.Equal(t, 1, fixture.room(t, "default").Logs().Len())
	assert.Equal(t, uint64(1), fixture.connection.Info().Packets)
}

func Test_HandleData_FrameLengthAboveMaximum_ReturnsFrameTooLarge(t *testing.T) {
	fixture := newConnectionFixture(t, 16)
	fixture.feed(t, []byte(clientBanner))

	err := fixture.connection.handleData(rawFrame(protocol.PacketKindLogEntry, bytes.Repeat([]byte{0}, 17)))

	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}

func Test_HandleData_FramesBeforeOversizedOne_AreStillProcessed(t *testing.T) {
	fixture := newConnectionFixture(t, 256)
	fixture.feed(t, []byte(clientBanner))

	data := encodeFrame(t, logEntry("kept"))
	data = append(data, rawFrame(protocol.PacketKindLogEntry, bytes.Repeat([]byte{0}, 300))...)

	err := fixture.connection.handleData(data)

	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	assert.Equal(t, 1, fixture.room(t, "default").Logs().Len())
}

func Test_HandleData_WatchAndStream_StoredAndPublished(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))

	fixture.feed(t, encodeFrame(t, protocol.Watch{Name: "cpu", Value: "42", WatchType: 1, Timestamp: testTimestamp}))
	fixture.feed(t, encodeFrame(t, protocol.Stream{
		Channel: "temperature", Data: []byte("21.5"), StreamType: "json", Timestamp: testTimestamp,
	}))

	room := fixture.room(t, "default")
	watch, exists := room.Watches().Get("cpu")
	require.True(t, exists)
	assert.Equal(t, "42", watch.Value)

	items := room.Streams().Snapshot("temperature")
	require.Len(t, items, 1)
	assert.Equal(t, "json", items[0].StreamType)

	assert.Len(t, fixture.publisher.ofType(realtime.MessageTypeWatch), 1)
	assert.Len(t, fixture.publisher.ofType(realtime.MessageTypeStream), 1)
}

func Test_HandleData_ClearAllCommand_ClearsRoomAndRelays(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))
	fixture.feed(t, encodeFrame(t, logEntry("one")))
	fixture.feed(t, encodeFrame(t, protocol.Watch{Name: "cpu", Value: "42", Timestamp: testTimestamp}))
	fixture.feed(t, encodeFrame(t, protocol.Stream{
		Channel: "temperature", Data: []byte("21.5"), StreamType: "json", Timestamp: testTimestamp,
	}))

	fixture.feed(t, encodeFrame(t, protocol.ControlCommand{CommandType: protocol.ControlCommandClearAll}))

	room := fixture.room(t, "default")
	assert.Equal(t, 0, room.Logs().Len())
	assert.Equal(t, 0, room.Watches().Len())
	assert.Equal(t, 0, room.Streams().ChannelCount())

	controls := fixture.publisher.ofType(realtime.MessageTypeControl)
	require.Len(t, controls, 1)
	assert.Equal(t, "default", controls[0].roomID)
}

func Test_HandleData_ClearLogCommand_KeepsWatches(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))
	fixture.feed(t, encodeFrame(t, logEntry("one")))
	fixture.feed(t, encodeFrame(t, protocol.Watch{Name: "cpu", Value: "42", Timestamp: testTimestamp}))

	fixture.feed(t, encodeFrame(t, protocol.ControlCommand{CommandType: protocol.ControlCommandClearLog}))

	room := fixture.room(t, "default")
	assert.Equal(t, 0, room.Logs().Len())
	assert.Equal(t, 1, room.Watches().Len())
}

func Test_Close_LeavesRoomAndAnnouncesOnce(t *testing.T) {
	fixture := newConnectionFixture(t, 1024)
	fixture.feed(t, []byte(clientBanner))
	fixture.feed(t, encodeFrame(t, header("room=alpha")))

	fixture.connection.close()
	fixture.connection.close()

	assert.Equal(t, ConnectionStateClosed, fixture.connection.State())
	assert.Equal(t, 0, fixture.room(t, "alpha").ConnectionCount())

	disconnects := fixture.publisher.ofType(realtime.MessageTypeClientDisconnect)
	require.Len(t, disconnects, 2)
	assert.Equal(t, "alpha", disconnects[1].roomID)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func Test_Close_AfterBannerWriteFailed_DoesNotAnnounceDisconnect(t *testing.T) {
	registry := newTestRegistry()
	publisher := &recordingPublisher{}
	connection := newConnection("127.0.0.1:50000", failingWriter{}, 1024, time.Second,
		registry, NewPacketService(registry, publisher, logger.GetLogger()), publisher, logger.GetLogger())

	require.Error(t, connection.open())
	connection.close()

	assert.Equal(t, ConnectionStateClosed, connection.State())
	assert.Empty(t, publisher.ofType(realtime.MessageTypeClientConnect))
	assert.Empty(t, publisher.ofType(realtime.MessageTypeClientDisconnect))
	if room, exists := registry.Get("default"); exists {
		assert.Equal(t, 0, room.ConnectionCount())
	}
}
