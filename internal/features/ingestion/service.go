package ingestion

import (
	"log/slog"
	"time"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	streams_core "logrelay/internal/features/streams/core"

	"golang.org/x/time/rate"
)

// EventPublisher receives every realtime event produced by ingestion.
type EventPublisher interface {
	PublishToRoom(roomID string, message realtime.Message)
}

// PacketService applies decoded packets to the room their connection is
// bound to and announces the result to that room's subscribers.
type PacketService struct {
	roomRegistry *rooms.RoomRegistry
	publisher    EventPublisher
	logger       *slog.Logger

	timestampWarning rate.Sometimes
}

func NewPacketService(
	roomRegistry *rooms.RoomRegistry,
	publisher EventPublisher,
	logger *slog.Logger,
) *PacketService {
	return &PacketService{
		roomRegistry:     roomRegistry,
		publisher:        publisher,
		logger:           logger,
		timestampWarning: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// Handle routes one packet. LogHeader is handled by the connection itself
// because it can change the connection's room.
func (s *PacketService) Handle(packetContext PacketContext, packet protocol.Packet) {
	room, _ := s.roomRegistry.GetOrCreate(packetContext.RoomID)

	switch p := packet.(type) {
	case protocol.LogEntry:
		s.checkTimestamp(packetContext, p.Kind(), p.Timestamp)
		stored := room.Logs().Push(logs_core.StoredEntry{
			ReceivedAt:   packetContext.ReceivedAt,
			Entry:        p,
			ConnectionID: packetContext.ConnectionID,
			RemoteAddr:   packetContext.RemoteAddr,
		})
		s.publisher.PublishToRoom(room.ID, realtime.NewEntryMessage(&stored))

	case protocol.Watch:
		s.checkTimestamp(packetContext, p.Kind(), p.Timestamp)
		watch := rooms.NewWatch(p, packetContext.ReceivedAt)
		room.Watches().Set(watch)
		s.publisher.PublishToRoom(room.ID, realtime.NewWatchMessage(watch))

	case protocol.Stream:
		s.checkTimestamp(packetContext, p.Kind(), p.Timestamp)
		item := streams_core.NewStreamItem(p, packetContext.ReceivedAt, packetContext.ConnectionID)
		room.Streams().Append(item)
		s.publisher.PublishToRoom(room.ID, realtime.NewStreamMessage(&item))

	case protocol.ControlCommand:
		s.applyControlCommand(room, p)
		s.publisher.PublishToRoom(room.ID, realtime.NewControlMessage(p))

	case protocol.ProcessFlow:
		s.logger.Debug("process flow received",
			slog.String("room", room.ID),
			slog.String("title", p.Title),
			slog.Int("flowType", int(p.FlowType)))

	default:
		s.logger.Warn("unroutable packet",
			slog.String("room", room.ID),
			slog.String("kind", packet.Kind().String()))
	}
}

// checkTimestamp reports timestamps that are stored as the zero time.
func (s *PacketService) checkTimestamp(packetContext PacketContext, kind protocol.PacketKind, timestamp protocol.OleDate) {
	if timestamp.IsValid() {
		return
	}

	s.timestampWarning.Do(func() {
		s.logger.Warn("packet timestamp out of range, storing zero time",
			slog.String("connectionId", packetContext.ConnectionID.String()),
			slog.String("room", packetContext.RoomID),
			slog.String("kind", kind.String()),
			slog.Float64("timestamp", float64(timestamp)))
	})
}

func (s *PacketService) applyControlCommand(room *rooms.Room, command protocol.ControlCommand) {
	switch command.CommandType {
	case protocol.ControlCommandClearLog:
		cleared := room.Logs().Clear()
		s.logger.Info("log cleared by client",
			slog.String("room", room.ID),
			slog.Int("entries", cleared))

	case protocol.ControlCommandClearWatches:
		cleared := room.Watches().Clear()
		s.logger.Info("watches cleared by client",
			slog.String("room", room.ID),
			slog.Int("watches", cleared))

	case protocol.ControlCommandClearAll:
		entries := room.Logs().Clear()
		watches := room.Watches().Clear()
		streams := room.Streams().ClearAll()
		s.logger.Info("room cleared by client",
			slog.String("room", room.ID),
			slog.Int("entries", entries),
			slog.Int("watches", watches),
			slog.Int("streamItems", streams))

	default:
		s.logger.Debug("control command relayed without server-side effect",
			slog.String("room", room.ID),
			slog.String("command", command.CommandType.String()))
	}
}
