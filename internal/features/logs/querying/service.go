package logs_querying

import (
	"log/slog"
	"net/url"

	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"

	"github.com/google/uuid"
)

// EventPublisher tells a room's subscribers that its log was cleared.
type EventPublisher interface {
	PublishToRoom(roomID string, message realtime.Message)
}

type LogQueryService struct {
	roomRegistry           *rooms.RoomRegistry
	logCoreService         *logs_core.LogCoreService
	concurrentQueryLimiter ConcurrentQueryLimiter
	queryValidator         *QueryValidator
	publisher              EventPublisher
	logger                 *slog.Logger
}

func (s *LogQueryService) ExecuteQuery(
	roomID string,
	clientKey string,
	values url.Values,
) (*logs_core.LogQueryResponseDTO, error) {
	filter, err := s.queryValidator.ParseFilter(values)
	if err != nil {
		return nil, err
	}

	queryID := uuid.New().String()
	if err := s.concurrentQueryLimiter.AcquireQuerySlot(clientKey, queryID); err != nil {
		return nil, err
	}
	defer s.concurrentQueryLimiter.ReleaseQuerySlot(clientKey, queryID)

	room, exists := s.roomRegistry.Get(roomID)
	if !exists {
		return &logs_core.LogQueryResponseDTO{
			Entries: []logs_core.LogItemDTO{},
			Query:   filter,
		}, nil
	}

	return s.logCoreService.QueryLogs(room.Logs(), *filter), nil
}

// ClearLogs empties a room's log store. Subscribers receive the same
// control message a client-issued ClearLog produces.
func (s *LogQueryService) ClearLogs(roomID string) *ClearLogsResponseDTO {
	roomID = s.roomRegistry.ResolveID(roomID)

	room, exists := s.roomRegistry.Get(roomID)
	if !exists {
		return &ClearLogsResponseDTO{Room: roomID}
	}

	cleared := room.Logs().Clear()
	s.publisher.PublishToRoom(room.ID, realtime.NewControlMessage(protocol.ControlCommand{
		CommandType: protocol.ControlCommandClearLog,
	}))

	s.logger.Info("log cleared via api",
		slog.String("room", room.ID),
		slog.Int("entries", cleared))

	return &ClearLogsResponseDTO{Room: room.ID, Cleared: cleared}
}

func (s *LogQueryService) GetActiveQueryCount(clientKey string) (int, error) {
	return s.concurrentQueryLimiter.GetActiveQueryCount(clientKey)
}

func (s *LogQueryService) CleanupPendingQueries() error {
	return s.concurrentQueryLimiter.CleanupAllQuerySlots()
}
