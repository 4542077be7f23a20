package rooms

import (
	"sync"
	"time"

	logs_core "logrelay/internal/features/logs/core"
	streams_core "logrelay/internal/features/streams/core"

	"github.com/google/uuid"
)

// Room is one isolated tenant. Its stores carry their own locks; the
// membership sets are guarded by mu and only changed through the registry.
type Room struct {
	ID        string
	CreatedAt time.Time

	logs    *logs_core.LogCoreRepository
	streams *streams_core.StreamRepository
	watches *WatchTable

	mu          sync.RWMutex
	connections map[uuid.UUID]struct{}
	subscribers map[uuid.UUID]struct{}
}

func newRoom(
	id string,
	createdAt time.Time,
	logCapacity int,
	streamCapacity int,
	queryBuilder *logs_core.QueryBuilder,
) *Room {
	return &Room{
		ID:          id,
		CreatedAt:   createdAt,
		logs:        logs_core.NewLogCoreRepository(logCapacity, queryBuilder),
		streams:     streams_core.NewStreamRepository(streamCapacity),
		watches:     NewWatchTable(),
		connections: make(map[uuid.UUID]struct{}),
		subscribers: make(map[uuid.UUID]struct{}),
	}
}

func (r *Room) Logs() *logs_core.LogCoreRepository {
	return r.logs
}

func (r *Room) Streams() *streams_core.StreamRepository {
	return r.streams
}

func (r *Room) Watches() *WatchTable {
	return r.watches
}

func (r *Room) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

func (r *Room) HasConnection(connectionID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.connections[connectionID]
	return exists
}

func (r *Room) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers)
}

func (r *Room) Summary() RoomSummaryDTO {
	return RoomSummaryDTO{
		Room:        r.ID,
		CreatedAt:   r.CreatedAt,
		Entries:     r.logs.Len(),
		Watches:     r.watches.Len(),
		Streams:     r.streams.ChannelCount(),
		Connections: r.ConnectionCount(),
		Subscribers: r.SubscriberCount(),
	}
}
