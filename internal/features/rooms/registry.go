package rooms

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	logs_core "logrelay/internal/features/logs/core"

	"github.com/google/uuid"
)

// RoomCreationListener is notified after a room is lazily created.
type RoomCreationListener interface {
	OnRoomCreated(room *Room)
}

// RoomRegistry maps room IDs to rooms. Rooms are created on first
// reference and are never removed: there is no expiry, the set of rooms
// only grows for the life of the process.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	defaultRoom    string
	logCapacity    int
	streamCapacity int
	queryBuilder   *logs_core.QueryBuilder
	logger         *slog.Logger

	listenersMu sync.RWMutex
	listeners   []RoomCreationListener
}

func NewRoomRegistry(
	defaultRoom string,
	logCapacity int,
	streamCapacity int,
	queryBuilder *logs_core.QueryBuilder,
	logger *slog.Logger,
) *RoomRegistry {
	return &RoomRegistry{
		rooms:          make(map[string]*Room),
		defaultRoom:    defaultRoom,
		logCapacity:    logCapacity,
		streamCapacity: streamCapacity,
		queryBuilder:   queryBuilder,
		logger:         logger,
	}
}

func (r *RoomRegistry) AddRoomCreationListener(listener RoomCreationListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	r.listeners = append(r.listeners, listener)
}

func (r *RoomRegistry) DefaultRoom() string {
	return r.defaultRoom
}

// ResolveID trims the ID and substitutes the default room for an empty one.
func (r *RoomRegistry) ResolveID(roomID string) string {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return r.defaultRoom
	}
	return roomID
}

// GetOrCreate is idempotent; the second result reports whether this call
// created the room.
func (r *RoomRegistry) GetOrCreate(roomID string) (*Room, bool) {
	roomID = r.ResolveID(roomID)

	r.mu.RLock()
	room, exists := r.rooms[roomID]
	r.mu.RUnlock()
	if exists {
		return room, false
	}

	r.mu.Lock()
	room, created := r.getOrCreateLocked(roomID)
	r.mu.Unlock()

	if created {
		r.notifyCreated(room)
	}

	return room, created
}

func (r *RoomRegistry) Get(roomID string) (*Room, bool) {
	roomID = r.ResolveID(roomID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	return room, exists
}

// List returns every room sorted by ID.
func (r *RoomRegistry) List() []*Room {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	slices.SortFunc(rooms, func(a, b *Room) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return rooms
}

func (r *RoomRegistry) AddConnection(roomID string, connectionID uuid.UUID) *Room {
	roomID = r.ResolveID(roomID)

	r.mu.Lock()
	room, created := r.getOrCreateLocked(roomID)
	room.mu.Lock()
	room.connections[connectionID] = struct{}{}
	room.mu.Unlock()
	r.mu.Unlock()

	if created {
		r.notifyCreated(room)
	}

	return room
}

// RemoveConnection is a no-op when the room or membership does not exist.
func (r *RoomRegistry) RemoveConnection(roomID string, connectionID uuid.UUID) {
	roomID = r.ResolveID(roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return
	}

	room.mu.Lock()
	delete(room.connections, connectionID)
	room.mu.Unlock()
}

// MoveConnection moves membership from one room to another under the
// registry lock, so no reader sees the connection in both rooms or neither.
func (r *RoomRegistry) MoveConnection(connectionID uuid.UUID, fromRoomID string, toRoomID string) *Room {
	fromRoomID = r.ResolveID(fromRoomID)
	toRoomID = r.ResolveID(toRoomID)

	r.mu.Lock()
	if from, exists := r.rooms[fromRoomID]; exists {
		from.mu.Lock()
		delete(from.connections, connectionID)
		from.mu.Unlock()
	}

	to, created := r.getOrCreateLocked(toRoomID)
	to.mu.Lock()
	to.connections[connectionID] = struct{}{}
	to.mu.Unlock()
	r.mu.Unlock()

	if created {
		r.notifyCreated(to)
	}

	return to
}

func (r *RoomRegistry) AddSubscriber(roomID string, subscriberID uuid.UUID) *Room {
	roomID = r.ResolveID(roomID)

	r.mu.Lock()
	room, created := r.getOrCreateLocked(roomID)
	room.mu.Lock()
	room.subscribers[subscriberID] = struct{}{}
	room.mu.Unlock()
	r.mu.Unlock()

	if created {
		r.notifyCreated(room)
	}

	return room
}

func (r *RoomRegistry) RemoveSubscriber(roomID string, subscriberID uuid.UUID) {
	roomID = r.ResolveID(roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return
	}

	room.mu.Lock()
	delete(room.subscribers, subscriberID)
	room.mu.Unlock()
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// Totals sums connections and subscribers across all rooms.
func (r *RoomRegistry) Totals() (connections int, subscribers int) {
	for _, room := range r.List() {
		connections += room.ConnectionCount()
		subscribers += room.SubscriberCount()
	}
	return connections, subscribers
}

func (r *RoomRegistry) getOrCreateLocked(roomID string) (*Room, bool) {
	if room, exists := r.rooms[roomID]; exists {
		return room, false
	}

	room := newRoom(roomID, time.Now().UTC(), r.logCapacity, r.streamCapacity, r.queryBuilder)
	r.rooms[roomID] = room

	r.logger.Info("room created", slog.String("room", roomID))

	return room, true
}

func (r *RoomRegistry) notifyCreated(room *Room) {
	r.listenersMu.RLock()
	listeners := slices.Clone(r.listeners)
	r.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener.OnRoomCreated(room)
	}
}
