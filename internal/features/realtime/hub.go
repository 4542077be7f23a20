package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/internal/features/rooms"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Subscriber is one dashboard connection. Its outbound queue is bounded;
// a publish to a full queue is dropped.
type Subscriber struct {
	ID         uuid.UUID
	RoomID     string
	RemoteAddr string

	outbound  chan Message
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

func (s *Subscriber) Outbound() <-chan Message {
	return s.outbound
}

// Done is closed when the hub shuts the subscriber down.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub fans messages out to subscribers. Publishing never blocks.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber

	roomRegistry *rooms.RoomRegistry
	bufferSize   int
	logger       *slog.Logger

	droppedTotal atomic.Int64
	dropWarning  rate.Sometimes
}

func NewHub(roomRegistry *rooms.RoomRegistry, bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Hub{
		subscribers:  make(map[uuid.UUID]*Subscriber),
		roomRegistry: roomRegistry,
		bufferSize:   bufferSize,
		logger:       logger,
		dropWarning:  rate.Sometimes{Interval: 5 * time.Second},
	}
}

// Subscribe attaches a new subscriber to a room, creating the room if needed.
func (h *Hub) Subscribe(roomID string, remoteAddr string) (*Subscriber, *rooms.Room) {
	subscriber := &Subscriber{
		ID:         uuid.New(),
		RoomID:     h.roomRegistry.ResolveID(roomID),
		RemoteAddr: remoteAddr,
		outbound:   make(chan Message, h.bufferSize),
		done:       make(chan struct{}),
	}

	// may publish roomCreated, so h.mu must not be held here
	room := h.roomRegistry.AddSubscriber(subscriber.RoomID, subscriber.ID)

	h.mu.Lock()
	h.subscribers[subscriber.ID] = subscriber
	h.mu.Unlock()

	h.logger.Info("subscriber attached",
		slog.String("subscriberId", subscriber.ID.String()),
		slog.String("room", subscriber.RoomID),
		slog.String("remoteAddr", remoteAddr))

	return subscriber, room
}

func (h *Hub) Unsubscribe(subscriber *Subscriber) {
	h.mu.Lock()
	delete(h.subscribers, subscriber.ID)
	h.mu.Unlock()

	h.roomRegistry.RemoveSubscriber(subscriber.RoomID, subscriber.ID)
	subscriber.close()

	h.logger.Info("subscriber detached",
		slog.String("subscriberId", subscriber.ID.String()),
		slog.String("room", subscriber.RoomID),
		slog.Int64("dropped", subscriber.Dropped()))
}

func (h *Hub) PublishToRoom(roomID string, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subscriber := range h.subscribers {
		if subscriber.RoomID == roomID {
			h.send(subscriber, message)
		}
	}
}

func (h *Hub) PublishToAll(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subscriber := range h.subscribers {
		h.send(subscriber, message)
	}
}

func (h *Hub) OnRoomCreated(room *rooms.Room) {
	h.PublishToAll(NewRoomCreatedMessage(room.ID))
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

func (h *Hub) DroppedCount() int64 {
	return h.droppedTotal.Load()
}

// Shutdown signals every subscriber to stop; their handlers unsubscribe
// themselves on the way out.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subscriber := range h.subscribers {
		subscriber.close()
	}
}

func (h *Hub) send(subscriber *Subscriber, message Message) {
	select {
	case subscriber.outbound <- message:
	default:
		subscriber.dropped.Add(1)
		h.droppedTotal.Add(1)
		h.dropWarning.Do(func() {
			h.logger.Warn("subscriber queue full, dropping messages",
				slog.String("subscriberId", subscriber.ID.String()),
				slog.String("room", subscriber.RoomID),
				slog.String("type", string(message.Type)),
				slog.Int64("droppedTotal", h.droppedTotal.Load()))
		})
	}
}
