package rooms

import (
	"maps"
	"sync"
	"time"

	"logrelay/internal/features/protocol"
)

type Watch struct {
	Name       string    `json:"name"`
	Value      string    `json:"value"`
	WatchType  int32     `json:"watchType"`
	Group      string    `json:"group"`
	Timestamp  time.Time `json:"timestamp"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func NewWatch(packet protocol.Watch, receivedAt time.Time) Watch {
	return Watch{
		Name:       packet.Name,
		Value:      packet.Value,
		WatchType:  packet.WatchType,
		Group:      packet.Group,
		Timestamp:  packet.Timestamp.Time(),
		ReceivedAt: receivedAt,
	}
}

// WatchTable holds the latest value per watch name.
type WatchTable struct {
	mu      sync.RWMutex
	watches map[string]Watch
}

func NewWatchTable() *WatchTable {
	return &WatchTable{watches: make(map[string]Watch)}
}

// Set replaces any previous value of the same name.
func (t *WatchTable) Set(watch Watch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.watches[watch.Name] = watch
}

func (t *WatchTable) Get(name string) (Watch, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	watch, exists := t.watches[name]
	return watch, exists
}

func (t *WatchTable) Snapshot() map[string]Watch {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return maps.Clone(t.watches)
}

func (t *WatchTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.watches)
}

func (t *WatchTable) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cleared := len(t.watches)
	t.watches = make(map[string]Watch)
	return cleared
}
