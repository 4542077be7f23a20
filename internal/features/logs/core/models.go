package logs_core

import (
	"time"

	"logrelay/internal/features/protocol"

	"github.com/google/uuid"
)

// StoredEntry is a decoded log entry as kept by a room. ID is assigned by
// the store and is the only sort key for log queries.
type StoredEntry struct {
	ID           uint64
	ReceivedAt   time.Time
	Entry        protocol.LogEntry
	ConnectionID uuid.UUID
	RemoteAddr   string
}

func (e *StoredEntry) Level() protocol.Level {
	return e.Entry.Level()
}

func (e *StoredEntry) Timestamp() time.Time {
	return e.Entry.Timestamp.Time()
}
