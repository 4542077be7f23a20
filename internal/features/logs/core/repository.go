package logs_core

import (
	"sync"
	"time"
)

// LogCoreRepository is one room's bounded log store. Pushing beyond
// capacity evicts the oldest entry. IDs keep increasing across evictions
// and clears.
type LogCoreRepository struct {
	mu sync.RWMutex

	entries  []StoredEntry
	head     int
	capacity int
	nextID   uint64

	queryBuilder *QueryBuilder
}

func NewLogCoreRepository(capacity int, queryBuilder *QueryBuilder) *LogCoreRepository {
	if capacity < 1 {
		capacity = 1
	}

	return &LogCoreRepository{
		capacity:     capacity,
		nextID:       1,
		queryBuilder: queryBuilder,
	}
}

// Push assigns the next ID and stores the entry under one lock, so ID order
// always equals insertion order.
func (repository *LogCoreRepository) Push(entry StoredEntry) StoredEntry {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry.ID = repository.nextID
	repository.nextID++

	if len(repository.entries) < repository.capacity {
		repository.entries = append(repository.entries, entry)
		return entry
	}

	repository.entries[repository.head] = entry
	repository.head = (repository.head + 1) % repository.capacity

	return entry
}

// Snapshot copies the stored entries, oldest first.
func (repository *LogCoreRepository) Snapshot() []StoredEntry {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return repository.snapshotLocked()
}

// Latest returns at most limit of the newest entries, oldest first.
func (repository *LogCoreRepository) Latest(limit int) []StoredEntry {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	snapshot := repository.snapshotLocked()
	if limit >= 0 && len(snapshot) > limit {
		snapshot = snapshot[len(snapshot)-limit:]
	}

	return snapshot
}

func (repository *LogCoreRepository) Len() int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return len(repository.entries)
}

func (repository *LogCoreRepository) Capacity() int {
	return repository.capacity
}

// Clear drops every entry and returns how many were removed.
func (repository *LogCoreRepository) Clear() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	cleared := len(repository.entries)
	repository.entries = nil
	repository.head = 0

	return cleared
}

// DeleteOlderThan drops entries received before cutoff. Entries are stored
// in arrival order, so only a prefix is removed.
func (repository *LogCoreRepository) DeleteOlderThan(cutoff time.Time) int {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	snapshot := repository.snapshotLocked()
	expired := 0
	for expired < len(snapshot) && snapshot[expired].ReceivedAt.Before(cutoff) {
		expired++
	}
	if expired == 0 {
		return 0
	}

	repository.entries = append(make([]StoredEntry, 0, len(snapshot)-expired), snapshot[expired:]...)
	repository.head = 0

	return expired
}

// ExecuteQuery runs the filter against a snapshot, so writers are blocked
// only for the copy.
func (repository *LogCoreRepository) ExecuteQuery(filter LogFilter) *LogQueryResult {
	return repository.queryBuilder.Execute(repository.Snapshot(), filter)
}

func (repository *LogCoreRepository) snapshotLocked() []StoredEntry {
	snapshot := make([]StoredEntry, 0, len(repository.entries))
	snapshot = append(snapshot, repository.entries[repository.head:]...)
	snapshot = append(snapshot, repository.entries[:repository.head]...)
	return snapshot
}
