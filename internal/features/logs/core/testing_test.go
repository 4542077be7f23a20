package logs_core

import (
	"time"

	"logrelay/internal/features/protocol"
	"logrelay/internal/util/logger"
)

var testBaseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(capacity int) *LogCoreRepository {
	return NewLogCoreRepository(capacity, NewQueryBuilder(logger.GetLogger()))
}

type testEntryOption func(entry *protocol.LogEntry)

func withSession(session string) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.SessionName = session }
}

func withType(entryType protocol.LogEntryType) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.EntryType = entryType }
}

func withTitle(title string) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.Title = title }
}

func withApp(appName string) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.AppName = appName }
}

func withHost(hostName string) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.HostName = hostName }
}

func withTime(t time.Time) testEntryOption {
	return func(entry *protocol.LogEntry) { entry.Timestamp = protocol.OleDateFromTime(t) }
}

func pushTestEntry(repository *LogCoreRepository, options ...testEntryOption) StoredEntry {
	entry := protocol.LogEntry{
		EntryType:   protocol.LogEntryTypeMessage,
		SessionName: "Main",
		Title:       "message",
		Timestamp:   protocol.OleDateFromTime(testBaseTime),
	}
	for _, option := range options {
		option(&entry)
	}

	return repository.Push(StoredEntry{ReceivedAt: testBaseTime, Entry: entry})
}

func entryIDs(entries []StoredEntry) []uint64 {
	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
