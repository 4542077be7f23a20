package realtime

import "logrelay/internal/features/rooms"

// batchMessages merges runs of consecutive entry messages into one entries
// message and runs of consecutive watch messages into one watches message
// holding the latest value per name. A run of one is left as is. Order
// across different message types is preserved.
func batchMessages(messages []Message) []Message {
	batched := make([]Message, 0, len(messages))

	for i := 0; i < len(messages); {
		end := i + 1
		for end < len(messages) && messages[end].Type == messages[i].Type {
			end++
		}
		run := messages[i:end]

		switch {
		case len(run) > 1 && messages[i].Type == MessageTypeEntry:
			batched = append(batched, mergeEntries(run))
		case len(run) > 1 && messages[i].Type == MessageTypeWatch:
			batched = append(batched, mergeWatches(run))
		default:
			batched = append(batched, run...)
		}

		i = end
	}

	return batched
}

func mergeEntries(run []Message) Message {
	payload := EntriesPayload{}
	for _, message := range run {
		if entry, ok := message.Payload.(EntryPayload); ok {
			payload.Entries = append(payload.Entries, entry.Entry)
		}
	}
	return Message{MessageTypeEntries, payload}
}

func mergeWatches(run []Message) Message {
	payload := WatchesPayload{Watches: make(map[string]rooms.Watch, len(run))}
	for _, message := range run {
		if watch, ok := message.Payload.(WatchPayload); ok {
			payload.Watches[watch.Watch.Name] = watch.Watch
		}
	}
	return Message{MessageTypeWatches, payload}
}

// skipDeliveredEntries drops entry messages whose id is at most lastEntryID.
func skipDeliveredEntries(messages []Message, lastEntryID uint64) []Message {
	if lastEntryID == 0 {
		return messages
	}

	kept := messages[:0]
	for _, message := range messages {
		if entry, ok := message.Payload.(EntryPayload); ok && entry.Entry.ID <= lastEntryID {
			continue
		}
		kept = append(kept, message)
	}
	return kept
}
