package protocol

import "strings"

// Decode turns one frame payload into a Packet. Any failure is a
// *DecodeError; the caller has already consumed the frame either way.
func Decode(kind PacketKind, payload []byte) (Packet, error) {
	switch kind {
	case PacketKindLogHeader:
		return decodeLogHeader(payload)
	case PacketKindLogEntry:
		return decodeLogEntry(payload)
	case PacketKindWatch:
		return decodeWatch(payload)
	case PacketKindProcessFlow:
		return decodeProcessFlow(payload)
	case PacketKindControlCommand:
		return decodeControlCommand(payload)
	case PacketKindStream:
		return decodeStream(payload)
	default:
		return nil, newDecodeError(kind, "unknown packet kind")
	}
}

func decodeLogHeader(payload []byte) (LogHeader, error) {
	reader := newPayloadReader(PacketKindLogHeader, payload)

	contentLen, err := reader.length("contentLen")
	if err != nil {
		return LogHeader{}, err
	}

	content, err := reader.string(contentLen, "content")
	if err != nil {
		return LogHeader{}, err
	}

	return LogHeader{Content: content}, nil
}

func decodeLogEntry(payload []byte) (LogEntry, error) {
	reader := newPayloadReader(PacketKindLogEntry, payload)
	if err := reader.require(logEntryPrefixSize, "prefix"); err != nil {
		return LogEntry{}, err
	}

	// prefix size was checked above, so only the length checks can fail here
	entryType, _ := reader.int32("entryType")
	viewerID, _ := reader.int32("viewerId")

	lengths := make([]int, 5)
	for i, field := range []string{"appNameLen", "sessionNameLen", "titleLen", "hostNameLen", "dataLen"} {
		value, err := reader.length(field)
		if err != nil {
			return LogEntry{}, err
		}
		lengths[i] = value
	}

	processID, _ := reader.int32("processId")
	threadID, _ := reader.int32("threadId")
	timestamp, _ := reader.float64("timestamp")
	color, _ := reader.uint32("color")

	entry := LogEntry{
		EntryType: LogEntryType(entryType),
		ViewerID:  viewerID,
		ProcessID: processID,
		ThreadID:  threadID,
		Timestamp: OleDate(timestamp),
		Color:     UnpackColor(color),
	}

	var err error
	if entry.AppName, err = reader.string(lengths[0], "appName"); err != nil {
		return LogEntry{}, err
	}
	if entry.SessionName, err = reader.string(lengths[1], "sessionName"); err != nil {
		return LogEntry{}, err
	}
	if entry.Title, err = reader.string(lengths[2], "title"); err != nil {
		return LogEntry{}, err
	}
	if entry.HostName, err = reader.string(lengths[3], "hostName"); err != nil {
		return LogEntry{}, err
	}
	if entry.Data, err = reader.bytes(lengths[4], "data"); err != nil {
		return LogEntry{}, err
	}

	return entry, nil
}

// decodeWatch picks the grouped layout whenever the bytes after the fixed
// prefix can be read as a plausible group length that fits the payload.
// There is no version tag, so an ungrouped payload can be misread as
// grouped; the longer layout wins.
func decodeWatch(payload []byte) (Watch, error) {
	reader := newPayloadReader(PacketKindWatch, payload)
	if err := reader.require(watchPrefixSize, "prefix"); err != nil {
		return Watch{}, err
	}

	nameLen, err := reader.length("nameLen")
	if err != nil {
		return Watch{}, err
	}
	valueLen, err := reader.length("valueLen")
	if err != nil {
		return Watch{}, err
	}
	watchType, _ := reader.int32("watchType")
	timestamp, _ := reader.float64("timestamp")

	watch := Watch{
		WatchType: watchType,
		Timestamp: OleDate(timestamp),
		Revision:  WatchRevisionUngrouped,
	}

	payloadLen := len(payload)
	groupLen := 0
	if payloadLen >= watchGroupedPrefix+nameLen+valueLen {
		candidate, _ := peekInt32(payload, watchPrefixSize)
		if isPlausibleSniffedLength(candidate) &&
			payloadLen >= watchGroupedPrefix+nameLen+valueLen+int(candidate) {
			reader.offset += 4
			groupLen = int(candidate)
			watch.Revision = WatchRevisionGrouped
		}
	}

	if watch.Name, err = reader.string(nameLen, "name"); err != nil {
		return Watch{}, err
	}
	if watch.Value, err = reader.string(valueLen, "value"); err != nil {
		return Watch{}, err
	}
	if watch.Revision == WatchRevisionGrouped {
		if watch.Group, err = reader.string(groupLen, "group"); err != nil {
			return Watch{}, err
		}
	}

	return watch, nil
}

func decodeProcessFlow(payload []byte) (ProcessFlow, error) {
	reader := newPayloadReader(PacketKindProcessFlow, payload)
	if err := reader.require(processFlowPrefixSize, "prefix"); err != nil {
		return ProcessFlow{}, err
	}

	flowType, _ := reader.int32("flowType")
	titleLen, err := reader.length("titleLen")
	if err != nil {
		return ProcessFlow{}, err
	}
	hostNameLen, err := reader.length("hostNameLen")
	if err != nil {
		return ProcessFlow{}, err
	}
	processID, _ := reader.int32("processId")
	threadID, _ := reader.int32("threadId")
	timestamp, _ := reader.float64("timestamp")

	flow := ProcessFlow{
		FlowType:  flowType,
		ProcessID: processID,
		ThreadID:  threadID,
		Timestamp: OleDate(timestamp),
	}

	if flow.Title, err = reader.string(titleLen, "title"); err != nil {
		return ProcessFlow{}, err
	}
	if flow.HostName, err = reader.string(hostNameLen, "hostName"); err != nil {
		return ProcessFlow{}, err
	}

	return flow, nil
}

func decodeControlCommand(payload []byte) (ControlCommand, error) {
	reader := newPayloadReader(PacketKindControlCommand, payload)
	if err := reader.require(controlPrefixSize, "prefix"); err != nil {
		return ControlCommand{}, err
	}

	commandType, _ := reader.int32("commandType")
	dataLen, err := reader.length("dataLen")
	if err != nil {
		return ControlCommand{}, err
	}

	data, err := reader.bytes(dataLen, "data")
	if err != nil {
		return ControlCommand{}, err
	}

	return ControlCommand{CommandType: ControlCommandType(commandType), Data: data}, nil
}

// decodeStream sniffs between three layouts, longest first. A type length
// candidate at offset 8 selects the typed layouts, after which a group
// length candidate at offset 20 selects the grouped one. Otherwise the
// legacy layout (timestamp at offset 8, no type, no group) is used.
func decodeStream(payload []byte) (Stream, error) {
	reader := newPayloadReader(PacketKindStream, payload)
	if err := reader.require(8, "prefix"); err != nil {
		return Stream{}, err
	}

	channelLen, err := reader.length("channelLen")
	if err != nil {
		return Stream{}, err
	}
	dataLen, err := reader.length("dataLen")
	if err != nil {
		return Stream{}, err
	}

	payloadLen := len(payload)
	stream := Stream{Revision: StreamRevisionLegacy}
	typeLen, groupLen := 0, 0

	typeCandidate, hasTypeCandidate := peekInt32(payload, 8)
	if payloadLen >= streamGroupedPrefix && hasTypeCandidate && isPlausibleSniffedLength(typeCandidate) {
		reader.offset += 4
		typeLen = int(typeCandidate)
		timestamp, _ := reader.float64("timestamp")
		stream.Timestamp = OleDate(timestamp)
		stream.Revision = StreamRevisionTyped

		groupCandidate, _ := peekInt32(payload, streamTypedPrefix)
		if isPlausibleSniffedLength(groupCandidate) &&
			payloadLen >= streamGroupedPrefix+channelLen+dataLen+typeLen+int(groupCandidate) {
			reader.offset += 4
			groupLen = int(groupCandidate)
			stream.Revision = StreamRevisionGrouped
		}
	} else {
		timestamp, err := reader.float64("timestamp")
		if err != nil {
			return Stream{}, err
		}
		stream.Timestamp = OleDate(timestamp)
	}

	if stream.Channel, err = reader.string(channelLen, "channel"); err != nil {
		return Stream{}, err
	}
	if stream.Data, err = reader.bytes(dataLen, "data"); err != nil {
		return Stream{}, err
	}
	if stream.Revision >= StreamRevisionTyped {
		if stream.StreamType, err = reader.string(typeLen, "type"); err != nil {
			return Stream{}, err
		}
	}
	if stream.Revision == StreamRevisionGrouped {
		if stream.Group, err = reader.string(groupLen, "group"); err != nil {
			return Stream{}, err
		}
	}

	return stream, nil
}

// ParseLogHeader splits "key=value" lines. Keys are lower-cased and
// trimmed, lines without '=' are ignored, later keys win.
func ParseLogHeader(content string) map[string]string {
	values := make(map[string]string)

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}

		values[key] = strings.TrimSpace(value)
	}

	return values
}
