package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

type PacketKind int16

const (
	PacketKindControlCommand PacketKind = 1
	PacketKindLogEntry       PacketKind = 4
	PacketKindWatch          PacketKind = 5
	PacketKindProcessFlow    PacketKind = 6
	PacketKindLogHeader      PacketKind = 7
	PacketKindStream         PacketKind = 8
)

func (k PacketKind) IsKnown() bool {
	switch k {
	case PacketKindControlCommand, PacketKindLogEntry, PacketKindWatch,
		PacketKindProcessFlow, PacketKindLogHeader, PacketKindStream:
		return true
	default:
		return false
	}
}

func (k PacketKind) String() string {
	switch k {
	case PacketKindControlCommand:
		return "ControlCommand"
	case PacketKindLogEntry:
		return "LogEntry"
	case PacketKindWatch:
		return "Watch"
	case PacketKindProcessFlow:
		return "ProcessFlow"
	case PacketKindLogHeader:
		return "LogHeader"
	case PacketKindStream:
		return "Stream"
	default:
		return fmt.Sprintf("PacketKind(%d)", int16(k))
	}
}

type LogEntryType int32

const (
	LogEntryTypeSeparator         LogEntryType = 0
	LogEntryTypeEnterMethod       LogEntryType = 1
	LogEntryTypeLeaveMethod       LogEntryType = 2
	LogEntryTypeResetCallstack    LogEntryType = 3
	LogEntryTypeMessage           LogEntryType = 100
	LogEntryTypeWarning           LogEntryType = 101
	LogEntryTypeError             LogEntryType = 102
	LogEntryTypeInternalError     LogEntryType = 103
	LogEntryTypeComment           LogEntryType = 104
	LogEntryTypeVariableValue     LogEntryType = 105
	LogEntryTypeCheckpoint        LogEntryType = 106
	LogEntryTypeDebug             LogEntryType = 107
	LogEntryTypeVerbose           LogEntryType = 108
	LogEntryTypeFatal             LogEntryType = 109
	LogEntryTypeConditional       LogEntryType = 110
	LogEntryTypeAssert            LogEntryType = 111
	LogEntryTypeText              LogEntryType = 200
	LogEntryTypeBinary            LogEntryType = 201
	LogEntryTypeGraphic           LogEntryType = 202
	LogEntryTypeSource            LogEntryType = 203
	LogEntryTypeObject            LogEntryType = 204
	LogEntryTypeWebContent        LogEntryType = 205
	LogEntryTypeSystem            LogEntryType = 206
	LogEntryTypeMemoryStatistic   LogEntryType = 207
	LogEntryTypeDatabaseResult    LogEntryType = 208
	LogEntryTypeDatabaseStructure LogEntryType = 209
)

// Level is the severity derived from a LogEntryType. It is never sent on
// the wire. LevelControl sorts last but is not part of the severity order.
type Level int

const (
	LevelDebug Level = iota
	LevelVerbose
	LevelMessage
	LevelWarning
	LevelError
	LevelFatal
	LevelControl
)

var levelNames = [...]string{"debug", "verbose", "message", "warning", "error", "fatal", "control"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelControl {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

func (l Level) IsValid() bool {
	return l >= LevelDebug && l <= LevelControl
}

// IsOrderable is false for LevelControl, which has no severity.
func (l Level) IsOrderable() bool {
	return l >= LevelDebug && l <= LevelFatal
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel accepts a level name (case-insensitive) or its numeric value.
func ParseLevel(value string) (Level, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	for i, name := range levelNames {
		if name == value {
			return Level(i), nil
		}
	}

	if number, err := strconv.Atoi(value); err == nil && Level(number).IsValid() {
		return Level(number), nil
	}

	return 0, fmt.Errorf("unknown level %q", value)
}

// LevelForEntryType is the fixed entry type to level lookup.
func LevelForEntryType(entryType LogEntryType) Level {
	switch entryType {
	case LogEntryTypeSeparator, LogEntryTypeEnterMethod,
		LogEntryTypeLeaveMethod, LogEntryTypeResetCallstack:
		return LevelControl
	case LogEntryTypeDebug:
		return LevelDebug
	case LogEntryTypeVerbose:
		return LevelVerbose
	case LogEntryTypeWarning:
		return LevelWarning
	case LogEntryTypeError, LogEntryTypeInternalError, LogEntryTypeAssert:
		return LevelError
	case LogEntryTypeFatal:
		return LevelFatal
	default:
		return LevelMessage
	}
}

type ControlCommandType int32

const (
	ControlCommandClearLog         ControlCommandType = 0
	ControlCommandClearWatches     ControlCommandType = 1
	ControlCommandClearAutoViews   ControlCommandType = 2
	ControlCommandClearAll         ControlCommandType = 3
	ControlCommandClearProcessFlow ControlCommandType = 4
)

func (c ControlCommandType) String() string {
	switch c {
	case ControlCommandClearLog:
		return "ClearLog"
	case ControlCommandClearWatches:
		return "ClearWatches"
	case ControlCommandClearAutoViews:
		return "ClearAutoViews"
	case ControlCommandClearAll:
		return "ClearAll"
	case ControlCommandClearProcessFlow:
		return "ClearProcessFlow"
	default:
		return "ControlCommand(" + strconv.Itoa(int(c)) + ")"
	}
}

// WatchRevision identifies which of the two watch layouts a payload used.
type WatchRevision uint8

const (
	WatchRevisionUngrouped WatchRevision = 1
	WatchRevisionGrouped   WatchRevision = 2
)

// StreamRevision identifies which of the three stream layouts a payload used.
type StreamRevision uint8

const (
	StreamRevisionLegacy  StreamRevision = 1
	StreamRevisionTyped   StreamRevision = 2
	StreamRevisionGrouped StreamRevision = 3
)
