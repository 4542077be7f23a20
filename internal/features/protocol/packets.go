package protocol

import (
	"math"
	"time"
)

const (
	FrameHeaderSize = 6

	logEntryPrefixSize    = 48
	watchPrefixSize       = 20
	watchGroupedPrefix    = 24
	processFlowPrefixSize = 28
	controlPrefixSize     = 8
	logHeaderPrefixSize   = 4
	streamLegacyPrefix    = 16
	streamTypedPrefix     = 20
	streamGroupedPrefix   = 24

	// Candidate lengths read while sniffing a layout must fall in [0, 1000).
	sniffedLengthLimit = 1000
)

// Ack is written after every successfully decoded frame.
var Ack = []byte{0x0A, 0x00}

// ServerBanner is written as soon as an ingestion connection is accepted.
const ServerBanner = "logrelay 1.0\n"

// Packet is one decoded frame.
type Packet interface {
	Kind() PacketKind
}

// OleDate is an OLE Automation date: days since 1899-12-30 as a float64.
// The raw value is kept so packets re-encode bit for bit.
type OleDate float64

const (
	oleUnixEpochDays = 25569
	millisPerDay     = 86_400_000
)

// OLE dates representable as years 1 through 9999.
const (
	minOleDate = -693593.0 // 0001-01-01
	maxOleDate = 2958466.0 // 10000-01-01, exclusive
)

// IsValid is false for NaN, infinities and dates outside years 1-9999.
func (d OleDate) IsValid() bool {
	value := float64(d)
	return value >= minOleDate && value < maxOleDate
}

// UnixMillis is zero for invalid dates.
func (d OleDate) UnixMillis() int64 {
	if !d.IsValid() {
		return 0
	}
	return int64(math.Round((float64(d) - oleUnixEpochDays) * millisPerDay))
}

// Time is the zero time for invalid dates.
func (d OleDate) Time() time.Time {
	if !d.IsValid() {
		return time.Time{}
	}

	t := time.UnixMilli(d.UnixMillis()).UTC()
	if t.Year() > 9999 {
		return time.Time{}
	}
	return t
}

func OleDateFromTime(t time.Time) OleDate {
	return OleDate(float64(t.UnixMilli())/millisPerDay + oleUnixEpochDays)
}

// Color is unpacked from (a<<24)|(b<<16)|(g<<8)|r.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

func UnpackColor(packed uint32) Color {
	return Color{
		R: uint8(packed & 0xFF),
		G: uint8((packed >> 8) & 0xFF),
		B: uint8((packed >> 16) & 0xFF),
		A: uint8((packed >> 24) & 0xFF),
	}
}

func (c Color) Pack() uint32 {
	return uint32(c.A)<<24 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
}

type LogHeader struct {
	Content string
}

func (LogHeader) Kind() PacketKind { return PacketKindLogHeader }

type LogEntry struct {
	EntryType   LogEntryType
	ViewerID    int32
	AppName     string
	SessionName string
	Title       string
	HostName    string
	ProcessID   int32
	ThreadID    int32
	Timestamp   OleDate
	Color       Color
	Data        []byte
}

func (LogEntry) Kind() PacketKind { return PacketKindLogEntry }

// Level is derived from EntryType.
func (e LogEntry) Level() Level {
	return LevelForEntryType(e.EntryType)
}

type Watch struct {
	Name      string
	Value     string
	WatchType int32
	Timestamp OleDate
	Group     string
	Revision  WatchRevision
}

func (Watch) Kind() PacketKind { return PacketKindWatch }

type ProcessFlow struct {
	FlowType  int32
	Title     string
	HostName  string
	ProcessID int32
	ThreadID  int32
	Timestamp OleDate
}

func (ProcessFlow) Kind() PacketKind { return PacketKindProcessFlow }

type ControlCommand struct {
	CommandType ControlCommandType
	Data        []byte
}

func (ControlCommand) Kind() PacketKind { return PacketKindControlCommand }

type Stream struct {
	Channel    string
	Data       []byte
	StreamType string
	Timestamp  OleDate
	Group      string
	Revision   StreamRevision
}

func (Stream) Kind() PacketKind { return PacketKindStream }
