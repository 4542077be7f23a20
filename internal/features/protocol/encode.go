package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode writes the payload of one packet. Watch and Stream use the layout
// named by their Revision; a zero Revision picks the smallest layout that
// can carry the populated fields.
func Encode(packet Packet) ([]byte, error) {
	switch p := packet.(type) {
	case LogHeader:
		return encodeLogHeader(p)
	case LogEntry:
		return encodeLogEntry(p)
	case Watch:
		return encodeWatch(p)
	case ProcessFlow:
		return encodeProcessFlow(p)
	case ControlCommand:
		return encodeControlCommand(p)
	case Stream:
		return encodeStream(p)
	default:
		return nil, fmt.Errorf("cannot encode packet of type %T", packet)
	}
}

// EncodeFrame returns header and payload ready to be written to a socket.
func EncodeFrame(packet Packet) ([]byte, error) {
	payload, err := Encode(packet)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, FrameHeaderSize+len(payload))
	frame = binary.LittleEndian.AppendUint16(frame, uint16(packet.Kind()))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	return frame, nil
}

type payloadWriter struct {
	buffer []byte
	err    error
}

func (w *payloadWriter) int32(value int32) {
	w.buffer = binary.LittleEndian.AppendUint32(w.buffer, uint32(value))
}

func (w *payloadWriter) uint32(value uint32) {
	w.buffer = binary.LittleEndian.AppendUint32(w.buffer, value)
}

func (w *payloadWriter) float64(value float64) {
	w.buffer = binary.LittleEndian.AppendUint64(w.buffer, math.Float64bits(value))
}

func (w *payloadWriter) length(size int, field string) {
	if size > math.MaxInt32 {
		if w.err == nil {
			w.err = fmt.Errorf("%s of %d bytes does not fit a length prefix", field, size)
		}
		return
	}
	w.int32(int32(size))
}

func (w *payloadWriter) raw(value []byte) {
	w.buffer = append(w.buffer, value...)
}

func (w *payloadWriter) result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buffer, nil
}

func encodeLogHeader(header LogHeader) ([]byte, error) {
	writer := &payloadWriter{buffer: make([]byte, 0, logHeaderPrefixSize+len(header.Content))}
	writer.length(len(header.Content), "content")
	writer.raw([]byte(header.Content))
	return writer.result()
}

func encodeLogEntry(entry LogEntry) ([]byte, error) {
	size := logEntryPrefixSize + len(entry.AppName) + len(entry.SessionName) +
		len(entry.Title) + len(entry.HostName) + len(entry.Data)
	writer := &payloadWriter{buffer: make([]byte, 0, size)}

	writer.int32(int32(entry.EntryType))
	writer.int32(entry.ViewerID)
	writer.length(len(entry.AppName), "appName")
	writer.length(len(entry.SessionName), "sessionName")
	writer.length(len(entry.Title), "title")
	writer.length(len(entry.HostName), "hostName")
	writer.length(len(entry.Data), "data")
	writer.int32(entry.ProcessID)
	writer.int32(entry.ThreadID)
	writer.float64(float64(entry.Timestamp))
	writer.uint32(entry.Color.Pack())

	writer.raw([]byte(entry.AppName))
	writer.raw([]byte(entry.SessionName))
	writer.raw([]byte(entry.Title))
	writer.raw([]byte(entry.HostName))
	writer.raw(entry.Data)

	return writer.result()
}

func encodeWatch(watch Watch) ([]byte, error) {
	revision := watch.Revision
	if revision == 0 {
		revision = WatchRevisionUngrouped
		if watch.Group != "" {
			revision = WatchRevisionGrouped
		}
	}

	writer := &payloadWriter{
		buffer: make([]byte, 0, watchGroupedPrefix+len(watch.Name)+len(watch.Value)+len(watch.Group)),
	}
	writer.length(len(watch.Name), "name")
	writer.length(len(watch.Value), "value")
	writer.int32(watch.WatchType)
	writer.float64(float64(watch.Timestamp))
	if revision == WatchRevisionGrouped {
		writer.length(len(watch.Group), "group")
	}

	writer.raw([]byte(watch.Name))
	writer.raw([]byte(watch.Value))
	if revision == WatchRevisionGrouped {
		writer.raw([]byte(watch.Group))
	}

	return writer.result()
}

func encodeProcessFlow(flow ProcessFlow) ([]byte, error) {
	writer := &payloadWriter{
		buffer: make([]byte, 0, processFlowPrefixSize+len(flow.Title)+len(flow.HostName)),
	}
	writer.int32(flow.FlowType)
	writer.length(len(flow.Title), "title")
	writer.length(len(flow.HostName), "hostName")
	writer.int32(flow.ProcessID)
	writer.int32(flow.ThreadID)
	writer.float64(float64(flow.Timestamp))
	writer.raw([]byte(flow.Title))
	writer.raw([]byte(flow.HostName))
	return writer.result()
}

func encodeControlCommand(command ControlCommand) ([]byte, error) {
	writer := &payloadWriter{buffer: make([]byte, 0, controlPrefixSize+len(command.Data))}
	writer.int32(int32(command.CommandType))
	writer.length(len(command.Data), "data")
	writer.raw(command.Data)
	return writer.result()
}

func encodeStream(stream Stream) ([]byte, error) {
	revision := stream.Revision
	if revision == 0 {
		switch {
		case stream.Group != "":
			revision = StreamRevisionGrouped
		case stream.StreamType != "":
			revision = StreamRevisionTyped
		default:
			revision = StreamRevisionLegacy
		}
	}

	writer := &payloadWriter{
		buffer: make([]byte, 0, streamGroupedPrefix+len(stream.Channel)+len(stream.Data)+
			len(stream.StreamType)+len(stream.Group)),
	}
	writer.length(len(stream.Channel), "channel")
	writer.length(len(stream.Data), "data")
	if revision >= StreamRevisionTyped {
		writer.length(len(stream.StreamType), "type")
	}
	writer.float64(float64(stream.Timestamp))
	if revision == StreamRevisionGrouped {
		writer.length(len(stream.Group), "group")
	}

	writer.raw([]byte(stream.Channel))
	writer.raw(stream.Data)
	if revision >= StreamRevisionTyped {
		writer.raw([]byte(stream.StreamType))
	}
	if revision == StreamRevisionGrouped {
		writer.raw([]byte(stream.Group))
	}

	return writer.result()
}
