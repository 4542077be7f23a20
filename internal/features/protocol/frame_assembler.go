package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is one complete [kind][length][payload] unit cut from the stream.
type Frame struct {
	Kind    PacketKind
	Payload []byte
}

// FrameAssembler turns an arbitrarily chunked byte stream into frames. It is
// owned by exactly one connection and is not safe for concurrent use.
type FrameAssembler struct {
	buffer       []byte
	maxFrameSize int
}

func NewFrameAssembler(maxFrameSize int) *FrameAssembler {
	return &FrameAssembler{maxFrameSize: maxFrameSize}
}

// Feed appends received bytes.
func (a *FrameAssembler) Feed(data []byte) {
	a.buffer = append(a.buffer, data...)
}

// Drain returns every complete frame currently buffered, in order. Each
// frame advances the buffer by exactly FrameHeaderSize+length bytes whether
// or not its payload later decodes. An incomplete tail stays buffered.
func (a *FrameAssembler) Drain() ([]Frame, error) {
	var frames []Frame
	consumed := 0

	for {
		available := a.buffer[consumed:]
		if len(available) < FrameHeaderSize {
			break
		}

		kind := PacketKind(int16(binary.LittleEndian.Uint16(available[0:2])))
		length := int32(binary.LittleEndian.Uint32(available[2:6]))
		if length < 0 || int(length) > a.maxFrameSize {
			a.compact(consumed)
			return frames, fmt.Errorf("%w: kind %d declared %d bytes, max %d",
				ErrFrameTooLarge, kind, length, a.maxFrameSize)
		}

		frameSize := FrameHeaderSize + int(length)
		if len(available) < frameSize {
			break
		}

		payload := make([]byte, length)
		copy(payload, available[FrameHeaderSize:frameSize])
		frames = append(frames, Frame{Kind: kind, Payload: payload})

		consumed += frameSize
	}

	a.compact(consumed)
	return frames, nil
}

// Buffered is the number of bytes waiting for the rest of their frame.
func (a *FrameAssembler) Buffered() int {
	return len(a.buffer)
}

// Reset discards buffered bytes.
func (a *FrameAssembler) Reset() {
	a.buffer = nil
}

func (a *FrameAssembler) compact(consumed int) {
	if consumed == 0 {
		return
	}

	remaining := copy(a.buffer, a.buffer[consumed:])
	a.buffer = a.buffer[:remaining]
}
