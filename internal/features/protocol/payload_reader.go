package protocol

import (
	"encoding/binary"
	"math"
)

// payloadReader reads little-endian fields from one frame payload.
type payloadReader struct {
	kind   PacketKind
	data   []byte
	offset int
}

func newPayloadReader(kind PacketKind, data []byte) *payloadReader {
	return &payloadReader{kind: kind, data: data}
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.offset
}

func (r *payloadReader) require(size int, field string) error {
	if size < 0 || r.remaining() < size {
		return newDecodeError(r.kind, "%s needs %d bytes at offset %d, payload has %d",
			field, size, r.offset, len(r.data))
	}
	return nil
}

func (r *payloadReader) int32(field string) (int32, error) {
	if err := r.require(4, field); err != nil {
		return 0, err
	}
	value := int32(binary.LittleEndian.Uint32(r.data[r.offset:]))
	r.offset += 4
	return value, nil
}

func (r *payloadReader) uint32(field string) (uint32, error) {
	if err := r.require(4, field); err != nil {
		return 0, err
	}
	value := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return value, nil
}

func (r *payloadReader) float64(field string) (float64, error) {
	if err := r.require(8, field); err != nil {
		return 0, err
	}
	value := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.offset:]))
	r.offset += 8
	return value, nil
}

// length reads a length prefix and rejects negative values.
func (r *payloadReader) length(field string) (int, error) {
	value, err := r.int32(field)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, newDecodeError(r.kind, "%s is negative (%d)", field, value)
	}
	return int(value), nil
}

func (r *payloadReader) bytes(size int, field string) ([]byte, error) {
	if err := r.require(size, field); err != nil {
		return nil, err
	}
	value := make([]byte, size)
	copy(value, r.data[r.offset:r.offset+size])
	r.offset += size
	return value, nil
}

func (r *payloadReader) string(size int, field string) (string, error) {
	value, err := r.bytes(size, field)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// peekInt32 reads an int32 at an absolute offset without moving the cursor.
func peekInt32(data []byte, offset int) (int32, bool) {
	if offset < 0 || len(data) < offset+4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(data[offset:])), true
}

func isPlausibleSniffedLength(value int32) bool {
	return value >= 0 && value < sniffedLengthLimit
}
