package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when a read would need more bytes than the
// buffer carries. It is never caused by an over-read past the buffer's
// true size: every read is first bounded by the length the peer declared.
var ErrTruncated = errors.New("wire: truncated packet")

// cursor reads big-endian scalars from a byte slice, consuming as it goes.
// It never indexes past len(b); a short read returns ErrTruncated instead.
type cursor struct {
	b []byte
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b}
}

func (c *cursor) remaining() int {
	return len(c.b)
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.b) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(c.b))
	}
	out := c.b[:n]
	c.b = c.b[n:]
	return out, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) f64() (float64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// writer appends big-endian scalars to a growing byte slice.
type writer struct {
	b []byte
}

func (w *writer) bytes() []byte {
	return w.b
}

func (w *writer) putU8(v uint8) {
	w.b = append(w.b, v)
}

func (w *writer) putU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) putI16(v int16) {
	w.putU16(uint16(v))
}

func (w *writer) putU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) putI32(v int32) {
	w.putU32(uint32(v))
}

func (w *writer) putF64(v float64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) putBytes(v []byte) {
	w.b = append(w.b, v...)
}
