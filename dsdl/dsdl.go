// Package dsdl holds the data types carried in transfer payloads and their
// serializers.
//
// Standard types use the Cyphal binary layout: little-endian, byte aligned,
// variable-length arrays prefixed with their length. Deserializers follow the
// implicit zero-extension rule, so a payload shorter than expected decodes
// with the missing fields zeroed. Mission-specific types are encoded as CBOR.
package dsdl

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrBufferTooSmall is returned when a serializer runs out of room.
	ErrBufferTooSmall = errors.New("dsdl: buffer too small")

	// ErrMalformed is returned when a payload cannot be decoded.
	ErrMalformed = errors.New("dsdl: malformed payload")
)

// Serializer writes v into buf and returns the number of bytes used.
type Serializer[T any] func(v *T, buf []byte) (int, error)

// Deserializer decodes a payload.
type Deserializer[T any] func(buf []byte) (T, error)

type writer struct {
	buf []byte
	off int
	err error
}

func (w *writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}

	if w.off+n > len(w.buf) {
		w.err = ErrBufferTooSmall
		return nil
	}

	b := w.buf[w.off : w.off+n]
	w.off += n

	return b
}

func (w *writer) u8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

func (w *writer) u16(v uint16) {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (w *writer) u32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *writer) u64(v uint64) {
	if b := w.reserve(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

func (w *writer) bytes(v []byte) {
	if b := w.reserve(len(v)); b != nil {
		copy(b, v)
	}
}

func (w *writer) zeros(n int) {
	if b := w.reserve(n); b != nil {
		clear(b)
	}
}

func (w *writer) result() (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	return w.off, nil
}

// reader zero-extends: reading past the end yields zeros.
type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) []byte {
	out := make([]byte, n)
	if r.off < len(r.buf) {
		copy(out, r.buf[r.off:])
	}

	r.off += n

	return out
}

func (r *reader) u8() uint8 {
	return r.take(1)[0]
}

func (r *reader) u16() uint16 {
	return binary.LittleEndian.Uint16(r.take(2))
}

func (r *reader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.take(4))
}

func (r *reader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.take(8))
}

// array reads a u8 length prefix and that many bytes, rejecting lengths
// beyond capacity.
func (r *reader) array(capacity int) ([]byte, error) {
	n := int(r.u8())
	if n > capacity {
		return nil, ErrMalformed
	}

	return r.take(n), nil
}
