package fit

import "encoding/binary"

const initialBufferSize = 64 * 1024

// writer is a little-endian byte sink that doubles its backing array when
// full. It never truncates.
type writer struct {
	buf []byte
}

func newWriter(size int) *writer {
	if size <= 0 {
		size = initialBufferSize
	}
	return &writer{buf: make([]byte, 0, size)}
}

func (w *writer) reserve(n int) {
	if len(w.buf)+n <= cap(w.buf) {
		return
	}
	newCap := cap(w.buf) * 2
	if newCap == 0 {
		newCap = initialBufferSize
	}
	for newCap < len(w.buf)+n {
		newCap *= 2
	}
	grown := make([]byte, len(w.buf), newCap)
	copy(grown, w.buf)
	w.buf = grown
}

func (w *writer) Len() int { return len(w.buf) }

func (w *writer) u8(v uint8) {
	w.reserve(1)
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	w.reserve(2)
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.reserve(4)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) s32(v int32) {
	w.u32(uint32(v))
}

func (w *writer) raw(b []byte) {
	w.reserve(len(b))
	w.buf = append(w.buf, b...)
}

// str writes s as a fixed-width, null padded field of size bytes.
func (w *writer) str(s string, size int) {
	w.raw(asciiField(s, size))
}

func (w *writer) putU16(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}

func (w *writer) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

func (w *writer) Bytes() []byte {
	return w.buf
}
