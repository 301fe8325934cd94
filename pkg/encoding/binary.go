package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortBuffer = errors.New("encoding: short buffer")
	ErrInvalidTag  = errors.New("encoding: invalid option tag")
	ErrTrailing    = errors.New("encoding: trailing bytes")
)

// Fixed widths of the wire layout.
const (
	SizeU8      = 1
	SizeU16     = 2
	SizeU32     = 4
	SizeU64     = 8
	SizeBool    = 1
	SizeOption  = 1
	SizeLen     = 4
	SizeAddress = 32
)

// Writer appends little-endian, length-prefixed values.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

// Raw writes b without a length prefix.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) String(s string) *Writer {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

func (w *Writer) Blob(b []byte) *Writer {
	w.U32(uint32(len(b)))
	return w.Raw(b)
}

// Some writes the present tag of an option; the caller writes the value next.
func (w *Writer) Some() *Writer { return w.U8(1) }

func (w *Writer) None() *Writer { return w.U8(0) }

func (w *Writer) OptionU64(v *uint64) *Writer {
	if v == nil {
		return w.None()
	}
	return w.Some().U64(*v)
}

// Reader consumes values written by Writer. The first failure sticks and
// every later call returns zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Finish returns the sticky error, or ErrTrailing when unread bytes remain.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d", ErrTrailing, len(r.buf)-r.off)
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d at offset %d, have %d", ErrShortBuffer, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(SizeU8)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(SizeU16)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(SizeU32)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(SizeU64)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// Raw returns a copy of the next n bytes.
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) String() string {
	n := r.U32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *Reader) Blob() []byte {
	n := r.U32()
	return r.Raw(int(n))
}

// Option reads an option tag.
func (r *Reader) Option() bool {
	switch tag := r.U8(); tag {
	case 0:
		return false
	case 1:
		return r.err == nil
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: %d", ErrInvalidTag, tag)
		}
		return false
	}
}

func (r *Reader) OptionU64() *uint64 {
	if !r.Option() {
		return nil
	}
	v := r.U64()
	return &v
}
