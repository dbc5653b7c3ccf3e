package bitstream

// Bit-granular cursors over byte streams. Big-endian streams are MSB-first
// (network order, as used by PTP); little-endian streams pack bits
// LSB-first so that byte-aligned values come out in little-endian byte
// order.

import (
	"errors"
	"io"

	"github.com/icza/bitio"
)

type Order int

const (
	BigEndian Order = iota
	LittleEndian
)

func (o Order) String() string {
	switch o {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return "unknown"
	}
}

var (
	errBitCount = errors.New("bit count out of range [0, 64]")
	errOrder    = errors.New("unexpected bit order")
)

// Serializer is implemented by every field type that knows its exact
// bit-width representation.
type Serializer interface {
	SerializeBits(w *Writer) error
}

// WriteAll serializes fields in the given order without padding.
func WriteAll(w *Writer, fields ...Serializer) error {
	for _, f := range fields {
		err := f.SerializeBits(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteArray serializes the elements of a fixed-size array in index order.
// No length prefix is written.
func WriteArray[S Serializer](w *Writer, elems []S) error {
	for i := range elems {
		err := elems[i].SerializeBits(w)
		if err != nil {
			return err
		}
	}
	return nil
}

func mask(n uint8) uint64 {
	if n == 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}

type Writer struct {
	order Order
	msb   *bitio.Writer
	out   io.Writer
	cur   byte
	n     uint8
	count uint64
	err   error
}

func NewWriter(out io.Writer, order Order) *Writer {
	w := &Writer{order: order, out: out}
	if order == BigEndian {
		w.msb = bitio.NewWriter(out)
	}
	return w
}

func (w *Writer) Order() Order { return w.order }

// BitsWritten returns the number of bits accepted so far.
func (w *Writer) BitsWritten() uint64 { return w.count }

func (w *Writer) Aligned() bool { return w.count%8 == 0 }

// WriteBits appends the n lowest bits of v. Once a write fails the writer
// keeps returning the first error.
func (w *Writer) WriteBits(v uint64, n uint8) error {
	if w.err != nil {
		return w.err
	}
	if n > 64 {
		return errBitCount
	}
	if n == 0 {
		return nil
	}
	v &= mask(n)
	switch w.order {
	case BigEndian:
		w.err = w.msb.WriteBits(v, n)
	case LittleEndian:
		w.err = w.writeLSB(v, n)
	default:
		w.err = errOrder
	}
	if w.err != nil {
		return w.err
	}
	w.count += uint64(n)
	return nil
}

func (w *Writer) writeLSB(v uint64, n uint8) error {
	for n > 0 {
		take := 8 - w.n
		if take > n {
			take = n
		}
		w.cur |= byte(v&mask(take)) << w.n
		v >>= take
		n -= take
		w.n += take
		if w.n == 8 {
			_, err := w.out.Write([]byte{w.cur})
			if err != nil {
				return err
			}
			w.cur, w.n = 0, 0
		}
	}
	return nil
}

// WriteSigned appends the n-bit two's complement representation of v.
func (w *Writer) WriteSigned(v int64, n uint8) error {
	return w.WriteBits(uint64(v), n)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteBits(uint64(v), 8) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteBits(uint64(v), 16) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteBits(uint64(v), 32) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteBits(v, 64) }
func (w *Writer) WriteInt8(v int8) error     { return w.WriteSigned(int64(v), 8) }
func (w *Writer) WriteInt16(v int16) error   { return w.WriteSigned(int64(v), 16) }
func (w *Writer) WriteInt32(v int32) error   { return w.WriteSigned(int64(v), 32) }
func (w *Writer) WriteInt64(v int64) error   { return w.WriteSigned(v, 64) }

// Close pads a trailing partial byte with zero bits and flushes it. The
// underlying io.Writer is not closed.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	switch w.order {
	case BigEndian:
		w.err = w.msb.Close()
	case LittleEndian:
		if w.n != 0 {
			_, w.err = w.out.Write([]byte{w.cur})
			w.cur, w.n = 0, 0
		}
	}
	if w.err == nil && !w.Aligned() {
		w.count += 8 - w.count%8
	}
	return w.err
}

type Reader struct {
	order Order
	msb   *bitio.Reader
	in    io.Reader
	cur   byte
	n     uint8
	count uint64
}

func NewReader(in io.Reader, order Order) *Reader {
	r := &Reader{order: order, in: in}
	if order == BigEndian {
		r.msb = bitio.NewReader(in)
	}
	return r
}

func (r *Reader) BitsRead() uint64 { return r.count }

func (r *Reader) ReadBits(n uint8) (uint64, error) {
	if n > 64 {
		return 0, errBitCount
	}
	if n == 0 {
		return 0, nil
	}
	var v uint64
	var err error
	switch r.order {
	case BigEndian:
		v, err = r.msb.ReadBits(n)
	case LittleEndian:
		v, err = r.readLSB(n)
	default:
		err = errOrder
	}
	if err != nil {
		return 0, err
	}
	r.count += uint64(n)
	return v, nil
}

func (r *Reader) readLSB(n uint8) (uint64, error) {
	var v uint64
	var shift uint8
	for n > 0 {
		if r.n == 0 {
			var b [1]byte
			_, err := io.ReadFull(r.in, b[:])
			if err != nil {
				return 0, err
			}
			r.cur, r.n = b[0], 8
		}
		take := r.n
		if take > n {
			take = n
		}
		v |= uint64(r.cur) & mask(take) << shift
		r.cur >>= take
		r.n -= take
		n -= take
		shift += take
	}
	return v, nil
}

// ReadSigned reads n bits and sign-extends them.
func (r *Reader) ReadSigned(n uint8) (int64, error) {
	v, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	if n < 64 && v&(1<<(n-1)) != 0 {
		v |= ^mask(n)
	}
	return int64(v), nil
}
