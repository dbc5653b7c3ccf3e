// Package integer provides integers constrained to a declared bit width.
//
// An Int[T, W] stores its value in the native type T and guarantees that
// the value lies within the range of the width descriptor W. Every
// construction and every arithmetic operation validates the range; there
// is no unchecked path.
package integer

import (
	"errors"
	"fmt"
	"strconv"

	"example.com/ptpwire/base/bitstream"
)

type Native interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Width describes the bit width and signedness of a constrained integer.
// Implementations are zero-sized.
type Width interface {
	Bits() uint8
	Signed() bool
}

type (
	W4  struct{}
	W8  struct{}
	W16 struct{}
	W32 struct{}
	W48 struct{}
	W64 struct{}
	S8  struct{}
	S16 struct{}
	S32 struct{}
	S64 struct{}
)

func (W4) Bits() uint8    { return 4 }
func (W4) Signed() bool   { return false }
func (W8) Bits() uint8    { return 8 }
func (W8) Signed() bool   { return false }
func (W16) Bits() uint8   { return 16 }
func (W16) Signed() bool  { return false }
func (W32) Bits() uint8   { return 32 }
func (W32) Signed() bool  { return false }
func (W48) Bits() uint8   { return 48 }
func (W48) Signed() bool  { return false }
func (W64) Bits() uint8   { return 64 }
func (W64) Signed() bool  { return false }
func (S8) Bits() uint8    { return 8 }
func (S8) Signed() bool   { return true }
func (S16) Bits() uint8   { return 16 }
func (S16) Signed() bool  { return true }
func (S32) Bits() uint8   { return 32 }
func (S32) Signed() bool  { return true }
func (S64) Bits() uint8   { return 64 }
func (S64) Signed() bool  { return true }

var ErrRange = errors.New("integer out of range")

type RangeError struct {
	Op     string
	Value  string
	Bits   uint8
	Signed bool
}

func (e *RangeError) Error() string {
	kind := "unsigned"
	if e.Signed {
		kind = "signed"
	}
	return fmt.Sprintf("%s: %s does not fit %d-bit %s integer", e.Op, e.Value, e.Bits, kind)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

func rangeError[W Width](op, value string) error {
	var w W
	return &RangeError{Op: op, Value: value, Bits: w.Bits(), Signed: w.Signed()}
}

func minOf(w Width) int64 {
	if !w.Signed() {
		return 0
	}
	return -1 << (w.Bits() - 1)
}

func maxOf(w Width) uint64 {
	if w.Signed() {
		return 1<<(w.Bits()-1) - 1
	}
	if w.Bits() == 64 {
		return ^uint64(0)
	}
	return 1<<w.Bits() - 1
}

// fits reports whether v, interpreted according to its own signedness,
// lies within the range of W.
func fits[W Width, S Native](v S) bool {
	var w W
	if v < 0 {
		return w.Signed() && int64(v) >= minOf(w)
	}
	return uint64(v) <= maxOf(w)
}

func format[S Native](v S) string {
	if v < 0 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatUint(uint64(v), 10)
}

type Int[T Native, W Width] struct {
	v T
}

// New returns v as a constrained integer, or a *RangeError if v lies
// outside the range of W.
func New[T Native, W Width](v T) (Int[T, W], error) {
	if !fits[W](v) {
		return Int[T, W]{}, rangeError[W]("new", format(v))
	}
	return Int[T, W]{v: v}, nil
}

// Convert constructs a constrained integer from any integer source. Both
// widening and narrowing conversions are validated against W.
func Convert[T Native, W Width, S Native](v S) (Int[T, W], error) {
	if !fits[W](v) {
		return Int[T, W]{}, rangeError[W]("convert", format(v))
	}
	return Int[T, W]{v: T(v)}, nil
}

// Resize converts x to another constrained integer type, validating the
// target range.
func Resize[T2 Native, W2 Width, T Native, W Width](x Int[T, W]) (Int[T2, W2], error) {
	return Convert[T2, W2](x.v)
}

// FromBits interprets the low W.Bits() bits of u as a value of W,
// sign-extending for signed widths. Every bit pattern is a valid value, so
// FromBits cannot fail. T must be able to hold every value of W.
func FromBits[T Native, W Width](u uint64) Int[T, W] {
	var w W
	s := 64 - w.Bits()
	if w.Signed() {
		return Int[T, W]{v: T(int64(u<<s) >> s)}
	}
	return Int[T, W]{v: T(u << s >> s)}
}

func Must[T Native, W Width](v T) Int[T, W] {
	x, err := New[T, W](v)
	if err != nil {
		panic(err)
	}
	return x
}

func (x Int[T, W]) Value() T { return x.v }

func (x Int[T, W]) Int64() int64 { return int64(x.v) }

// Uint64 returns the value as uint64. Negative values are returned in
// two's complement.
func (x Int[T, W]) Uint64() uint64 { return uint64(x.v) }

func (Int[T, W]) Bits() uint8 {
	var w W
	return w.Bits()
}

func (Int[T, W]) Min() int64 {
	var w W
	return minOf(w)
}

func (Int[T, W]) Max() uint64 {
	var w W
	return maxOf(w)
}

func (x Int[T, W]) Compare(y Int[T, W]) int {
	switch {
	case x.v < y.v:
		return -1
	case x.v > y.v:
		return 1
	default:
		return 0
	}
}

func (x Int[T, W]) String() string { return format(x.v) }

func (x Int[T, W]) Add(y Int[T, W]) (Int[T, W], error) {
	var w W
	if w.Signed() {
		a, b := int64(x.v), int64(y.v)
		s := a + b
		if a > 0 && b > 0 && s < 0 || a < 0 && b < 0 && s >= 0 {
			return Int[T, W]{}, rangeError[W]("add", x.String()+" + "+y.String())
		}
		if !fits[W](s) {
			return Int[T, W]{}, rangeError[W]("add", format(s))
		}
		return Int[T, W]{v: T(s)}, nil
	}
	a, b := uint64(x.v), uint64(y.v)
	s := a + b
	if s < a || !fits[W](s) {
		return Int[T, W]{}, rangeError[W]("add", x.String()+" + "+y.String())
	}
	return Int[T, W]{v: T(s)}, nil
}

func (x Int[T, W]) Shl(n uint) (Int[T, W], error) {
	var w W
	if x.v == 0 {
		return x, nil
	}
	if n >= 64 {
		return Int[T, W]{}, rangeError[W]("shl", x.String()+" << "+strconv.FormatUint(uint64(n), 10))
	}
	if w.Signed() {
		a := int64(x.v)
		r := a << n
		if r>>n != a || !fits[W](r) {
			return Int[T, W]{}, rangeError[W]("shl", x.String()+" << "+strconv.FormatUint(uint64(n), 10))
		}
		return Int[T, W]{v: T(r)}, nil
	}
	a := uint64(x.v)
	r := a << n
	if r>>n != a || !fits[W](r) {
		return Int[T, W]{}, rangeError[W]("shl", x.String()+" << "+strconv.FormatUint(uint64(n), 10))
	}
	return Int[T, W]{v: T(r)}, nil
}

// Shr shifts right; signed values shift arithmetically.
func (x Int[T, W]) Shr(n uint) (Int[T, W], error) {
	var w W
	if w.Signed() {
		if n >= 64 {
			n = 63
		}
		r := int64(x.v) >> n
		if !fits[W](r) {
			return Int[T, W]{}, rangeError[W]("shr", format(r))
		}
		return Int[T, W]{v: T(r)}, nil
	}
	if n >= 64 {
		return Int[T, W]{}, nil
	}
	r := uint64(x.v) >> n
	if !fits[W](r) {
		return Int[T, W]{}, rangeError[W]("shr", format(r))
	}
	return Int[T, W]{v: T(r)}, nil
}

// SerializeBits writes exactly W.Bits() bits.
func (x Int[T, W]) SerializeBits(w *bitstream.Writer) error {
	var wd W
	if wd.Signed() {
		return w.WriteSigned(int64(x.v), wd.Bits())
	}
	return w.WriteBits(uint64(x.v), wd.Bits())
}

// Read decodes a W.Bits()-wide value from r.
func Read[T Native, W Width](r *bitstream.Reader) (Int[T, W], error) {
	var wd W
	if wd.Signed() {
		v, err := r.ReadSigned(wd.Bits())
		if err != nil {
			return Int[T, W]{}, err
		}
		return Convert[T, W](v)
	}
	v, err := r.ReadBits(wd.Bits())
	if err != nil {
		return Int[T, W]{}, err
	}
	return Convert[T, W](v)
}
