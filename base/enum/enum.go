// Package enum implements protocol enumerations that tolerate wire values
// outside their symbolic catalog.
package enum

import (
	"fmt"

	"example.com/ptpwire/base/bitstream"
)

// Raw is the wire representation of an enumeration, typically a
// constrained integer.
type Raw[R any] interface {
	comparable
	bitstream.Serializer
	fmt.Stringer
	Compare(R) int
	Uint64() uint64
	Add(R) (R, error)
	Shl(uint) (R, error)
	Shr(uint) (R, error)
}

// Symbol is one entry of an enumeration catalog. Lookup is called on the
// zero value and maps a raw value to its catalog entry.
type Symbol[R any, S any] interface {
	comparable
	fmt.Stringer
	Raw() R
	Lookup(R) (S, bool)
}

// Enum holds a raw wire value and classifies it against the catalog of S
// on demand. A value is known exactly when the catalog maps its raw value,
// so == compares logical wire values and the zero Enum is the catalog
// entry for raw zero, if any.
type Enum[R Raw[R], S Symbol[R, S]] struct {
	raw R
}

// FromRaw never fails: values without a catalog entry are Unknown.
func FromRaw[R Raw[R], S Symbol[R, S]](r R) Enum[R, S] {
	return Enum[R, S]{raw: r}
}

func Known[R Raw[R], S Symbol[R, S]](s S) Enum[R, S] {
	return FromRaw[R, S](s.Raw())
}

func (e Enum[R, S]) Raw() R { return e.raw }

func (e Enum[R, S]) Symbol() (S, bool) {
	var zero S
	return zero.Lookup(e.raw)
}

func (e Enum[R, S]) IsKnown() bool {
	_, ok := e.Symbol()
	return ok
}

// Is reports whether e is the known symbol s.
func (e Enum[R, S]) Is(s S) bool {
	v, ok := e.Symbol()
	return ok && v == s
}

func (e Enum[R, S]) Equal(f Enum[R, S]) bool { return e.raw == f.raw }

func (e Enum[R, S]) Compare(f Enum[R, S]) int { return e.raw.Compare(f.raw) }

func (e Enum[R, S]) Add(f Enum[R, S]) (Enum[R, S], error) {
	r, err := e.raw.Add(f.raw)
	if err != nil {
		return Enum[R, S]{}, err
	}
	return FromRaw[R, S](r), nil
}

func (e Enum[R, S]) Shl(n uint) (Enum[R, S], error) {
	r, err := e.raw.Shl(n)
	if err != nil {
		return Enum[R, S]{}, err
	}
	return FromRaw[R, S](r), nil
}

func (e Enum[R, S]) Shr(n uint) (Enum[R, S], error) {
	r, err := e.raw.Shr(n)
	if err != nil {
		return Enum[R, S]{}, err
	}
	return FromRaw[R, S](r), nil
}

func (e Enum[R, S]) SerializeBits(w *bitstream.Writer) error {
	return e.raw.SerializeBits(w)
}

func (e Enum[R, S]) String() string {
	if s, ok := e.Symbol(); ok {
		return s.String()
	}
	return fmt.Sprintf("Unknown(%#x)", e.raw.Uint64())
}
