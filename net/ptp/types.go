package ptp

// See IEEE 1588-2008, section 5.3 (derived data type specifications)

import (
	"example.com/ptpwire/base/bitstream"
	"example.com/ptpwire/base/integer"
)

type (
	Nibble        = integer.U4
	UInteger4     = integer.U4
	Enumeration4  = integer.U4
	Octet         = integer.U8
	UInteger8     = integer.U8
	Enumeration8  = integer.U8
	Integer8      = integer.I8
	UInteger16    = integer.U16
	Enumeration16 = integer.U16
	Integer16     = integer.I16
	UInteger32    = integer.U32
	Integer32     = integer.I32
	UInteger48    = integer.U48
	Integer64     = integer.I64
)

const (
	ClockIdentityLen = 8
	TimestampLen     = 10
	PortIdentityLen  = ClockIdentityLen + 2
	ClockQualityLen  = 4
)

type Timestamp struct {
	Seconds     UInteger48
	Nanoseconds UInteger32
}

func (t Timestamp) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w, t.Seconds, t.Nanoseconds)
}

type ClockIdentity [ClockIdentityLen]Octet

// ClockIdentityFromBytes copies b into a clock identity. b must be exactly
// ClockIdentityLen bytes long.
func ClockIdentityFromBytes(b []byte) (ClockIdentity, error) {
	var id ClockIdentity
	if len(b) != ClockIdentityLen {
		return id, &MalformedFieldError{Field: "clockIdentity", Err: errClockIdentityLen}
	}
	for i, c := range b {
		id[i] = integer.MustU8(c)
	}
	return id, nil
}

func (id ClockIdentity) Bytes() []byte {
	b := make([]byte, ClockIdentityLen)
	for i := range id {
		b[i] = id[i].Value()
	}
	return b
}

func (id ClockIdentity) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteArray(w, id[:])
}

type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    UInteger16
}

func (p PortIdentity) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w, p.ClockIdentity, p.PortNumber)
}

type ClockQuality struct {
	ClockClass              UInteger8
	ClockAccuracy           ClockAccuracy
	OffsetScaledLogVariance UInteger16
}

func (q ClockQuality) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w, q.ClockClass, q.ClockAccuracy, q.OffsetScaledLogVariance)
}

// octets serializes a fixed-size octet array in place.
type octets []Octet

func (o octets) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteArray(w, o)
}
