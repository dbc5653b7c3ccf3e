package ptp

import (
	"reflect"
	"time"

	"example.com/ptpwire/base/bitstream"
	"example.com/ptpwire/base/integer"
)

const (
	EventPort   = 319 // Sync, Delay_Req
	GeneralPort = 320 // Follow_Up, Delay_Resp, Announce

	HeaderLen = 34

	VersionDefault = 2

	// See IEEE 1588-2008, section 13.3.2.6, Table 20
	FlagAlternateMaster       = 1 << 8
	FlagTwoStep               = 1 << 9
	FlagUnicast               = 1 << 10
	FlagProfileSpecific1      = 1 << 13
	FlagProfileSpecific2      = 1 << 14
	FlagSecurity              = 1 << 15
	FlagLeap61                = 1 << 0
	FlagLeap59                = 1 << 1
	FlagCurrentUTCOffsetValid = 1 << 2
	FlagPTPTimescale          = 1 << 3
	FlagTimeTraceable         = 1 << 4
	FlagFrequencyTraceable    = 1 << 5

	LogMessageIntervalUnicast = 0x7f
)

type Header struct {
	TransportSpecific  Nibble
	MessageType        MessageType
	Reserved1          Nibble
	VersionPTP         UInteger4
	MessageLength      UInteger16
	DomainNumber       UInteger8
	Reserved2          Octet
	FlagField          [2]Octet
	CorrectionField    Integer64
	Reserved3          [4]Octet
	SourcePortIdentity PortIdentity
	SequenceID         UInteger16
	ControlField       UInteger8
	LogMessageInterval Integer8
}

func (h *Header) Flags() uint16 {
	return uint16(h.FlagField[0].Value())<<8 | uint16(h.FlagField[1].Value())
}

func (h *Header) SetFlags(f uint16) {
	h.FlagField[0] = integer.MustU8(uint8(f >> 8))
	h.FlagField[1] = integer.MustU8(uint8(f))
}

func (h *Header) HasFlags(f uint16) bool {
	return h.Flags()&f == f
}

// Correction returns the correctionField as a duration.
func (h *Header) Correction() time.Duration {
	return DurationFromTimeInterval(h.CorrectionField)
}

func (h Header) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w,
		h.TransportSpecific,
		h.MessageType,
		h.Reserved1,
		h.VersionPTP,
		h.MessageLength,
		h.DomainNumber,
		h.Reserved2,
		octets(h.FlagField[:]),
		h.CorrectionField,
		octets(h.Reserved3[:]),
		h.SourcePortIdentity,
		h.SequenceID,
		h.ControlField,
		h.LogMessageInterval,
	)
}

// Body is the message-type specific part of a PTP message. The active
// variant is selected by the header's message type.
type Body interface {
	bitstream.Serializer
	// Len returns the encoded length in bytes.
	Len() int
}

type Sync struct {
	OriginTimestamp Timestamp
}

type DelayReq struct {
	OriginTimestamp Timestamp
}

type FollowUp struct {
	PreciseOriginTimestamp Timestamp
}

type DelayResp struct {
	ReceiveTimestamp       Timestamp
	RequestingPortIdentity PortIdentity
}

type Announce struct {
	OriginTimestamp         Timestamp
	CurrentUTCOffset        Integer16
	Reserved                Octet
	GrandmasterPriority1    UInteger8
	GrandmasterClockQuality ClockQuality
	GrandmasterPriority2    UInteger8
	GrandmasterIdentity     ClockIdentity
	StepsRemoved            UInteger16
	TimeSource              TimeSource
}

// Empty is the body of every message type without a decoded payload.
type Empty struct{}

const (
	syncLen      = TimestampLen
	delayReqLen  = TimestampLen
	followUpLen  = TimestampLen
	delayRespLen = TimestampLen + PortIdentityLen
	announceLen  = TimestampLen + 2 + 1 + 1 + ClockQualityLen + 1 + ClockIdentityLen + 2 + 1
)

func (Sync) Len() int      { return syncLen }
func (DelayReq) Len() int  { return delayReqLen }
func (FollowUp) Len() int  { return followUpLen }
func (DelayResp) Len() int { return delayRespLen }
func (Announce) Len() int  { return announceLen }
func (Empty) Len() int     { return 0 }

func (b Sync) SerializeBits(w *bitstream.Writer) error {
	return b.OriginTimestamp.SerializeBits(w)
}

func (b DelayReq) SerializeBits(w *bitstream.Writer) error {
	return b.OriginTimestamp.SerializeBits(w)
}

func (b FollowUp) SerializeBits(w *bitstream.Writer) error {
	return b.PreciseOriginTimestamp.SerializeBits(w)
}

func (b DelayResp) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w, b.ReceiveTimestamp, b.RequestingPortIdentity)
}

func (b Announce) SerializeBits(w *bitstream.Writer) error {
	return bitstream.WriteAll(w,
		b.OriginTimestamp,
		b.CurrentUTCOffset,
		b.Reserved,
		b.GrandmasterPriority1,
		b.GrandmasterClockQuality,
		b.GrandmasterPriority2,
		b.GrandmasterIdentity,
		b.StepsRemoved,
		b.TimeSource,
	)
}

func (Empty) SerializeBits(*bitstream.Writer) error { return nil }

type Message struct {
	Header Header
	Body   Body
}

// SerializeBits writes the header followed by the body. A nil body is
// written as Empty.
func (m *Message) SerializeBits(w *bitstream.Writer) error {
	err := m.Header.SerializeBits(w)
	if err != nil {
		return err
	}
	if m.Body == nil {
		return nil
	}
	return m.Body.SerializeBits(w)
}

// Recognized reports whether the body was decoded into a specific variant.
func (m *Message) Recognized() bool {
	if m.Body == nil {
		return false
	}
	_, empty := m.Body.(Empty)
	return !empty
}

// Len returns the encoded length of m in bytes.
func (m *Message) Len() int {
	if m.Body == nil {
		return HeaderLen
	}
	return HeaderLen + m.Body.Len()
}

// BodyFor returns the zero body variant for the message type t. Types
// without a defined payload yield Empty.
func BodyFor(t MessageType) Body {
	v, ok := t.Symbol()
	if !ok {
		return Empty{}
	}
	switch v {
	case MessageTypeSync:
		return Sync{}
	case MessageTypeDelayReq:
		return DelayReq{}
	case MessageTypeFollowUp:
		return FollowUp{}
	case MessageTypeDelayResp:
		return DelayResp{}
	case MessageTypeAnnounce:
		return Announce{}
	default:
		return Empty{}
	}
}

func BodyLength(t MessageType) int {
	return BodyFor(t).Len()
}

// ControlFieldFor returns the controlField value defined for t, see
// IEEE 1588-2008, section 13.3.2.10, Table 23.
func ControlFieldFor(t MessageType) UInteger8 {
	switch {
	case t.Is(MessageTypeSync):
		return integer.MustU8(0x00)
	case t.Is(MessageTypeDelayReq):
		return integer.MustU8(0x01)
	case t.Is(MessageTypeFollowUp):
		return integer.MustU8(0x02)
	case t.Is(MessageTypeDelayResp):
		return integer.MustU8(0x03)
	case t.Is(MessageTypeManagement):
		return integer.MustU8(0x04)
	default:
		return integer.MustU8(0x05)
	}
}

// NewMessage combines h and body into a message. It checks that body is
// the variant selected by h.MessageType and sets h.MessageLength and
// h.ControlField accordingly.
func NewMessage(h Header, body Body) (Message, error) {
	if body == nil {
		body = Empty{}
	}
	if reflect.TypeOf(BodyFor(h.MessageType)) != reflect.TypeOf(body) {
		return Message{}, &MalformedFieldError{Field: "body", Err: errBodyMismatch}
	}
	l, err := integer.Convert[uint16, integer.W16](HeaderLen + body.Len())
	if err != nil {
		return Message{}, &MalformedFieldError{Field: "messageLength", Err: err}
	}
	h.MessageLength = l
	h.ControlField = ControlFieldFor(h.MessageType)
	return Message{Header: h, Body: body}, nil
}
