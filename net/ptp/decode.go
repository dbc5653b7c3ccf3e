package ptp

import (
	"go.uber.org/zap"

	"example.com/ptpwire/base/integer"
	"example.com/ptpwire/base/zaplog"
)

// Decoder decodes PTP messages. The zero value is ready to use.
type Decoder struct {
	// Log receives a debug entry for every message whose body is not
	// decoded. If nil, the process-wide logger from zaplog is used.
	Log *zap.Logger
	// OnUnrecognized, if set, is called with the header of every message
	// whose body is not decoded.
	OnUnrecognized func(h *Header)
}

// Decode decodes one message from the start of b and returns it together
// with the bytes that follow it.
func Decode(b []byte) (Message, []byte, error) {
	var d Decoder
	return d.Decode(b)
}

// Decode decodes one message from the start of b. Message types without a
// decodable body yield an Empty body and are not an error; the bytes after
// the header are then returned uninterpreted. On error, the returned
// message holds the fields decoded before the failing one.
func (d *Decoder) Decode(b []byte) (Message, []byte, error) {
	var msg Message
	p := parser{b: b}
	err := p.header(&msg.Header)
	if err != nil {
		return msg, b, err
	}
	msg.Body, err = p.body(msg.Header.MessageType)
	if err != nil {
		return msg, b, err
	}
	if !msg.Recognized() {
		d.unrecognized(&msg.Header)
	}
	return msg, b[p.off:], nil
}

func (d *Decoder) unrecognized(h *Header) {
	log := d.Log
	if log == nil {
		log = zaplog.Logger()
	}
	log.Debug("message body not decoded",
		zap.Stringer("messageType", h.MessageType),
		zap.Uint16("sequenceId", h.SequenceID.Value()),
		zap.Uint16("messageLength", h.MessageLength.Value()))
	if d.OnUnrecognized != nil {
		d.OnUnrecognized(h)
	}
}

type parser struct {
	b   []byte
	off int
}

func (p *parser) take(field string, n int) ([]byte, error) {
	if r := len(p.b) - p.off; r < n {
		return nil, &IncompleteDataError{Field: field, Needed: n - r}
	}
	s := p.b[p.off : p.off+n]
	p.off += n
	return s, nil
}

// parseInt reads a big-endian integer of the width W from p. Any byte
// sequence of the right length is a valid value of W.
func parseInt[T integer.Native, W integer.Width](p *parser, field string) (integer.Int[T, W], error) {
	var w W
	b, err := p.take(field, int(w.Bits())/8)
	if err != nil {
		return integer.Int[T, W]{}, err
	}
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return integer.FromBits[T, W](u), nil
}

func (p *parser) octets(field string, dst []Octet) error {
	b, err := p.take(field, len(dst))
	if err != nil {
		return err
	}
	for i, c := range b {
		dst[i] = integer.MustU8(c)
	}
	return nil
}

// nibbles reads dst from consecutive half-bytes, high nibble first.
func (p *parser) nibbles(field string, dst ...*Nibble) error {
	b, err := p.take(field, (len(dst)+1)/2)
	if err != nil {
		return err
	}
	for i, n := range dst {
		c := b[i/2]
		if i%2 == 0 {
			c >>= 4
		}
		*n = integer.FromBits[uint8, integer.W4](uint64(c))
	}
	return nil
}

func (p *parser) header(h *Header) error {
	var messageType Enumeration4
	err := p.nibbles("transportSpecific/messageType/reserved/versionPTP",
		&h.TransportSpecific, &messageType, &h.Reserved1, &h.VersionPTP)
	if err != nil {
		return err
	}
	h.MessageType = MessageTypeFromRaw(messageType)
	if h.MessageLength, err = parseInt[uint16, integer.W16](p, "messageLength"); err != nil {
		return err
	}
	if h.DomainNumber, err = parseInt[uint8, integer.W8](p, "domainNumber"); err != nil {
		return err
	}
	if h.Reserved2, err = parseInt[uint8, integer.W8](p, "reserved"); err != nil {
		return err
	}
	if err = p.octets("flagField", h.FlagField[:]); err != nil {
		return err
	}
	if h.CorrectionField, err = parseInt[int64, integer.S64](p, "correctionField"); err != nil {
		return err
	}
	if err = p.octets("reserved", h.Reserved3[:]); err != nil {
		return err
	}
	if h.SourcePortIdentity, err = p.portIdentity("sourcePortIdentity"); err != nil {
		return err
	}
	if h.SequenceID, err = parseInt[uint16, integer.W16](p, "sequenceId"); err != nil {
		return err
	}
	if h.ControlField, err = parseInt[uint8, integer.W8](p, "controlField"); err != nil {
		return err
	}
	if h.LogMessageInterval, err = parseInt[int8, integer.S8](p, "logMessageInterval"); err != nil {
		return err
	}
	return nil
}

func (p *parser) timestamp(field string) (Timestamp, error) {
	var ts Timestamp
	var err error
	if ts.Seconds, err = parseInt[uint64, integer.W48](p, field+".secondsField"); err != nil {
		return ts, err
	}
	if ts.Nanoseconds, err = parseInt[uint32, integer.W32](p, field+".nanosecondsField"); err != nil {
		return ts, err
	}
	return ts, nil
}

func (p *parser) portIdentity(field string) (PortIdentity, error) {
	var pid PortIdentity
	err := p.octets(field+".clockIdentity", pid.ClockIdentity[:])
	if err != nil {
		return pid, err
	}
	if pid.PortNumber, err = parseInt[uint16, integer.W16](p, field+".portNumber"); err != nil {
		return pid, err
	}
	return pid, nil
}

func (p *parser) clockQuality(field string) (ClockQuality, error) {
	var q ClockQuality
	var err error
	if q.ClockClass, err = parseInt[uint8, integer.W8](p, field+".clockClass"); err != nil {
		return q, err
	}
	accuracy, err := parseInt[uint8, integer.W8](p, field+".clockAccuracy")
	if err != nil {
		return q, err
	}
	q.ClockAccuracy = ClockAccuracyFromRaw(accuracy)
	if q.OffsetScaledLogVariance, err = parseInt[uint16, integer.W16](p, field+".offsetScaledLogVariance"); err != nil {
		return q, err
	}
	return q, nil
}

func (p *parser) body(t MessageType) (Body, error) {
	v, ok := t.Symbol()
	if !ok {
		return Empty{}, nil
	}
	switch v {
	case MessageTypeSync:
		ts, err := p.timestamp("originTimestamp")
		if err != nil {
			return nil, err
		}
		return Sync{OriginTimestamp: ts}, nil
	case MessageTypeDelayReq:
		ts, err := p.timestamp("originTimestamp")
		if err != nil {
			return nil, err
		}
		return DelayReq{OriginTimestamp: ts}, nil
	case MessageTypeFollowUp:
		ts, err := p.timestamp("preciseOriginTimestamp")
		if err != nil {
			return nil, err
		}
		return FollowUp{PreciseOriginTimestamp: ts}, nil
	case MessageTypeDelayResp:
		var b DelayResp
		var err error
		if b.ReceiveTimestamp, err = p.timestamp("receiveTimestamp"); err != nil {
			return nil, err
		}
		if b.RequestingPortIdentity, err = p.portIdentity("requestingPortIdentity"); err != nil {
			return nil, err
		}
		return b, nil
	case MessageTypeAnnounce:
		return p.announce()
	default:
		return Empty{}, nil
	}
}

func (p *parser) announce() (Body, error) {
	var b Announce
	var err error
	if b.OriginTimestamp, err = p.timestamp("originTimestamp"); err != nil {
		return nil, err
	}
	if b.CurrentUTCOffset, err = parseInt[int16, integer.S16](p, "currentUtcOffset"); err != nil {
		return nil, err
	}
	if b.Reserved, err = parseInt[uint8, integer.W8](p, "reserved"); err != nil {
		return nil, err
	}
	if b.GrandmasterPriority1, err = parseInt[uint8, integer.W8](p, "grandmasterPriority1"); err != nil {
		return nil, err
	}
	if b.GrandmasterClockQuality, err = p.clockQuality("grandmasterClockQuality"); err != nil {
		return nil, err
	}
	if b.GrandmasterPriority2, err = parseInt[uint8, integer.W8](p, "grandmasterPriority2"); err != nil {
		return nil, err
	}
	if err = p.octets("grandmasterIdentity", b.GrandmasterIdentity[:]); err != nil {
		return nil, err
	}
	if b.StepsRemoved, err = parseInt[uint16, integer.W16](p, "stepsRemoved"); err != nil {
		return nil, err
	}
	timeSource, err := parseInt[uint8, integer.W8](p, "timeSource")
	if err != nil {
		return nil, err
	}
	b.TimeSource = TimeSourceFromRaw(timeSource)
	return b, nil
}
