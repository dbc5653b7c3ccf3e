package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/ptpwire/base/integer"
	"example.com/ptpwire/base/metrics"

	"example.com/ptpwire/net/ptp"
	"example.com/ptpwire/net/udp"
)

var (
	errUnexpectedMAC  = errors.New("unexpected hardware address length")
	errInvalidMsgType = errors.New("message type out of range [0, 15]")
)

// Options describe an outgoing message. Fields that do not apply to the
// selected message type are ignored.
type Options struct {
	Type           ptp.MessageTypeValue
	Sequence       uint16
	Domain         uint8
	ClockIdentity  ptp.ClockIdentity
	PortNumber     uint16
	TwoStep        bool
	LogInterval    int8
	UTCOffset      int16
	Priority1      uint8
	Priority2      uint8
	ClockClass     uint8
	ClockAccuracy  ptp.ClockAccuracyValue
	Variance       uint16
	StepsRemoved   uint16
	TimeSource     ptp.TimeSourceValue
	RequestingPort ptp.PortIdentity
}

// ClockIdentityFromMAC derives an EUI-64 clock identity from a 48-bit MAC
// address by inserting 0xFFFE in the middle.
func ClockIdentityFromMAC(hw net.HardwareAddr) (ptp.ClockIdentity, error) {
	if len(hw) != 6 {
		return ptp.ClockIdentity{}, errUnexpectedMAC
	}
	return ptp.ClockIdentityFromBytes([]byte{hw[0], hw[1], hw[2], 0xff, 0xfe, hw[3], hw[4], hw[5]})
}

// BuildMessage creates the message described by opts with origin
// timestamps taken from now.
func BuildMessage(opts *Options, now time.Time) (ptp.Message, error) {
	t, err := integer.NewU4(uint8(opts.Type))
	if err != nil {
		return ptp.Message{}, fmt.Errorf("%w: %#x", errInvalidMsgType, uint8(opts.Type))
	}
	h := ptp.Header{
		MessageType:  ptp.MessageTypeFromRaw(t),
		VersionPTP:   integer.MustU4(ptp.VersionDefault),
		DomainNumber: integer.MustU8(opts.Domain),
		SourcePortIdentity: ptp.PortIdentity{
			ClockIdentity: opts.ClockIdentity,
			PortNumber:    integer.MustU16(opts.PortNumber),
		},
		SequenceID:         integer.MustU16(opts.Sequence),
		LogMessageInterval: integer.MustI8(opts.LogInterval),
	}
	var flags uint16
	if opts.TwoStep && opts.Type == ptp.MessageTypeSync {
		flags |= ptp.FlagTwoStep
	}
	if opts.Type == ptp.MessageTypeAnnounce {
		flags |= ptp.FlagPTPTimescale
	}
	h.SetFlags(flags)

	ts := ptp.TimestampFromTime(now)
	var body ptp.Body
	switch opts.Type {
	case ptp.MessageTypeSync:
		if opts.TwoStep {
			body = ptp.Sync{}
		} else {
			body = ptp.Sync{OriginTimestamp: ts}
		}
	case ptp.MessageTypeDelayReq:
		body = ptp.DelayReq{OriginTimestamp: ts}
	case ptp.MessageTypeFollowUp:
		body = ptp.FollowUp{PreciseOriginTimestamp: ts}
	case ptp.MessageTypeDelayResp:
		body = ptp.DelayResp{ReceiveTimestamp: ts, RequestingPortIdentity: opts.RequestingPort}
	case ptp.MessageTypeAnnounce:
		body = ptp.Announce{
			OriginTimestamp:      ts,
			CurrentUTCOffset:     integer.MustI16(opts.UTCOffset),
			GrandmasterPriority1: integer.MustU8(opts.Priority1),
			GrandmasterClockQuality: ptp.ClockQuality{
				ClockClass:              integer.MustU8(opts.ClockClass),
				ClockAccuracy:           ptp.ClockAccuracyFromRaw(opts.ClockAccuracy.Raw()),
				OffsetScaledLogVariance: integer.MustU16(opts.Variance),
			},
			GrandmasterPriority2: integer.MustU8(opts.Priority2),
			GrandmasterIdentity:  opts.ClockIdentity,
			StepsRemoved:         integer.MustU16(opts.StepsRemoved),
			TimeSource:           ptp.TimeSourceFromRaw(opts.TimeSource.Raw()),
		}
	default:
		body = ptp.Empty{}
	}
	return ptp.NewMessage(h, body)
}

// Sender transmits PTP messages to a single remote address.
type Sender struct {
	log          *zap.Logger
	conn         *net.UDPConn
	buf          gopacket.SerializeBuffer
	msgsSent     prometheus.Counter
	txTimestamps bool
}

// Dial connects a sender to remote. A nil reg selects the default
// prometheus registry.
func Dial(ctx context.Context, log *zap.Logger, reg prometheus.Registerer,
	remote *net.UDPAddr, dscp uint8) (*Sender, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "udp4", remote.String())
	if err != nil {
		return nil, fmt.Errorf("failed to dial %v: %w", remote, err)
	}
	conn := c.(*net.UDPConn)
	err = udp.SetDSCP(conn, dscp)
	if err != nil {
		log.Info("failed to set DSCP", zap.Error(err))
	}
	s := &Sender{
		log:  log,
		conn: conn,
		buf:  gopacket.NewSerializeBuffer(),
		msgsSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: metrics.SenderMsgsSentN,
			Help: metrics.SenderMsgsSentH,
		}),
	}
	err = udp.EnableTimestamping(conn, "")
	if err != nil {
		log.Debug("failed to enable transmit timestamping", zap.Error(err))
	} else {
		s.txTimestamps = true
	}
	return s, nil
}

// Send serializes m, fixing its messageLength, and transmits it. The
// returned time is the kernel transmit timestamp if available and the
// time just before the write otherwise.
func (s *Sender) Send(m *ptp.Message) (time.Time, error) {
	l := &ptp.Layer{Message: *m}
	err := gopacket.SerializeLayers(s.buf, gopacket.SerializeOptions{FixLengths: true}, l)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode message: %w", err)
	}
	txt := time.Now().UTC()
	_, err = s.conn.Write(s.buf.Bytes())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to write packet: %w", err)
	}
	s.msgsSent.Inc()
	s.log.Debug("sent message", zap.Object("msg", ptp.MessageMarshaler{Msg: &l.Message}))
	if s.txTimestamps {
		ts, _, err := udp.ReadTXTimestamp(s.conn)
		if err != nil {
			s.log.Debug("failed to read transmit timestamp", zap.Error(err))
		} else {
			txt = ts
		}
	}
	return txt, nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
