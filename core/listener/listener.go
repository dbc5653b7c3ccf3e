package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/ptpwire/base/metrics"

	"example.com/ptpwire/core/config"

	"example.com/ptpwire/net/ptp"
	"example.com/ptpwire/net/udp"
)

const (
	bufLen = 2048
)

type listenerMetrics struct {
	pktsReceived     prometheus.Counter
	msgsDecoded      prometheus.Counter
	msgsMalformed    prometheus.Counter
	msgsTruncated    prometheus.Counter
	msgsUnrecognized prometheus.Counter
}

func newListenerMetrics(reg prometheus.Registerer) *listenerMetrics {
	f := promauto.With(reg)
	return &listenerMetrics{
		pktsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ListenerPktsReceivedN,
			Help: metrics.ListenerPktsReceivedH,
		}),
		msgsDecoded: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ListenerMsgsDecodedN,
			Help: metrics.ListenerMsgsDecodedH,
		}),
		msgsMalformed: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ListenerMsgsMalformedN,
			Help: metrics.ListenerMsgsMalformedH,
		}),
		msgsTruncated: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ListenerMsgsTruncatedN,
			Help: metrics.ListenerMsgsTruncatedH,
		}),
		msgsUnrecognized: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ListenerMsgsUnrecognizedN,
			Help: metrics.ListenerMsgsUnrecognizedH,
		}),
	}
}

// Handler is called for every successfully decoded message.
type Handler func(msg *ptp.Message, rxt time.Time, src netip.AddrPort)

// Listener receives PTP datagrams and decodes them. A decode failure is
// logged and counted; it never stops the receive loop.
type Listener struct {
	log     *zap.Logger
	mtrcs   *listenerMetrics
	decoder ptp.Decoder
	handler Handler
}

// New creates a listener that registers its counters with reg. A nil reg
// selects the default prometheus registry.
func New(log *zap.Logger, reg prometheus.Registerer, h Handler) *Listener {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	l := &Listener{
		log:     log,
		mtrcs:   newListenerMetrics(reg),
		handler: h,
	}
	l.decoder = ptp.Decoder{
		Log: log,
		OnUnrecognized: func(*ptp.Header) {
			l.mtrcs.msgsUnrecognized.Inc()
		},
	}
	return l
}

// Handle decodes a single datagram b received at rxt from src.
func (l *Listener) Handle(b []byte, rxt time.Time, src netip.AddrPort) (ptp.Message, error) {
	l.mtrcs.pktsReceived.Inc()
	msg, rest, err := l.decoder.Decode(b)
	if err != nil {
		if errors.Is(err, ptp.ErrIncompleteData) {
			l.mtrcs.msgsTruncated.Inc()
		} else {
			l.mtrcs.msgsMalformed.Inc()
		}
		l.log.Info("failed to decode packet",
			zap.Stringer("from", src), zap.Int("length", len(b)), zap.Error(err))
		return msg, err
	}
	l.mtrcs.msgsDecoded.Inc()
	if ce := l.log.Check(zap.DebugLevel, "received message"); ce != nil {
		ce.Write(
			zap.Stringer("from", src),
			zap.Time("rxt", rxt),
			zap.Object("msg", ptp.MessageMarshaler{Msg: &msg}),
			zap.Int("trailing", len(rest)),
		)
	}
	if l.handler != nil {
		l.handler(&msg, rxt, src)
	}
	return msg, nil
}

// Serve reads datagrams from conn until ctx is done or conn is closed.
// conn is closed when Serve returns.
func (l *Listener) Serve(ctx context.Context, conn *net.UDPConn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, bufLen)
	oob := make([]byte, udp.TimestampLen())
	for {
		buf = buf[:cap(buf)]
		oob = oob[:cap(oob)]
		n, oobn, flags, srcAddr, err := conn.ReadMsgUDPAddrPort(buf, oob)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Error("failed to read packet", zap.Error(err))
			continue
		}
		if flags != 0 {
			l.log.Error("failed to read packet", zap.Int("flags", flags))
			continue
		}
		oob = oob[:oobn]
		rxt, err := udp.TimestampFromOOBData(oob)
		if err != nil {
			rxt = time.Now().UTC()
			l.log.Debug("failed to read packet rx timestamp", zap.Error(err))
		}
		buf = buf[:n]
		_, _ = l.Handle(buf, rxt, srcAddr)
	}
}

func (l *Listener) listen(addr *net.UDPAddr, iface *net.Interface, cfg *config.Config,
	hwts bool) (*net.UDPConn, error) {
	c, err := reuseport.ListenPacket("udp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %v: %w", addr, err)
	}
	conn := c.(*net.UDPConn)
	err = udp.JoinGroup(conn, iface, cfg.Group())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to join multicast group %s: %w", cfg.MulticastGroup, err)
	}
	if hwts {
		err = udp.EnableTimestamping(conn, cfg.Interface)
	} else {
		err = udp.EnableRxTimestamps(conn)
	}
	if err != nil {
		l.log.Info("failed to enable timestamping", zap.Stringer("on", addr), zap.Error(err))
	}
	return conn, nil
}

// ListenAndServe joins the configured multicast group on the event and
// general ports and serves both sockets until ctx is done.
func (l *Listener) ListenAndServe(ctx context.Context, cfg *config.Config) error {
	iface, err := cfg.NetInterface()
	if err != nil {
		return fmt.Errorf("failed to look up interface %q: %w", cfg.Interface, err)
	}
	eventConn, err := l.listen(cfg.EventAddr(), iface, cfg, cfg.HardwareTimestamping)
	if err != nil {
		return err
	}
	generalConn, err := l.listen(cfg.GeneralAddr(), iface, cfg, false)
	if err != nil {
		eventConn.Close()
		return err
	}
	l.log.Info("listening for PTP messages",
		zap.String("group", cfg.MulticastGroup),
		zap.Stringer("event", cfg.EventAddr()),
		zap.Stringer("general", cfg.GeneralAddr()),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errs := make(chan error, 2)
	for _, conn := range []*net.UDPConn{eventConn, generalConn} {
		go func(conn *net.UDPConn) {
			errs <- l.Serve(ctx, conn)
		}(conn)
	}
	var first error
	for i := 0; i < 2; i++ {
		err := <-errs
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}
