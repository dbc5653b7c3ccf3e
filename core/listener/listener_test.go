package listener_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"example.com/ptpwire/base/integer"
	"example.com/ptpwire/base/metrics"
	"example.com/ptpwire/core/listener"
	"example.com/ptpwire/net/ptp"
)

func syncMessage(t *testing.T, seq uint16) []byte {
	t.Helper()
	h := ptp.Header{
		MessageType: ptp.KnownMessageType(ptp.MessageTypeSync),
		VersionPTP:  integer.MustU4(ptp.VersionDefault),
		SequenceID:  integer.MustU16(seq),
	}
	m, err := ptp.NewMessage(h, ptp.Sync{OriginTimestamp: ptp.TimestampFromTime(time.Unix(1700000000, 5))})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	core, logs := observer.New(zapcore.DebugLevel)
	var handled []uint16
	l := listener.New(zap.New(core), reg, func(msg *ptp.Message, _ time.Time, _ netip.AddrPort) {
		handled = append(handled, msg.Header.SequenceID.Value())
	})
	src := netip.MustParseAddrPort("192.0.2.1:319")
	now := time.Now()

	_, err := l.Handle(syncMessage(t, 7), now, src)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	pdelay := make([]byte, ptp.HeaderLen+20)
	pdelay[0], pdelay[1] = 0x02, 0x02
	m, err := l.Handle(pdelay, now, src)
	if err != nil {
		t.Fatalf("unrecognized message type must not fail: %v", err)
	}
	if m.Recognized() {
		t.Errorf("Pdelay_Req must not be recognized")
	}

	_, err = l.Handle(syncMessage(t, 8)[:20], now, src)
	if err == nil {
		t.Errorf("truncated packet must fail")
	}

	if len(handled) != 2 || handled[0] != 7 {
		t.Errorf("unexpected handled messages %v", handled)
	}
	want := map[string]float64{
		metrics.ListenerPktsReceivedN:     3,
		metrics.ListenerMsgsDecodedN:      2,
		metrics.ListenerMsgsUnrecognizedN: 1,
		metrics.ListenerMsgsTruncatedN:    1,
		metrics.ListenerMsgsMalformedN:    0,
	}
	for name, v := range want {
		if got := counter(t, reg, name); got != v {
			t.Errorf("%s = %v, want %v", name, got, v)
		}
	}
	if n := logs.FilterMessage("failed to decode packet").Len(); n != 1 {
		t.Errorf("expected one decode failure log entry, got %d", n)
	}
	if n := logs.FilterMessage("received message").Len(); n != 2 {
		t.Errorf("expected two message log entries, got %d", n)
	}
}

func TestServe(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("loopback not available: %v", err)
	}
	received := make(chan uint16, 1)
	reg := prometheus.NewRegistry()
	l := listener.New(zap.NewNop(), reg, func(msg *ptp.Message, _ time.Time, _ netip.AddrPort) {
		received <- msg.Header.SequenceID.Value()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, conn) }()

	c, err := net.DialUDP("udp4", nil, conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_, err = c.Write([]byte{0x00})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Write(syncMessage(t, 4242))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case seq := <-received:
		if seq != 4242 {
			t.Errorf("unexpected sequence id %d", seq)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no message received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not stop")
	}
	if got := counter(t, reg, metrics.ListenerMsgsTruncatedN); got != 1 {
		t.Errorf("truncated packets = %v", got)
	}
}
