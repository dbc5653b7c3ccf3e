package ptp_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"example.com/ptpwire/base/bitstream"
	"example.com/ptpwire/base/integer"
	"example.com/ptpwire/net/ptp"
)

func clockID(b byte) ptp.ClockIdentity {
	var id ptp.ClockIdentity
	for i := range id {
		id[i] = integer.MustU8(b)
	}
	return id
}

func header(t ptp.MessageTypeValue, seq uint16) ptp.Header {
	h := ptp.Header{
		MessageType:     ptp.KnownMessageType(t),
		VersionPTP:      integer.MustU4(ptp.VersionDefault),
		DomainNumber:    integer.MustU8(0),
		CorrectionField: integer.MustI64(-3 << 16),
		SourcePortIdentity: ptp.PortIdentity{
			ClockIdentity: clockID(0x11),
			PortNumber:    integer.MustU16(1),
		},
		SequenceID:         integer.MustU16(seq),
		LogMessageInterval: integer.MustI8(-3),
	}
	h.SetFlags(ptp.FlagTwoStep | ptp.FlagPTPTimescale)
	return h
}

func announce() ptp.Announce {
	return ptp.Announce{
		OriginTimestamp:      ptp.TimestampFromTime(time.Date(2024, 1, 17, 12, 0, 0, 123456789, time.UTC)),
		CurrentUTCOffset:     integer.MustI16(37),
		GrandmasterPriority1: integer.MustU8(128),
		GrandmasterClockQuality: ptp.ClockQuality{
			ClockClass:              integer.MustU8(248),
			ClockAccuracy:           ptp.KnownClockAccuracy(ptp.ClockAccuracyUnknown),
			OffsetScaledLogVariance: integer.MustU16(0xffff),
		},
		GrandmasterPriority2: integer.MustU8(128),
		GrandmasterIdentity:  clockID(0x22),
		StepsRemoved:         integer.MustU16(0),
		TimeSource:           ptp.KnownTimeSource(ptp.TimeSourceInternalOscillator),
	}
}

func newMessage(t *testing.T, h ptp.Header, b ptp.Body) ptp.Message {
	t.Helper()
	m, err := ptp.NewMessage(h, b)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	return m
}

func TestAnnounceRoundTrip(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeAnnounce, 13123), announce())

	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(b) != 64 {
		t.Fatalf("unexpected length: %d", len(b))
	}
	checks := []struct {
		name string
		off  int
		want byte
	}{
		{"transportSpecific/messageType", 0, 0x0b},
		{"reserved/versionPTP", 1, 0x02},
		{"messageLength hi", 2, 0x00},
		{"messageLength lo", 3, 0x40},
		{"flagField hi", 6, 0x02},
		{"flagField lo", 7, 0x08},
		{"sequenceId hi", 30, 0x33},
		{"sequenceId lo", 31, 0x43},
		{"controlField", 32, 0x05},
		{"logMessageInterval", 33, 0xfd},
		{"grandmasterPriority1", 47, 128},
		{"clockAccuracy", 49, 0xff},
		{"timeSource", 63, 0xa0},
	}
	for _, c := range checks {
		if b[c.off] != c.want {
			t.Errorf("%s: got %#02x, want %#02x", c.name, b[c.off], c.want)
		}
	}

	got, rest, err := ptp.Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("%d bytes remain", len(rest))
	}
	if got != m {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
	if !got.Recognized() {
		t.Errorf("Announce must be recognized")
	}
}

func TestRoundTrip(t *testing.T) {
	ts := ptp.TimestampFromTime(time.Date(2024, 6, 1, 0, 0, 1, 999999999, time.UTC))
	tests := []struct {
		name string
		h    ptp.Header
		body ptp.Body
	}{
		{"sync", header(ptp.MessageTypeSync, 0), ptp.Sync{OriginTimestamp: ts}},
		{"delay req", header(ptp.MessageTypeDelayReq, 1), ptp.DelayReq{OriginTimestamp: ts}},
		{"follow up", header(ptp.MessageTypeFollowUp, 2), ptp.FollowUp{PreciseOriginTimestamp: ts}},
		{"delay resp", header(ptp.MessageTypeDelayResp, 3), ptp.DelayResp{
			ReceiveTimestamp: ts,
			RequestingPortIdentity: ptp.PortIdentity{
				ClockIdentity: clockID(0xaa),
				PortNumber:    integer.MustU16(0xffff),
			},
		}},
		{"announce", header(ptp.MessageTypeAnnounce, 0xffff), announce()},
		{"signaling", header(ptp.MessageTypeSignaling, 5), ptp.Empty{}},
		{"unknown type", func() ptp.Header {
			h := header(ptp.MessageTypeSync, 6)
			h.MessageType = ptp.MessageTypeFromRaw(integer.MustU4(0x4))
			h.TransportSpecific = integer.MustU4(0xf)
			h.Reserved1 = integer.MustU4(0x7)
			h.Reserved2 = integer.MustU8(0x55)
			h.Reserved3 = [4]ptp.Octet{integer.MustU8(1), integer.MustU8(2), integer.MustU8(3), integer.MustU8(4)}
			return h
		}(), ptp.Empty{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMessage(t, tc.h, tc.body)
			b, err := ptp.Encode(&m)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(b) != int(m.Header.MessageLength.Value()) {
				t.Errorf("encoded %d bytes, messageLength is %d", len(b), m.Header.MessageLength.Value())
			}
			got, rest, err := ptp.Decode(b)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(rest) != 0 {
				t.Errorf("%d bytes remain", len(rest))
			}
			if got != m {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
			}
		})
	}
}

func TestPdelayReqDecodesToEmpty(t *testing.T) {
	b := make([]byte, ptp.HeaderLen+20)
	b[0] = 0x02
	b[1] = 0x02
	b[3] = byte(len(b))

	var calls int
	core, logs := observer.New(zapcore.DebugLevel)
	d := ptp.Decoder{
		Log: zap.New(core),
		OnUnrecognized: func(h *ptp.Header) {
			calls++
			if !h.MessageType.Is(ptp.MessageTypePdelayReq) {
				t.Errorf("unexpected message type %v", h.MessageType)
			}
		},
	}
	m, rest, err := d.Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := m.Body.(ptp.Empty); !ok {
		t.Errorf("expected Empty body, got %T", m.Body)
	}
	if m.Recognized() {
		t.Errorf("Pdelay_Req must not be recognized")
	}
	if len(rest) != 20 {
		t.Errorf("expected 20 uninterpreted bytes, got %d", len(rest))
	}
	if calls != 1 {
		t.Errorf("OnUnrecognized called %d times", calls)
	}
	if n := logs.FilterMessage("message body not decoded").Len(); n != 1 {
		t.Errorf("expected one debug entry, got %d", n)
	}
}

func TestIncompleteHeader(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeSync, 7), ptp.Sync{})
	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < ptp.HeaderLen; n++ {
		_, _, err := ptp.Decode(b[:n])
		if !errors.Is(err, ptp.ErrIncompleteData) {
			t.Fatalf("Decode(%d bytes): expected incomplete data, got %v", n, err)
		}
		var ierr *ptp.IncompleteDataError
		if !errors.As(err, &ierr) {
			t.Fatalf("Decode(%d bytes): expected *IncompleteDataError, got %T", n, err)
		}
		if ierr.Needed <= 0 || n+ierr.Needed > ptp.HeaderLen {
			t.Errorf("Decode(%d bytes): implausible needed count %d for %s", n, ierr.Needed, ierr.Field)
		}
	}
}

func TestIncompleteBody(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeSync, 4711), ptp.Sync{})
	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := ptp.Decode(b[:ptp.HeaderLen+5])
	var ierr *ptp.IncompleteDataError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *IncompleteDataError, got %v", err)
	}
	if ierr.Field != "originTimestamp.secondsField" || ierr.Needed != 1 {
		t.Errorf("unexpected error details: %+v", ierr)
	}
	if got.Header != m.Header {
		t.Errorf("decoded header must survive a body error")
	}
}

func TestTrailingBytes(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeFollowUp, 9), ptp.FollowUp{})
	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatal(err)
	}
	b = append(b, 0xde, 0xad, 0xbe)
	_, rest, err := ptp.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rest, []byte{0xde, 0xad, 0xbe}) {
		t.Errorf("unexpected rest: % x", rest)
	}
}

func TestNewMessageBodyMismatch(t *testing.T) {
	_, err := ptp.NewMessage(header(ptp.MessageTypeSync, 0), ptp.FollowUp{})
	if !errors.Is(err, ptp.ErrMalformedField) {
		t.Errorf("expected malformed field error, got %v", err)
	}
	var merr *ptp.MalformedFieldError
	if !errors.As(err, &merr) || merr.Field != "body" {
		t.Errorf("expected malformed body, got %v", err)
	}
	_, err = ptp.NewMessage(header(ptp.MessageTypePdelayReq, 0), nil)
	if err != nil {
		t.Errorf("nil body must be accepted as Empty: %v", err)
	}
}

func TestZeroMessageTypeIsSync(t *testing.T) {
	var h ptp.Header
	if !h.MessageType.Is(ptp.MessageTypeSync) || h.MessageType != ptp.KnownMessageType(ptp.MessageTypeSync) {
		t.Fatalf("zero message type must be Sync, got %v", h.MessageType)
	}
	h.VersionPTP = integer.MustU4(ptp.VersionDefault)
	_, err := ptp.NewMessage(h, ptp.Empty{})
	if !errors.Is(err, ptp.ErrMalformedField) {
		t.Errorf("Empty body must not be accepted for Sync, got %v", err)
	}
	m := newMessage(t, h, ptp.Sync{})
	b, err := ptp.Encode(&m)
	if err != nil {
		t.Fatal(err)
	}
	got, rest, err := ptp.Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != m || len(rest) != 0 {
		t.Errorf("round trip mismatch: %+v, %d bytes remain", got, len(rest))
	}
}

func TestDecodeAcceptsAnyFieldBits(t *testing.T) {
	b := bytes.Repeat([]byte{0xff}, ptp.HeaderLen)
	m, rest, err := ptp.Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Recognized() || len(rest) != 0 {
		t.Errorf("unexpected body %T, %d bytes remain", m.Body, len(rest))
	}
	h := m.Header
	if h.MessageType.IsKnown() || h.MessageType.Raw().Value() != 0xf {
		t.Errorf("message type %v", h.MessageType)
	}
	if h.CorrectionField.Value() != -1 || h.LogMessageInterval.Value() != -1 {
		t.Errorf("signed fields must sign-extend: %d %d",
			h.CorrectionField.Value(), h.LogMessageInterval.Value())
	}
	if h.MessageLength.Value() != 0xffff || h.SequenceID.Value() != 0xffff {
		t.Errorf("unsigned fields: %d %d", h.MessageLength.Value(), h.SequenceID.Value())
	}
}

func TestClockIdentityFromBytes(t *testing.T) {
	id, err := ptp.ClockIdentityFromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(id.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("got % x", id.Bytes())
	}
	_, err = ptp.ClockIdentityFromBytes([]byte{1, 2, 3})
	var merr *ptp.MalformedFieldError
	if !errors.As(err, &merr) || merr.Field != "clockIdentity" {
		t.Errorf("expected malformed clockIdentity, got %v", err)
	}
}

func TestFlags(t *testing.T) {
	var h ptp.Header
	h.SetFlags(ptp.FlagUnicast | ptp.FlagLeap61)
	if h.FlagField[0].Value() != 0x04 || h.FlagField[1].Value() != 0x01 {
		t.Errorf("unexpected flag octets %v %v", h.FlagField[0], h.FlagField[1])
	}
	if !h.HasFlags(ptp.FlagUnicast) || h.HasFlags(ptp.FlagTwoStep) {
		t.Errorf("unexpected flags %#04x", h.Flags())
	}
}

func TestControlFieldFor(t *testing.T) {
	tests := []struct {
		t    ptp.MessageType
		want uint8
	}{
		{ptp.KnownMessageType(ptp.MessageTypeSync), 0},
		{ptp.KnownMessageType(ptp.MessageTypeDelayReq), 1},
		{ptp.KnownMessageType(ptp.MessageTypeFollowUp), 2},
		{ptp.KnownMessageType(ptp.MessageTypeDelayResp), 3},
		{ptp.KnownMessageType(ptp.MessageTypeManagement), 4},
		{ptp.KnownMessageType(ptp.MessageTypeAnnounce), 5},
		{ptp.MessageTypeFromRaw(integer.MustU4(0xf)), 5},
	}
	for _, tc := range tests {
		if got := ptp.ControlFieldFor(tc.t).Value(); got != tc.want {
			t.Errorf("ControlFieldFor(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
}

func TestBodyLength(t *testing.T) {
	if n := ptp.BodyLength(ptp.KnownMessageType(ptp.MessageTypeAnnounce)); n != 30 {
		t.Errorf("Announce body length = %d", n)
	}
	if n := ptp.BodyLength(ptp.KnownMessageType(ptp.MessageTypeDelayResp)); n != 20 {
		t.Errorf("Delay_Resp body length = %d", n)
	}
	if n := ptp.BodyLength(ptp.KnownMessageType(ptp.MessageTypePdelayResp)); n != 0 {
		t.Errorf("Pdelay_Resp body length = %d", n)
	}
}

func TestMessageTypeCatalog(t *testing.T) {
	known := map[uint8]bool{0x0: true, 0x1: true, 0x2: true, 0x3: true, 0x8: true,
		0x9: true, 0xa: true, 0xb: true, 0xc: true, 0xd: true}
	for v := uint8(0); v <= 0xf; v++ {
		mt := ptp.MessageTypeFromRaw(integer.MustU4(v))
		if mt.Raw().Value() != v {
			t.Errorf("Raw(FromRaw(%#x)) = %#x", v, mt.Raw().Value())
		}
		if mt.IsKnown() != known[v] {
			t.Errorf("%#x: known = %v", v, mt.IsKnown())
		}
	}
	if s := ptp.KnownMessageType(ptp.MessageTypeDelayReq).String(); s != "Delay_Req" {
		t.Errorf("String() = %q", s)
	}
}

func TestTimeSourceTotal(t *testing.T) {
	for v := 0; v <= 0xff; v++ {
		ts := ptp.TimeSourceFromRaw(integer.MustU8(uint8(v)))
		if int(ts.Raw().Value()) != v {
			t.Errorf("Raw(FromRaw(%#x)) = %#x", v, ts.Raw().Value())
		}
	}
	if !ptp.TimeSourceFromRaw(integer.MustU8(0xa0)).Is(ptp.TimeSourceInternalOscillator) {
		t.Errorf("0xa0 must be INTERNAL_OSCILLATOR")
	}
}

func TestClockAccuracyUnknownValue(t *testing.T) {
	ca := ptp.ClockAccuracyFromRaw(integer.MustU8(0xfe))
	if ca.IsKnown() {
		t.Fatalf("0xfe must not have a symbolic mapping")
	}
	if ca.Raw().Value() != 0xfe {
		t.Errorf("raw value %#x", ca.Raw().Value())
	}
	if s := ca.String(); s != "Unknown(0xfe)" {
		t.Errorf("String() = %q", s)
	}
	var buf bytes.Buffer
	w := bitstream.NewWriter(&buf, bitstream.BigEndian)
	if err := ca.SerializeBits(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xfe}) {
		t.Errorf("serialized % x", buf.Bytes())
	}
	if !ptp.ClockAccuracyFromRaw(integer.MustU8(0xff)).Is(ptp.ClockAccuracyUnknown) {
		t.Errorf("0xff must map to the Unknown catalog entry")
	}
}

type failingWriter struct{}

var errSink = errors.New("sink failed")

func (failingWriter) Write(p []byte) (int, error) { return 0, errSink }

func TestEncodeSinkError(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeAnnounce, 1), announce())
	err := ptp.EncodeTo(failingWriter{}, &m, bitstream.BigEndian)
	if !errors.Is(err, errSink) {
		t.Errorf("expected sink error, got %v", err)
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	m := newMessage(t, header(ptp.MessageTypeSync, 0x0102), ptp.Sync{})
	var buf bytes.Buffer
	err := ptp.EncodeTo(&buf, &m, bitstream.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != ptp.HeaderLen+10 {
		t.Fatalf("unexpected length %d", len(b))
	}
	// Nibbles are packed LSB-first: messageType 0 above transportSpecific 0,
	// versionPTP 2 above reserved 0.
	if b[0] != 0x00 || b[1] != 0x20 {
		t.Errorf("unexpected nibble bytes % x", b[:2])
	}
	if b[30] != 0x02 || b[31] != 0x01 {
		t.Errorf("sequenceId must be little-endian, got % x", b[30:32])
	}
}
