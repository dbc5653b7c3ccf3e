package ptp

import (
	"encoding/hex"

	"go.uber.org/zap/zapcore"
)

type TimestampMarshaler struct {
	T Timestamp
}

func (m TimestampMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("Seconds", m.T.Seconds.Value())
	enc.AddUint32("Nanoseconds", m.T.Nanoseconds.Value())
	return nil
}

type PortIdentityMarshaler struct {
	P PortIdentity
}

func (m PortIdentityMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("ClockIdentity", hex.EncodeToString(m.P.ClockIdentity.Bytes()))
	enc.AddUint16("PortNumber", m.P.PortNumber.Value())
	return nil
}

type ClockQualityMarshaler struct {
	Q ClockQuality
}

func (m ClockQualityMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("ClockClass", m.Q.ClockClass.Value())
	enc.AddString("ClockAccuracy", m.Q.ClockAccuracy.String())
	enc.AddUint16("OffsetScaledLogVariance", m.Q.OffsetScaledLogVariance.Value())
	return nil
}

type HeaderMarshaler struct {
	H *Header
}

func (m HeaderMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("TransportSpecific", m.H.TransportSpecific.Value())
	enc.AddString("MessageType", m.H.MessageType.String())
	enc.AddUint8("VersionPTP", m.H.VersionPTP.Value())
	enc.AddUint16("MessageLength", m.H.MessageLength.Value())
	enc.AddUint8("DomainNumber", m.H.DomainNumber.Value())
	enc.AddUint16("FlagField", m.H.Flags())
	enc.AddInt64("CorrectionField", m.H.CorrectionField.Value())
	err := enc.AddObject("SourcePortIdentity", PortIdentityMarshaler{P: m.H.SourcePortIdentity})
	if err != nil {
		return err
	}
	enc.AddUint16("SequenceID", m.H.SequenceID.Value())
	enc.AddUint8("ControlField", m.H.ControlField.Value())
	enc.AddInt8("LogMessageInterval", m.H.LogMessageInterval.Value())
	return nil
}

type MessageMarshaler struct {
	Msg *Message
}

func (m MessageMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	err := enc.AddObject("Header", HeaderMarshaler{H: &m.Msg.Header})
	if err != nil {
		return err
	}
	switch b := m.Msg.Body.(type) {
	case Sync:
		return enc.AddObject("OriginTimestamp", TimestampMarshaler{T: b.OriginTimestamp})
	case DelayReq:
		return enc.AddObject("OriginTimestamp", TimestampMarshaler{T: b.OriginTimestamp})
	case FollowUp:
		return enc.AddObject("PreciseOriginTimestamp", TimestampMarshaler{T: b.PreciseOriginTimestamp})
	case DelayResp:
		err = enc.AddObject("ReceiveTimestamp", TimestampMarshaler{T: b.ReceiveTimestamp})
		if err != nil {
			return err
		}
		return enc.AddObject("RequestingPortIdentity", PortIdentityMarshaler{P: b.RequestingPortIdentity})
	case Announce:
		err = enc.AddObject("OriginTimestamp", TimestampMarshaler{T: b.OriginTimestamp})
		if err != nil {
			return err
		}
		enc.AddInt16("CurrentUTCOffset", b.CurrentUTCOffset.Value())
		enc.AddUint8("GrandmasterPriority1", b.GrandmasterPriority1.Value())
		err = enc.AddObject("GrandmasterClockQuality", ClockQualityMarshaler{Q: b.GrandmasterClockQuality})
		if err != nil {
			return err
		}
		enc.AddUint8("GrandmasterPriority2", b.GrandmasterPriority2.Value())
		enc.AddString("GrandmasterIdentity", hex.EncodeToString(b.GrandmasterIdentity.Bytes()))
		enc.AddUint16("StepsRemoved", b.StepsRemoved.Value())
		enc.AddString("TimeSource", b.TimeSource.String())
	}
	return nil
}
