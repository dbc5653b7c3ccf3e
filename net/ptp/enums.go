package ptp

import (
	"fmt"

	"example.com/ptpwire/base/enum"
	"example.com/ptpwire/base/integer"
)

// See IEEE 1588-2008, section 13.3.2.2, Table 19

type MessageTypeValue uint8

const (
	MessageTypeSync               MessageTypeValue = 0x0
	MessageTypeDelayReq           MessageTypeValue = 0x1
	MessageTypePdelayReq          MessageTypeValue = 0x2
	MessageTypePdelayResp         MessageTypeValue = 0x3
	MessageTypeFollowUp           MessageTypeValue = 0x8
	MessageTypeDelayResp          MessageTypeValue = 0x9
	MessageTypePdelayRespFollowUp MessageTypeValue = 0xa
	MessageTypeAnnounce           MessageTypeValue = 0xb
	MessageTypeSignaling          MessageTypeValue = 0xc
	MessageTypeManagement         MessageTypeValue = 0xd
)

var messageTypeNames = map[MessageTypeValue]string{
	MessageTypeSync:               "Sync",
	MessageTypeDelayReq:           "Delay_Req",
	MessageTypePdelayReq:          "Pdelay_Req",
	MessageTypePdelayResp:         "Pdelay_Resp",
	MessageTypeFollowUp:           "Follow_Up",
	MessageTypeDelayResp:          "Delay_Resp",
	MessageTypePdelayRespFollowUp: "Pdelay_Resp_Follow_Up",
	MessageTypeAnnounce:           "Announce",
	MessageTypeSignaling:          "Signaling",
	MessageTypeManagement:         "Management",
}

func (v MessageTypeValue) Raw() Enumeration4 { return integer.MustU4(uint8(v)) }

func (MessageTypeValue) Lookup(r Enumeration4) (MessageTypeValue, bool) {
	v := MessageTypeValue(r.Value())
	_, ok := messageTypeNames[v]
	return v, ok
}

func (v MessageTypeValue) String() string {
	if s, ok := messageTypeNames[v]; ok {
		return s
	}
	return fmt.Sprintf("MessageType(%#x)", uint8(v))
}

// See IEEE 1588-2019, section 7.6.2.6, Table 5

type ClockAccuracyValue uint8

const (
	ClockAccuracy1ps     ClockAccuracyValue = 0x17
	ClockAccuracy2_5ps   ClockAccuracyValue = 0x18
	ClockAccuracy10ps    ClockAccuracyValue = 0x19
	ClockAccuracy25ps    ClockAccuracyValue = 0x1a
	ClockAccuracy100ps   ClockAccuracyValue = 0x1b
	ClockAccuracy250ps   ClockAccuracyValue = 0x1c
	ClockAccuracy1ns     ClockAccuracyValue = 0x1d
	ClockAccuracy2_5ns   ClockAccuracyValue = 0x1e
	ClockAccuracy10ns    ClockAccuracyValue = 0x1f
	ClockAccuracy25ns    ClockAccuracyValue = 0x20
	ClockAccuracy100ns   ClockAccuracyValue = 0x21
	ClockAccuracy250ns   ClockAccuracyValue = 0x22
	ClockAccuracy1us     ClockAccuracyValue = 0x23
	ClockAccuracy2_5us   ClockAccuracyValue = 0x24
	ClockAccuracy10us    ClockAccuracyValue = 0x25
	ClockAccuracy25us    ClockAccuracyValue = 0x26
	ClockAccuracy100us   ClockAccuracyValue = 0x27
	ClockAccuracy250us   ClockAccuracyValue = 0x28
	ClockAccuracy1ms     ClockAccuracyValue = 0x29
	ClockAccuracy2_5ms   ClockAccuracyValue = 0x2a
	ClockAccuracy10ms    ClockAccuracyValue = 0x2b
	ClockAccuracy25ms    ClockAccuracyValue = 0x2c
	ClockAccuracy100ms   ClockAccuracyValue = 0x2d
	ClockAccuracy250ms   ClockAccuracyValue = 0x2e
	ClockAccuracy1s      ClockAccuracyValue = 0x2f
	ClockAccuracy10s     ClockAccuracyValue = 0x30
	ClockAccuracyOver10s ClockAccuracyValue = 0x31
	ClockAccuracyUnknown ClockAccuracyValue = 0xff
)

var clockAccuracyNames = map[ClockAccuracyValue]string{
	ClockAccuracy1ps:     "1ps",
	ClockAccuracy2_5ps:   "2.5ps",
	ClockAccuracy10ps:    "10ps",
	ClockAccuracy25ps:    "25ps",
	ClockAccuracy100ps:   "100ps",
	ClockAccuracy250ps:   "250ps",
	ClockAccuracy1ns:     "1ns",
	ClockAccuracy2_5ns:   "2.5ns",
	ClockAccuracy10ns:    "10ns",
	ClockAccuracy25ns:    "25ns",
	ClockAccuracy100ns:   "100ns",
	ClockAccuracy250ns:   "250ns",
	ClockAccuracy1us:     "1us",
	ClockAccuracy2_5us:   "2.5us",
	ClockAccuracy10us:    "10us",
	ClockAccuracy25us:    "25us",
	ClockAccuracy100us:   "100us",
	ClockAccuracy250us:   "250us",
	ClockAccuracy1ms:     "1ms",
	ClockAccuracy2_5ms:   "2.5ms",
	ClockAccuracy10ms:    "10ms",
	ClockAccuracy25ms:    "25ms",
	ClockAccuracy100ms:   "100ms",
	ClockAccuracy250ms:   "250ms",
	ClockAccuracy1s:      "1s",
	ClockAccuracy10s:     "10s",
	ClockAccuracyOver10s: ">10s",
	ClockAccuracyUnknown: "Unknown",
}

func (v ClockAccuracyValue) Raw() Enumeration8 { return integer.MustU8(uint8(v)) }

func (ClockAccuracyValue) Lookup(r Enumeration8) (ClockAccuracyValue, bool) {
	v := ClockAccuracyValue(r.Value())
	_, ok := clockAccuracyNames[v]
	return v, ok
}

func (v ClockAccuracyValue) String() string {
	if s, ok := clockAccuracyNames[v]; ok {
		return s
	}
	return fmt.Sprintf("ClockAccuracy(%#x)", uint8(v))
}

// See IEEE 1588-2008, section 7.6.2.6, Table 7

type TimeSourceValue uint8

const (
	TimeSourceAtomicClock        TimeSourceValue = 0x10
	TimeSourceGPS                TimeSourceValue = 0x20
	TimeSourceTerrestrialRadio   TimeSourceValue = 0x30
	TimeSourcePTP                TimeSourceValue = 0x40
	TimeSourceNTP                TimeSourceValue = 0x50
	TimeSourceHandSet            TimeSourceValue = 0x60
	TimeSourceOther              TimeSourceValue = 0x90
	TimeSourceInternalOscillator TimeSourceValue = 0xa0
)

var timeSourceNames = map[TimeSourceValue]string{
	TimeSourceAtomicClock:        "ATOMIC_CLOCK",
	TimeSourceGPS:                "GPS",
	TimeSourceTerrestrialRadio:   "TERRESTRIAL_RADIO",
	TimeSourcePTP:                "PTP",
	TimeSourceNTP:                "NTP",
	TimeSourceHandSet:            "HAND_SET",
	TimeSourceOther:              "OTHER",
	TimeSourceInternalOscillator: "INTERNAL_OSCILLATOR",
}

func (v TimeSourceValue) Raw() Enumeration8 { return integer.MustU8(uint8(v)) }

func (TimeSourceValue) Lookup(r Enumeration8) (TimeSourceValue, bool) {
	v := TimeSourceValue(r.Value())
	_, ok := timeSourceNames[v]
	return v, ok
}

func (v TimeSourceValue) String() string {
	if s, ok := timeSourceNames[v]; ok {
		return s
	}
	return fmt.Sprintf("TimeSource(%#x)", uint8(v))
}

type (
	MessageType   = enum.Enum[Enumeration4, MessageTypeValue]
	ClockAccuracy = enum.Enum[Enumeration8, ClockAccuracyValue]
	TimeSource    = enum.Enum[Enumeration8, TimeSourceValue]
)

func MessageTypeFromRaw(r Enumeration4) MessageType {
	return enum.FromRaw[Enumeration4, MessageTypeValue](r)
}

func ClockAccuracyFromRaw(r Enumeration8) ClockAccuracy {
	return enum.FromRaw[Enumeration8, ClockAccuracyValue](r)
}

func TimeSourceFromRaw(r Enumeration8) TimeSource {
	return enum.FromRaw[Enumeration8, TimeSourceValue](r)
}

func KnownMessageType(v MessageTypeValue) MessageType {
	return enum.Known[Enumeration4](v)
}

func KnownClockAccuracy(v ClockAccuracyValue) ClockAccuracy {
	return enum.Known[Enumeration8](v)
}

func KnownTimeSource(v TimeSourceValue) TimeSource {
	return enum.Known[Enumeration8](v)
}
