package main

import (
	"errors"
	"net"
	"testing"

	"example.com/ptpwire/net/ptp"
)

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in   string
		want ptp.MessageTypeValue
		err  error
	}{
		{"sync", ptp.MessageTypeSync, nil},
		{"Delay_Req", ptp.MessageTypeDelayReq, nil},
		{"follow_up", ptp.MessageTypeFollowUp, nil},
		{"delay_resp", ptp.MessageTypeDelayResp, nil},
		{"ANNOUNCE", ptp.MessageTypeAnnounce, nil},
		{"pdelay_req", 0, errUnknownMessageType},
		{"", 0, errUnknownMessageType},
	}
	for _, tc := range tests {
		got, err := parseMessageType(tc.in)
		if !errors.Is(err, tc.err) {
			t.Errorf("parseMessageType(%q) error = %v, want %v", tc.in, err, tc.err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("parseMessageType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGeneralAddr(t *testing.T) {
	remote := &net.UDPAddr{IP: net.IPv4(192, 0, 2, 7), Port: ptp.EventPort}
	a, err := generalAddr(&sendParams{}, remote)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IP.Equal(remote.IP) || a.Port != ptp.GeneralPort {
		t.Errorf("unexpected default general address %v", a)
	}
	a, err = generalAddr(&sendParams{general: "127.0.0.1:10320"}, remote)
	if err != nil {
		t.Fatal(err)
	}
	if a.Port != 10320 {
		t.Errorf("unexpected general address %v", a)
	}
}

func TestClockIdentityWithoutInterface(t *testing.T) {
	id, err := clockIdentity("")
	if err != nil || id != (ptp.ClockIdentity{}) {
		t.Errorf("clockIdentity(\"\") = %v, %v", id, err)
	}
}
