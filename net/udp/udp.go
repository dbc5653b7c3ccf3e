package udp

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var (
	errTimestampNotFound = errors.New("failed to read timestamp from out of band data")
	errUnexpectedData    = errors.New("failed to read out of band data")
	errNoIPv4Address     = errors.New("interface has no IPv4 address")
	errInvalidGroup      = errors.New("invalid IPv4 multicast group")
	errInvalidDSCP       = errors.New("DSCP value out of range [0, 63]")
)

// Timestamp handling based on studying code from the following projects:
// - https://github.com/bsdphk/Ntimed, file udp.c
// - https://github.com/golang/go, package "golang.org/x/sys/unix"
// - https://github.com/google/gopacket, package "github.com/google/gopacket/pcapgo"
// - https://github.com/facebook/time, package "github.com/facebook/time/ptp/protocol"

func TimestampLen() int {
	return unix.CmsgSpace(3 * 16)
}

func control(conn *net.UDPConn, f func(fd int) error) error {
	sconn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var res struct {
		err error
	}
	err = sconn.Control(func(fd uintptr) {
		res.err = f(int(fd))
	})
	if err != nil {
		return err
	}
	return res.err
}

// SetDSCP sets the Differentiated Services Codepoint of outgoing IPv4
// packets.
func SetDSCP(conn *net.UDPConn, dscp uint8) error {
	if dscp > 63 {
		return errInvalidDSCP
	}
	return control(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, int(dscp<<2))
	})
}

func interfaceIPv4(iface *net.Interface) ([4]byte, error) {
	var a [4]byte
	if iface == nil {
		return a, nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return a, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			copy(a[:], ip4)
			return a, nil
		}
	}
	return a, errNoIPv4Address
}

// JoinGroup adds conn to the IPv4 multicast group on iface. A nil iface
// lets the kernel choose the interface.
func JoinGroup(conn *net.UDPConn, iface *net.Interface, group net.IP) error {
	g := group.To4()
	if g == nil || !g.IsMulticast() {
		return errInvalidGroup
	}
	ifaddr, err := interfaceIPv4(iface)
	if err != nil {
		return err
	}
	mreq := &unix.IPMreq{Interface: ifaddr}
	copy(mreq.Multiaddr[:], g)
	return control(conn, func(fd int) error {
		return unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
	})
}

// SetMulticastLoopback controls whether multicast packets sent on conn are
// looped back to local listeners.
func SetMulticastLoopback(conn *net.UDPConn, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return control(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, v)
	})
}
