package udp

import (
	"unsafe"

	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func EnableRxTimestamps(conn *net.UDPConn) error {
	return control(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPNS, 1)
	})
}

// timestampingValue extracts the timestamp of an SO_TIMESTAMPING cmsg
// payload. Software timestamps are reported in the first slot, raw
// hardware timestamps in the third.
func timestampingValue(data []byte) (time.Time, error) {
	if len(data) < 3*16 {
		return time.Time{}, errUnexpectedData
	}
	var ts [3]unix.Timespec
	for i := range ts {
		ts[i] = *(*unix.Timespec)(unsafe.Pointer(&data[i*16]))
	}
	switch {
	case ts[2].Sec != 0 || ts[2].Nsec != 0:
		return time.Unix(ts[2].Unix()).UTC(), nil
	case ts[0].Sec != 0 || ts[0].Nsec != 0:
		return time.Unix(ts[0].Unix()).UTC(), nil
	default:
		return time.Time{}, errTimestampNotFound
	}
}

// TimestampFromOOBData returns the receive timestamp contained in oob. Both
// SO_TIMESTAMPNS and SO_TIMESTAMPING control messages are understood.
func TimestampFromOOBData(oob []byte) (time.Time, error) {
	for unix.CmsgSpace(0) <= len(oob) {
		h := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
		if h.Len < unix.SizeofCmsghdr || h.Len > uint64(len(oob)) {
			return time.Time{}, errUnexpectedData
		}
		data := oob[unix.CmsgSpace(0):h.Len]
		if h.Level == unix.SOL_SOCKET {
			switch h.Type {
			case unix.SO_TIMESTAMPING_NEW:
				return timestampingValue(data)
			case unix.SCM_TIMESTAMPNS:
				if len(data) != int(unsafe.Sizeof(unix.Timespec{})) {
					return time.Time{}, errUnexpectedData
				}
				ts := (*unix.Timespec)(unsafe.Pointer(&data[0]))
				return time.Unix(ts.Unix()).UTC(), nil
			}
		}
		if unix.CmsgSpace(int(h.Len))-unix.CmsgSpace(0) > len(oob) {
			break
		}
		oob = oob[unix.CmsgSpace(int(h.Len))-unix.CmsgSpace(0):]
	}
	return time.Time{}, errTimestampNotFound
}

// For details on hardware timestamping configuration, see
// - https://docs.kernel.org/networking/timestamping.html
// - https://github.com/torvalds/linux/blob/master/include/uapi/linux/net_tstamp.h

const (
	unixHWTSTAMP_TX_ON               = 1
	unixHWTSTAMP_FILTER_ALL          = 1
	unixHWTSTAMP_FILTER_PTP_V2_EVENT = 12
)

type hwtstampConfig struct {
	flags    int32
	txType   int32
	rxFilter int32
}

// See https://man7.org/linux/man-pages/man7/netdevice.7.html
type ifreq struct {
	ifrName [unix.IFNAMSIZ]byte
	ifrData uintptr
}

func initNetworkInterface(fd int, ifname string, filter int32) error {
	// Based on Meta's time libraries at https://github.com/facebook/time
	var req ifreq
	var cfg hwtstampConfig

	copy(req.ifrName[:cap(req.ifrName)-1], ifname)
	req.ifrData = uintptr(unsafe.Pointer(&cfg))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		unix.SIOCGHWTSTAMP, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return errno
	}

	if cfg.txType == unixHWTSTAMP_TX_ON && cfg.rxFilter == filter {
		return nil
	}

	cfg.txType = unixHWTSTAMP_TX_ON
	cfg.rxFilter = filter
	_, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		unix.SIOCSHWTSTAMP, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return errno
	}

	return nil
}

// EnableTimestamping turns on SO_TIMESTAMPING for received and transmitted
// packets. With a non-empty iface, hardware timestamping of PTP event
// messages is configured on that interface; otherwise software timestamps
// are used.
func EnableTimestamping(conn *net.UDPConn, iface string) error {
	sockopts := unix.SOF_TIMESTAMPING_OPT_ID |
		unix.SOF_TIMESTAMPING_OPT_TSONLY

	if iface != "" {
		sockopts |= unix.SOF_TIMESTAMPING_RAW_HARDWARE |
			unix.SOF_TIMESTAMPING_RX_HARDWARE |
			unix.SOF_TIMESTAMPING_TX_HARDWARE

		err := control(conn, func(fd int) error {
			err := initNetworkInterface(fd, iface, unixHWTSTAMP_FILTER_PTP_V2_EVENT)
			if err != nil && !errors.Is(err, syscall.EPERM) {
				err = initNetworkInterface(fd, iface, unixHWTSTAMP_FILTER_ALL)
			}
			return err
		})
		if err != nil {
			return err
		}
	} else {
		sockopts |= unix.SOF_TIMESTAMPING_SOFTWARE |
			unix.SOF_TIMESTAMPING_RX_SOFTWARE |
			unix.SOF_TIMESTAMPING_TX_SOFTWARE
	}

	return control(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPING_NEW, sockopts)
	})
}

func txTimestampFromOOBData(oob []byte) (time.Time, uint32, error) {
	var tsSet, idSet bool
	var ts time.Time
	var id uint32
	for unix.CmsgSpace(0) <= len(oob) {
		h := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
		if h.Len < unix.SizeofCmsghdr || h.Len > uint64(len(oob)) {
			return time.Time{}, 0, errUnexpectedData
		}
		data := oob[unix.CmsgSpace(0):h.Len]
		switch {
		case h.Level == unix.SOL_SOCKET && h.Type == unix.SO_TIMESTAMPING_NEW:
			var err error
			ts, err = timestampingValue(data)
			if err != nil {
				return time.Time{}, 0, err
			}
			tsSet = true
		case h.Level == unix.SOL_IP && h.Type == unix.IP_RECVERR,
			h.Level == unix.SOL_IPV6 && h.Type == unix.IPV6_RECVERR:
			if len(data) < int(unsafe.Sizeof(unix.SockExtendedErr{})) {
				return time.Time{}, 0, errUnexpectedData
			}
			seerr := *(*unix.SockExtendedErr)(unsafe.Pointer(&data[0]))
			if seerr.Errno != uint32(unix.ENOMSG) ||
				seerr.Origin != unix.SO_EE_ORIGIN_TIMESTAMPING {
				return time.Time{}, 0, errUnexpectedData
			}
			id = seerr.Data
			idSet = true
		}
		if unix.CmsgSpace(int(h.Len))-unix.CmsgSpace(0) > len(oob) {
			break
		}
		oob = oob[unix.CmsgSpace(int(h.Len))-unix.CmsgSpace(0):]
	}
	if !tsSet || !idSet {
		return time.Time{}, 0, errTimestampNotFound
	}
	return ts, id, nil
}

// ReadTXTimestamp reads the transmit timestamp of the most recently sent
// packet from the socket error queue. The returned id counts the packets
// sent on conn since timestamping was enabled.
func ReadTXTimestamp(conn *net.UDPConn) (time.Time, uint32, error) {
	sconn, err := conn.SyscallConn()
	if err != nil {
		return time.Time{}, 0, err
	}
	var res struct {
		ts  time.Time
		id  uint32
		err error
	}
	err = sconn.Read(func(fd uintptr) bool {
		pollFds := []unix.PollFd{
			{Fd: int32(fd), Events: unix.POLLPRI},
		}
		var n int
		for {
			n, err = unix.Poll(pollFds, 1 /* timeout */)
			if err == unix.EINTR {
				continue
			}
			break
		}
		if err != nil {
			res.err = err
			return true
		}
		if n != len(pollFds) {
			res.err = errTimestampNotFound
			return true
		}
		oob := make([]byte, 128)
		var oobn, flags int
		var srcAddr unix.Sockaddr
		for {
			n, oobn, flags, srcAddr, err = unix.Recvmsg(int(fd), nil, oob, unix.MSG_ERRQUEUE)
			if err == unix.EINTR {
				continue
			}
			break
		}
		if err != nil {
			res.err = err
			return true
		}
		if n != 0 || flags != unix.MSG_ERRQUEUE || srcAddr != nil {
			res.err = errUnexpectedData
			return true
		}
		res.ts, res.id, res.err = txTimestampFromOOBData(oob[:oobn])
		return true
	})
	if err != nil {
		return time.Time{}, 0, err
	}
	return res.ts, res.id, res.err
}
