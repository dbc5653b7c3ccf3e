// PTP wire format tool

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/ptpwire/base/zaplog"

	"example.com/ptpwire/benchmark"

	"example.com/ptpwire/core/config"
	"example.com/ptpwire/core/listener"
	"example.com/ptpwire/core/sender"

	"example.com/ptpwire/net/ptp"
)

var (
	log *zap.Logger

	errUnknownMessageType = errors.New("unknown message type")
)

var messageTypes = map[string]ptp.MessageTypeValue{
	"sync":       ptp.MessageTypeSync,
	"delay_req":  ptp.MessageTypeDelayReq,
	"follow_up":  ptp.MessageTypeFollowUp,
	"delay_resp": ptp.MessageTypeDelayResp,
	"announce":   ptp.MessageTypeAnnounce,
}

func parseMessageType(s string) (ptp.MessageTypeValue, error) {
	t, ok := messageTypes[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownMessageType, s)
	}
	return t, nil
}

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
}

func runMonitor(log *zap.Logger, addr string) {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, nil)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runListener(configFile string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	go runMonitor(log, cfg.MetricsAddr)

	ctx, cancel := signalContext()
	defer cancel()
	l := listener.New(log, nil, func(msg *ptp.Message, rxt time.Time, src netip.AddrPort) {
		log.Info("message",
			zap.Stringer("from", src),
			zap.Time("rxt", rxt),
			zap.Object("msg", ptp.MessageMarshaler{Msg: msg}),
		)
	})
	err = l.ListenAndServe(ctx, &cfg)
	if err != nil {
		log.Fatal("failed to serve", zap.Error(err))
	}
}

type sendParams struct {
	remote    string
	general   string
	iface     string
	msgType   string
	seq       uint
	domain    uint
	dscp      uint
	twoStep   bool
	timeSrc   uint
	clockCls  uint
	clockAcc  uint
	utcOffset int
}

func clockIdentity(iface string) (ptp.ClockIdentity, error) {
	if iface == "" {
		return ptp.ClockIdentity{}, nil
	}
	i, err := net.InterfaceByName(iface)
	if err != nil {
		return ptp.ClockIdentity{}, err
	}
	return sender.ClockIdentityFromMAC(i.HardwareAddr)
}

func generalAddr(p *sendParams, remote *net.UDPAddr) (*net.UDPAddr, error) {
	if p.general != "" {
		return net.ResolveUDPAddr("udp4", p.general)
	}
	return &net.UDPAddr{IP: remote.IP, Port: ptp.GeneralPort}, nil
}

func runSend(p *sendParams) {
	typ, err := parseMessageType(p.msgType)
	if err != nil {
		log.Fatal("invalid message type", zap.Error(err))
	}
	remote, err := net.ResolveUDPAddr("udp4", p.remote)
	if err != nil {
		log.Fatal("failed to resolve remote address", zap.Error(err))
	}
	id, err := clockIdentity(p.iface)
	if err != nil {
		log.Fatal("failed to derive clock identity", zap.Error(err))
	}
	opts := &sender.Options{
		Type:          typ,
		Sequence:      uint16(p.seq),
		Domain:        uint8(p.domain),
		ClockIdentity: id,
		PortNumber:    1,
		TwoStep:       p.twoStep,
		UTCOffset:     int16(p.utcOffset),
		Priority1:     128,
		Priority2:     128,
		ClockClass:    uint8(p.clockCls),
		ClockAccuracy: ptp.ClockAccuracyValue(p.clockAcc),
		Variance:      0xffff,
		TimeSource:    ptp.TimeSourceValue(p.timeSrc),
	}

	ctx, cancel := signalContext()
	defer cancel()
	s, err := sender.Dial(ctx, log, nil, remote, uint8(p.dscp))
	if err != nil {
		log.Fatal("failed to create sender", zap.Error(err))
	}
	defer s.Close()

	m, err := sender.BuildMessage(opts, time.Now())
	if err != nil {
		log.Fatal("failed to build message", zap.Error(err))
	}
	txt, err := s.Send(&m)
	if err != nil {
		log.Fatal("failed to send message", zap.Error(err))
	}
	log.Info("sent message",
		zap.Stringer("to", remote),
		zap.Time("txt", txt),
		zap.Object("msg", ptp.MessageMarshaler{Msg: &m}),
	)
	if typ != ptp.MessageTypeSync || !p.twoStep {
		return
	}

	general, err := generalAddr(p, remote)
	if err != nil {
		log.Fatal("failed to resolve general address", zap.Error(err))
	}
	g, err := sender.Dial(ctx, log, nil, general, uint8(p.dscp))
	if err != nil {
		log.Fatal("failed to create sender", zap.Error(err))
	}
	defer g.Close()
	opts.Type = ptp.MessageTypeFollowUp
	fu, err := sender.BuildMessage(opts, txt)
	if err != nil {
		log.Fatal("failed to build message", zap.Error(err))
	}
	_, err = g.Send(&fu)
	if err != nil {
		log.Fatal("failed to send message", zap.Error(err))
	}
	log.Info("sent message",
		zap.Stringer("to", general),
		zap.Object("msg", ptp.MessageMarshaler{Msg: &fu}),
	)
}

func runDecode(data string) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(data), ""))
	if err != nil {
		log.Fatal("failed to parse hex input", zap.Error(err))
	}
	m, rest, err := ptp.Decode(b)
	if err != nil {
		log.Fatal("failed to decode message",
			zap.Object("partial", ptp.HeaderMarshaler{H: &m.Header}), zap.Error(err))
	}
	log.Info("decoded message",
		zap.Object("msg", ptp.MessageMarshaler{Msg: &m}),
		zap.Bool("recognized", m.Recognized()),
		zap.Int("trailing", len(rest)),
	)
}

func runBenchmark(numGoroutine, n int) {
	err := benchmark.RunCodecBenchmark(log, os.Stdout, numGoroutine, n)
	if err != nil {
		log.Fatal("benchmark failed", zap.Error(err))
	}
}

func exitWithUsage() {
	fmt.Println("usage: ptpwire listen -config <file> [-verbose]")
	fmt.Println("       ptpwire send -remote <host:port> -type <sync|delay_req|follow_up|delay_resp|announce> [-two-step] [-verbose]")
	fmt.Println("       ptpwire decode [-verbose] <hex>")
	fmt.Println("       ptpwire benchmark [-goroutines N] [-n N]")
	os.Exit(1)
}

func main() {
	var (
		verbose      bool
		configFile   string
		sp           sendParams
		numGoroutine int
		numMessages  int
	)

	listenFlags := flag.NewFlagSet("listen", flag.ExitOnError)
	sendFlags := flag.NewFlagSet("send", flag.ExitOnError)
	decodeFlags := flag.NewFlagSet("decode", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	listenFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	listenFlags.StringVar(&configFile, "config", "", "Config file")

	sendFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	sendFlags.StringVar(&sp.remote, "remote", "", "Remote address")
	sendFlags.StringVar(&sp.general, "general", "", "Remote address for Follow_Up messages")
	sendFlags.StringVar(&sp.iface, "interface", "", "Interface to derive the clock identity from")
	sendFlags.StringVar(&sp.msgType, "type", "", "Message type")
	sendFlags.UintVar(&sp.seq, "seq", 0, "Sequence id")
	sendFlags.UintVar(&sp.domain, "domain", 0, "Domain number")
	sendFlags.UintVar(&sp.dscp, "dscp", config.DSCP, "DSCP value")
	sendFlags.BoolVar(&sp.twoStep, "two-step", false, "Follow Sync with Follow_Up")
	sendFlags.UintVar(&sp.timeSrc, "time-source", uint(ptp.TimeSourceInternalOscillator), "Announce time source")
	sendFlags.UintVar(&sp.clockCls, "clock-class", 248, "Announce clock class")
	sendFlags.UintVar(&sp.clockAcc, "clock-accuracy", uint(ptp.ClockAccuracyUnknown), "Announce clock accuracy")
	sendFlags.IntVar(&sp.utcOffset, "utc-offset", 37, "Announce current UTC offset")

	decodeFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.IntVar(&numGoroutine, "goroutines", 1, "Number of goroutines")
	benchmarkFlags.IntVar(&numMessages, "n", 1_000_000, "Number of messages per goroutine")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case listenFlags.Name():
		err := listenFlags.Parse(os.Args[2:])
		if err != nil || listenFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runListener(configFile)
	case sendFlags.Name():
		err := sendFlags.Parse(os.Args[2:])
		if err != nil || sendFlags.NArg() != 0 {
			exitWithUsage()
		}
		if sp.remote == "" || sp.msgType == "" {
			exitWithUsage()
		}
		if sp.seq > 0xffff || sp.domain > 0xff || sp.dscp > 63 ||
			sp.timeSrc > 0xff || sp.clockCls > 0xff || sp.clockAcc > 0xff {
			exitWithUsage()
		}
		if sp.utcOffset < math.MinInt16 || sp.utcOffset > math.MaxInt16 {
			exitWithUsage()
		}
		initLogger(verbose)
		runSend(&sp)
	case decodeFlags.Name():
		err := decodeFlags.Parse(os.Args[2:])
		if err != nil || decodeFlags.NArg() == 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runDecode(strings.Join(decodeFlags.Args(), ""))
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if numGoroutine < 1 || numMessages < 1 {
			exitWithUsage()
		}
		initLogger(verbose)
		runBenchmark(numGoroutine, numMessages)
	default:
		exitWithUsage()
	}
}
