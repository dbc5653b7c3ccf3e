package benchmark

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"example.com/ptpwire/base/integer"

	"example.com/ptpwire/net/ptp"
)

var errRoundTrip = errors.New("decoded message differs from encoded message")

func benchmarkMessage(seq uint16, now time.Time) (ptp.Message, error) {
	h := ptp.Header{
		MessageType:        ptp.KnownMessageType(ptp.MessageTypeAnnounce),
		VersionPTP:         integer.MustU4(ptp.VersionDefault),
		SequenceID:         integer.MustU16(seq),
		LogMessageInterval: integer.MustI8(1),
	}
	h.SetFlags(ptp.FlagPTPTimescale | ptp.FlagCurrentUTCOffsetValid)
	return ptp.NewMessage(h, ptp.Announce{
		OriginTimestamp:      ptp.TimestampFromTime(now),
		CurrentUTCOffset:     integer.MustI16(37),
		GrandmasterPriority1: integer.MustU8(128),
		GrandmasterClockQuality: ptp.ClockQuality{
			ClockClass:              integer.MustU8(6),
			ClockAccuracy:           ptp.KnownClockAccuracy(ptp.ClockAccuracy100ns),
			OffsetScaledLogVariance: integer.MustU16(0x4e5d),
		},
		GrandmasterPriority2: integer.MustU8(128),
		StepsRemoved:         integer.MustU16(0),
		TimeSource:           ptp.KnownTimeSource(ptp.TimeSourceGPS),
	})
}

// RunCodecBenchmark encodes and decodes n Announce messages on each of
// numGoroutine goroutines and prints the distribution of the per-message
// round trip latency in nanoseconds to out.
func RunCodecBenchmark(log *zap.Logger, out io.Writer, numGoroutine, n int) error {
	var mu sync.Mutex
	total := hdrhistogram.New(1, 10_000_000, 3)
	var firstErr error
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numGoroutine)
	for i := numGoroutine; i > 0; i-- {
		go func() {
			defer wg.Done()
			hg := hdrhistogram.New(1, 10_000_000, 3)
			var d ptp.Decoder
			<-sg
			err := func() error {
				for j := 0; j < n; j++ {
					m, err := benchmarkMessage(uint16(j), time.Now())
					if err != nil {
						return err
					}
					t0 := time.Now()
					b, err := ptp.Encode(&m)
					if err != nil {
						return err
					}
					r, _, err := d.Decode(b)
					if err != nil {
						return err
					}
					elapsed := time.Since(t0)
					if r.Header != m.Header || r.Body != m.Body {
						return errRoundTrip
					}
					err = hg.RecordValue(elapsed.Nanoseconds())
					if err != nil {
						return fmt.Errorf("failed to record histogram value: %w", err)
					}
				}
				return nil
			}()
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			total.Merge(hg)
		}()
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	log.Info("codec benchmark finished",
		zap.Int("goroutines", numGoroutine),
		zap.Int("messages", numGoroutine*n),
		zap.Duration("elapsed", time.Since(t0)),
		zap.Int64("p50ns", total.ValueAtQuantile(50)),
		zap.Int64("p99ns", total.ValueAtQuantile(99)),
	)
	_, err := total.PercentilesPrint(out, 1, 1.0)
	return err
}
