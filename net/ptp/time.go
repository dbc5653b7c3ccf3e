package ptp

import (
	"time"

	"example.com/ptpwire/base/integer"
)

func TimestampFromTime(t time.Time) Timestamp {
	s := t.Unix()
	if s < 0 {
		panic("invalid argument: t must not be before 1970-01-01T00:00:00Z")
	}
	if s > 1<<48-1 {
		panic("invalid argument: t must not be after 8921556-12-07T10:44:15.999999999Z")
	}
	return Timestamp{
		Seconds:     integer.MustU48(uint64(s)),
		Nanoseconds: integer.MustU32(uint32(t.Nanosecond())),
	}
}

func TimeFromTimestamp(t Timestamp) time.Time {
	return time.Unix(int64(t.Seconds.Value()), int64(t.Nanoseconds.Value())).UTC()
}

// DurationFromTimeInterval converts a correction or time interval value,
// which is scaled by 2^16, to a duration. Sub-nanosecond fractions are
// dropped by an arithmetic shift, i.e. rounded toward negative infinity.
// Every Integer64 maps to a representable duration.
func DurationFromTimeInterval(i Integer64) time.Duration {
	return time.Duration(i.Value() >> 16)
}

func TimeIntervalFromDuration(d time.Duration) (Integer64, error) {
	return integer.MustI64(int64(d)).Shl(16)
}
