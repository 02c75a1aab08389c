package sntp

import (
	"time"
)

const eraLength uint64 = 4_294_967_296    // 2^32
const unixEraOffset int64 = 2_208_988_800 // 1970 - 1900 in seconds
const shortLength uint64 = 65_536         // 2^16

// MaxShort is the largest short format value, just under 65536 seconds.
const MaxShort Short = 0xFFFF_FFFF

// Timestamp is the 64 bit NTP timestamp format: seconds since 1900 in the
// upper 32 bits and the fraction of a second in the lower 32 bits.
type Timestamp uint64

// Short is the 32 bit NTP short format used by root delay and root
// dispersion: 16 bits of seconds and 16 bits of fraction.
type Short uint32

// TimestampFromTime encodes t. Times past 2036-02-07 wrap into era 1 as
// RFC 4330 describes.
func TimestampFromTime(t time.Time) Timestamp {
	sec := uint64(t.Unix()+unixEraOffset) & (eraLength - 1)
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timestamp(sec<<32 | frac)
}

// Time decodes the timestamp. A cleared most significant bit places the
// timestamp in era 1, which starts in 2036.
func (ts Timestamp) Time() time.Time {
	sec := int64(ts >> 32)
	if sec&0x8000_0000 == 0 {
		sec += int64(eraLength)
	}
	nsec := (uint64(ts) & (eraLength - 1)) * uint64(time.Second) >> 32
	return time.Unix(sec-unixEraOffset, int64(nsec)).UTC()
}

// IsZero reports whether the timestamp was left unset by the sender.
func (ts Timestamp) IsZero() bool {
	return ts == 0
}

func (s Short) Duration() time.Duration {
	return time.Duration(uint64(s) * uint64(time.Second) / shortLength)
}

// ShortFromDuration encodes d, saturating at MaxShort.
func ShortFromDuration(d time.Duration) Short {
	if d < 0 {
		return 0
	}
	if d >= MaxShort.Duration() {
		return MaxShort
	}
	return Short(uint64(d) * shortLength / uint64(time.Second))
}
