package sntp

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnixEpoch(t *testing.T) {
	ts := TimestampFromTime(time.Unix(0, 0))
	assert.Equal(t, Timestamp(uint64(unixEraOffset)<<32), ts)
	assert.True(t, ts.Time().Equal(time.Unix(0, 0)))
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, want := range []time.Time{
		time.Date(2024, 3, 10, 12, 30, 15, 250_000_000, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 999_999_000, time.UTC),
		time.Date(2040, 6, 1, 0, 0, 0, 500_000_000, time.UTC), // era 1
	} {
		got := TimestampFromTime(want).Time()
		assert.InDelta(t, 0, got.Sub(want), float64(time.Nanosecond), "round trip of %s gave %s", want, got)
	}
}

func TestShortFormat(t *testing.T) {
	assert.Equal(t, time.Second, Short(0x0001_0000).Duration())
	assert.Equal(t, 500*time.Millisecond, Short(0x0000_8000).Duration())
	assert.Equal(t, Short(0x0001_8000), ShortFromDuration(1500*time.Millisecond))
	assert.Equal(t, Short(0), ShortFromDuration(-time.Second))
}

func TestShortFormatSaturates(t *testing.T) {
	assert.Equal(t, MaxShort, ShortFromDuration(100*time.Hour))
	assert.Equal(t, MaxShort, ShortFromDuration(MaxShort.Duration()))
	assert.Equal(t, Short(0xFFFF_0000), ShortFromDuration(65535*time.Second))
}

func TestEncodeRequest(t *testing.T) {
	xmt := TimestampFromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	encoded := NewRequest(xmt).Encode()

	require.Len(t, encoded, PacketSize)
	assert.Equal(t, byte(0x23), encoded[0], "LI 0, VN 4, mode 3")
	assert.Equal(t, uint64(xmt), binary.BigEndian.Uint64(encoded[40:48]))
	for _, b := range encoded[1:40] {
		assert.Zero(t, b)
	}
}

func TestDecode(t *testing.T) {
	packet := Packet{
		Leap:    LeapAddSecond,
		Version: Version,
		Mode:    ModeServer,
		Fields: Fields{
			Stratum:        2,
			Poll:           6,
			Precision:      -20,
			RootDelay:      ShortFromDuration(15 * time.Millisecond),
			RootDispersion: ShortFromDuration(30 * time.Millisecond),
			ReferenceID:    0x0a000001,
			ReferenceTime:  1,
			OriginTime:     2,
			ReceiveTime:    3,
			TransmitTime:   4,
		},
	}
	encoded := append(packet.Encode(), make([]byte, 20)...) // trailing MAC is ignored

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, packet, decoded)
}

func TestDecodeShortPacket(t *testing.T) {
	_, err := Decode(make([]byte, PacketSize-1))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestKissCode(t *testing.T) {
	packet := Packet{Fields: Fields{ReferenceID: binary.BigEndian.Uint32([]byte("RATE"))}}
	assert.Equal(t, "RATE", packet.KissCode())
}
