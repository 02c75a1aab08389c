package sntp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const Port = "123"       // NTP port number
const Version byte = 4   // NTP version number
const PacketSize = 48    // header without extension fields or MAC
const MaxStratum = 15    // highest stratum of a synchronized server
const mtu = 1300         // receive buffer, large enough for a MAC
const leapMask byte = 3  // two bits
const fieldMask byte = 7 // three bits

type Mode byte

const (
	ModeReserved Mode = iota
	ModeSymmetricActive
	ModeSymmetricPassive
	ModeClient
	ModeServer
	ModeBroadcast
	ModeControl
	ModePrivate
)

type LeapIndicator byte

const (
	LeapNoWarning LeapIndicator = iota
	LeapAddSecond
	LeapDelSecond
	LeapNotInSync /* alarm: clock not synchronized */
)

// Fields that can be read directly from the packet bytes
type Fields struct {
	Stratum        byte      /* stratum */
	Poll           int8      /* poll interval */
	Precision      int8      /* precision */
	RootDelay      Short     /* root delay */
	RootDispersion Short     /* root dispersion */
	ReferenceID    uint32    /* reference ID */
	ReferenceTime  Timestamp /* reference time */
	OriginTime     Timestamp /* origin timestamp */
	ReceiveTime    Timestamp /* receive timestamp */
	TransmitTime   Timestamp /* transmit timestamp */
}

type Packet struct {
	Leap    LeapIndicator
	Version byte
	Mode    Mode
	Fields
}

// NewRequest builds a client mode request carrying xmt as its transmit
// timestamp.
func NewRequest(xmt Timestamp) Packet {
	return Packet{
		Leap:    LeapNoWarning,
		Version: Version,
		Mode:    ModeClient,
		Fields:  Fields{TransmitTime: xmt},
	}
}

func (p Packet) Encode() []byte {
	var buffer bytes.Buffer
	buffer.Grow(PacketSize)
	firstByte := (byte(p.Leap)&leapMask)<<6 | (p.Version&fieldMask)<<3 | byte(p.Mode)&fieldMask
	buffer.WriteByte(firstByte)
	// Writes into a bytes.Buffer cannot fail.
	_ = binary.Write(&buffer, binary.BigEndian, &p.Fields)
	return buffer.Bytes()
}

// Decode parses the fixed header of an NTP packet. Extension fields and
// MACs that follow the header are ignored.
func Decode(encoded []byte) (Packet, error) {
	if len(encoded) < PacketSize {
		return Packet{}, fmt.Errorf("%w: packet is %d bytes, need %d", ErrInvalidResponse, len(encoded), PacketSize)
	}

	reader := bytes.NewReader(encoded[:PacketSize])
	firstByte, _ := reader.ReadByte()

	packet := Packet{
		Leap:    LeapIndicator(firstByte >> 6),
		Version: (firstByte >> 3) & fieldMask,
		Mode:    Mode(firstByte & fieldMask),
	}
	if err := binary.Read(reader, binary.BigEndian, &packet.Fields); err != nil {
		return Packet{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return packet, nil
}

// KissCode returns the ASCII kiss-o'-death code a stratum 0 server places
// in the reference identifier.
func (p Packet) KissCode() string {
	code := make([]byte, 4)
	binary.BigEndian.PutUint32(code, p.ReferenceID)
	return string(bytes.TrimRight(code, "\x00"))
}
