package wire

import (
	"fmt"
)

// Identifier selects which of the four packet variants a generic header
// introduces. The numeric values are fixed by the peer's protocol and must
// be treated as bit-exact constants, never reassigned.
type Identifier uint8

// Packet variants, per the peer's wire contract.
const (
	IdentifierCommand Identifier = 1
	IdentifierAck     Identifier = 2
	IdentifierAnswer  Identifier = 3
	IdentifierImage   Identifier = 4
)

func (id Identifier) String() string {
	switch id {
	case IdentifierCommand:
		return "command"
	case IdentifierAck:
		return "ack"
	case IdentifierAnswer:
		return "answer"
	case IdentifierImage:
		return "image"
	default:
		return fmt.Sprintf("identifier(%d)", uint8(id))
	}
}

// ServerCameraID is the reserved camera_identifier value meaning
// "server-level", as opposed to a specific camera (1..N).
const ServerCameraID uint8 = 0

// GenericHeaderSize is the wire size of Header: u32 + u8 + u8.
const GenericHeaderSize = 6

// Header is the 6 byte prefix shared by every packet.
type Header struct {
	PacketLength     uint32
	PacketIdentifier Identifier
	CameraIdentifier uint8
}

// DecodeError reports a malformed packet: bad length, unknown identifier
// or data type, or an unexpected camera identifier. It is never raised for
// a transport failure.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "wire: decode error: " + e.Reason
}

func decodeErrorf(format string, args ...interface{}) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// decodeHeader reads the generic header from c without consuming anything
// beyond its 6 bytes.
func decodeHeader(c *cursor) (Header, error) {
	var h Header
	length, err := c.u32()
	if err != nil {
		return h, err
	}
	id, err := c.u8()
	if err != nil {
		return h, err
	}
	cam, err := c.u8()
	if err != nil {
		return h, err
	}
	h.PacketLength = length
	h.PacketIdentifier = Identifier(id)
	h.CameraIdentifier = cam
	return h, nil
}

func (h Header) encode(w *writer) {
	w.putU32(h.PacketLength)
	w.putU8(uint8(h.PacketIdentifier))
	w.putU8(h.CameraIdentifier)
}

// checkCameraIdentifier validates the invariant that camera_identifier
// equals either the configured identifier or the reserved server value.
func checkCameraIdentifier(got, configured uint8) error {
	if got != ServerCameraID && got != configured {
		return decodeErrorf("unexpected camera identifier %d (configured %d)", got, configured)
	}
	return nil
}

// Packet is any of the four decoded wire variants.
type Packet interface {
	// Header returns the generic header that prefixed this packet on the wire.
	Header() Header
	// Encode serializes the packet, header included, in network byte order.
	Encode() []byte
}

// Decode reads exactly one complete packet from buf, which must hold
// precisely PacketLength bytes as announced by the first 4 bytes read
// ahead of time by the transport layer (see transport.Conn.Receive).
// configuredCameraID is the driver's own camera identifier, used to
// validate the camera_identifier invariant.
func Decode(buf []byte, configuredCameraID uint8) (Packet, error) {
	c := newCursor(buf)
	h, err := decodeHeader(c)
	if err != nil {
		return nil, err
	}
	if int(h.PacketLength) != len(buf) {
		return nil, decodeErrorf("packet_length %d does not match frame size %d", h.PacketLength, len(buf))
	}
	if err := checkCameraIdentifier(h.CameraIdentifier, configuredCameraID); err != nil {
		return nil, err
	}
	switch h.PacketIdentifier {
	case IdentifierCommand:
		return decodeCommandBody(h, c)
	case IdentifierAck:
		return decodeAckBody(h, c)
	case IdentifierAnswer:
		return decodeAnswerBody(h, c)
	case IdentifierImage:
		return decodeImageBody(h, c)
	default:
		return nil, decodeErrorf("unknown packet identifier %d", uint8(h.PacketIdentifier))
	}
}
