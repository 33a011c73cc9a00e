package wire

// AckBodySize is the wire size of the acknowledge-specific body: u16 accepted.
const AckBodySize = 2

// Ack is the peer's immediate accept/reject reply to a command, independent
// of any later data answer.
type Ack struct {
	CameraIdentifier uint8
	Accepted         uint16
}

// IsAccepted reports whether the peer accepted the command.
func (a Ack) IsAccepted() bool {
	return a.Accepted != 0
}

func (a Ack) Header() Header {
	return Header{
		PacketLength:     uint32(GenericHeaderSize + AckBodySize),
		PacketIdentifier: IdentifierAck,
		CameraIdentifier: a.CameraIdentifier,
	}
}

// Encode implements Packet. Acks are never sent by this driver (only
// received), but Encode is kept for symmetry and for tests.
func (a Ack) Encode() []byte {
	w := &writer{}
	a.Header().encode(w)
	w.putU16(a.Accepted)
	return w.bytes()
}

func decodeAckBody(h Header, c *cursor) (Ack, error) {
	accepted, err := c.u16()
	if err != nil {
		return Ack{}, err
	}
	if c.remaining() != 0 {
		return Ack{}, decodeErrorf("ack packet has %d trailing bytes", c.remaining())
	}
	return Ack{CameraIdentifier: h.CameraIdentifier, Accepted: accepted}, nil
}

var _ Packet = Ack{}
