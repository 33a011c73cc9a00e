package wire

// GroupID is the packet demultiplexer's routing key: a fixed sentinel for
// acknowledgements and images, or the data_type for data answers. Groups
// are fixed at startup; GroupID is never synthesized for an unknown kind.
type GroupID uint16

// Sentinel groups. These must not collide with any DataType value, so they
// are chosen outside the peer's 2000-2999 data-type range.
const (
	GroupAck   GroupID = 1
	GroupImage GroupID = 2
)

// GroupOf returns the routing key a packet belongs to. Command packets
// have no group: they are never enqueued by the receiver, only sent.
func GroupOf(p Packet) (GroupID, bool) {
	switch v := p.(type) {
	case Ack:
		return GroupAck, true
	case Image:
		return GroupImage, true
	case DataAnswer:
		return GroupID(v.DataType), true
	default:
		return 0, false
	}
}
