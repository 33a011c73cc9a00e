package camera

import (
	"context"
	"errors"

	"github.com/soleil-ica/go-spectralinstrument/queue"
	"github.com/soleil-ica/go-spectralinstrument/transport"
	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// demultiplexer maps a wire.GroupID to the protected queue that group's
// packets are routed into. Groups are fixed at newDemultiplexer time, one
// per data-type the driver consumes plus the two sentinels; a packet
// whose group has no entry is dropped with a diagnostic, never causing a
// new group to spring into existence.
type demultiplexer struct {
	groups map[wire.GroupID]*queue.Queue[wire.Packet]
}

func newDemultiplexer() *demultiplexer {
	groups := map[wire.GroupID]*queue.Queue[wire.Packet]{
		wire.GroupAck:                                queue.New[wire.Packet](),
		wire.GroupImage:                               queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeStatus):            queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeCameraParameters):  queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeSettings):          queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeAcquisitionStatus): queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeCommandDone):       queue.New[wire.Packet](),
		wire.GroupID(wire.DataTypeGenericString):     queue.New[wire.Packet](),
	}
	return &demultiplexer{groups: groups}
}

// route dispatches a decoded packet into its group's queue. A packet
// with no derivable group (a Command, never received from the peer) or
// one naming a group this demultiplexer was never configured for is
// dropped; the caller is expected to log the diagnostic.
func (d *demultiplexer) route(p wire.Packet) (wire.GroupID, bool) {
	gid, ok := wire.GroupOf(p)
	if !ok {
		return 0, false
	}
	q, ok := d.groups[gid]
	if !ok {
		return gid, false
	}
	q.Put(p)
	return gid, true
}

func (d *demultiplexer) queue(gid wire.GroupID) (*queue.Queue[wire.Packet], bool) {
	q, ok := d.groups[gid]
	return q, ok
}

// receiverLoop is the single-threaded worker that receives one packet,
// decodes it, and routes it into the demultiplexer, repeat. It
// terminates when ctx is cancelled, the connection returns a non-timeout
// error, or a packet fails to decode; reception timeouts are logged and
// non-fatal.
func (c *Camera) receiverLoop(ctx context.Context) error {
	logger := c.logger.With("worker", "receiver")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		buf, err := c.conn.Receive(wire.GenericHeaderSize, 0)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				logger.Debug("reception timeout")
				c.reportEvent(newEvent(LevelInfo, "camera: reception timeout"))
				continue
			}
			logger.Error("receive failed", "err", err)
			c.reportEvent(newEvent(LevelError, "camera: receive failed: %v", err))
			c.cache.forceStatus(StatusFault)
			return err
		}

		pkt, err := wire.Decode(buf, c.cfg.CameraIdentifier)
		if err != nil {
			logger.Error("decode failed", "err", err)
			c.metrics.incDecodeErrors()
			c.reportEvent(newEvent(LevelError, "camera: decode failed: %v", err))
			c.cache.forceStatus(StatusFault)
			return err
		}

		gid, routed := c.demux.route(pkt)
		if !routed {
			logger.Warn("dropped packet with no matching group", "group", gid)
			continue
		}
		if q, ok := c.demux.queue(gid); ok {
			c.metrics.setQueueDepth(groupLabel(gid), q.Len())
		}
	}
}

func groupLabel(gid wire.GroupID) string {
	switch gid {
	case wire.GroupAck:
		return "ack"
	case wire.GroupImage:
		return "image"
	default:
		return wire.DataType(gid).String()
	}
}
