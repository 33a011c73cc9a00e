package camera

import (
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soleil-ica/go-spectralinstrument/queue"
	"github.com/soleil-ica/go-spectralinstrument/transport"
	"github.com/soleil-ica/go-spectralinstrument/transport/transporttest"
	"github.com/soleil-ica/go-spectralinstrument/wire"
)

func newTestCameraForReceiver(t *testing.T, fake *transporttest.Conn) *Camera {
	t.Helper()
	return &Camera{
		cfg:     Config{CameraIdentifier: 1, ReceptionTimeoutSec: 1},
		logger:  log.Default(),
		cache:   &paramCache{},
		metrics: NewMetrics(prometheus.NewRegistry()),
		conn:    transport.Wrap(fake, 20*time.Millisecond),
		demux:   newDemultiplexer(),
	}
}

func encodeAck(cameraID uint8, accepted uint16) []byte {
	return wire.Ack{CameraIdentifier: cameraID, Accepted: accepted}.Encode()
}

func TestReceiverLoopSurvivesReceptionTimeout(t *testing.T) {
	fake := transporttest.NewConn()
	fake.QueueError(transporttest.ErrFakeTimeout)
	fake.QueueRead(encodeAck(1, 1))

	c := newTestCameraForReceiver(t, fake)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.receiverLoop(ctx) }()

	q, _ := c.demux.queue(wire.GroupAck)
	pkt, ok := q.TakeWait(time.Second)
	if !ok {
		t.Fatal("ack was not routed after a reception timeout")
	}
	if ack, ok := pkt.(wire.Ack); !ok || !ack.IsAccepted() {
		t.Fatalf("routed packet = %#v, want accepted Ack", pkt)
	}
	if c.cache.status() == StatusFault {
		t.Error("status forced to Fault by a non-fatal reception timeout")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("receiverLoop returned %v after cancellation, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receiverLoop did not exit after context cancellation")
	}
}

func TestReceiverLoopDropsPacketWithUnknownGroup(t *testing.T) {
	fake := transporttest.NewConn()
	// An Image packet routed to a demultiplexer with no image group
	// configured should be dropped, not crash the loop.
	img := wire.Image{CameraIdentifier: 1, ImageIdentifier: 9, Offset: 0, Payload: []byte{1, 2}}
	fake.QueueRead(img.Encode())
	fake.QueueError(transporttest.ErrFakeTimeout)

	c := newTestCameraForReceiver(t, fake)
	c.demux = &demultiplexer{groups: map[wire.GroupID]*queue.Queue[wire.Packet]{}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.receiverLoop(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
}
