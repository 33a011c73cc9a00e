package transport

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/soleil-ica/go-spectralinstrument/transport/transporttest"
)

// newTestConn wires a fake net.Conn into a *Conn the same way Dial would,
// without touching the network.
func newTestConn(nc net.Conn, receptionTimeout time.Duration) *Conn {
	return &Conn{nc: nc, receptionTimeout: receptionTimeout}
}

func TestReceiveReassemblesHeaderAndBody(t *testing.T) {
	fake := transporttest.NewConn()
	header := make([]byte, 6)
	binary.BigEndian.PutUint32(header[0:4], 10)
	header[4] = 4 // identifier
	header[5] = 1 // camera id
	body := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	fake.QueueRead(header)
	fake.QueueRead(body)

	c := newTestConn(fake, time.Second)
	buf, err := c.Receive(6, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(buf) != 10 {
		t.Fatalf("len(buf) = %d, want 10", len(buf))
	}
	if string(buf[6:]) != string(body) {
		t.Errorf("body = %v, want %v", buf[6:], body)
	}
}

func TestReceiveAssemblesShortReads(t *testing.T) {
	fake := transporttest.NewConn()
	header := make([]byte, 6)
	binary.BigEndian.PutUint32(header[0:4], 9)
	header[4], header[5] = 2, 1

	// Feed the header itself split across two reads.
	fake.QueueRead(header[:3])
	fake.QueueRead(header[3:])
	fake.QueueRead([]byte{1, 2, 3})

	c := newTestConn(fake, time.Second)
	buf, err := c.Receive(6, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(buf) != 9 {
		t.Fatalf("len(buf) = %d, want 9", len(buf))
	}
}

func TestReceiveTimesOut(t *testing.T) {
	fake := transporttest.NewConn()
	fake.QueueError(transporttest.ErrFakeTimeout)

	c := newTestConn(fake, 10*time.Millisecond)
	_, err := c.Receive(6, 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive error = %v, want ErrTimeout", err)
	}
}

func TestReceiveRejectsShortDeclaredLength(t *testing.T) {
	fake := transporttest.NewConn()
	header := make([]byte, 6)
	binary.BigEndian.PutUint32(header[0:4], 3) // shorter than header itself
	fake.QueueRead(header)

	c := newTestConn(fake, time.Second)
	if _, err := c.Receive(6, 0); err == nil {
		t.Fatal("expected error for declared length shorter than header")
	}
}

func TestSendWritesFullBuffer(t *testing.T) {
	fake := transporttest.NewConn()
	c := newTestConn(fake, time.Second)
	payload := []byte{1, 2, 3, 4, 5}
	if err := c.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(fake.Sent) != string(payload) {
		t.Errorf("sent = %v, want %v", fake.Sent, payload)
	}
}
