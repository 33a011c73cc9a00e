package camera

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// fakeConn is a minimal commandConn recording every encoded command sent.
type fakeConn struct {
	sent    [][]byte
	sendErr error
}

func (f *fakeConn) Send(b []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func newTestEngine(t *testing.T) (*commandEngine, *fakeConn, *demultiplexer) {
	t.Helper()
	conn := &fakeConn{}
	demux := newDemultiplexer()
	metrics := NewMetrics(prometheus.NewRegistry())
	engine := newCommandEngine(conn, demux, metrics, 50*time.Millisecond)
	return engine, conn, demux
}

func TestSendAckAcceptedReturnsNil(t *testing.T) {
	engine, _, demux := newTestEngine(t)
	q, _ := demux.queue(wire.GroupAck)
	q.Put(wire.Ack{CameraIdentifier: 1, Accepted: 1})

	cmd := wire.NewCommand(1, wire.FunctionGetStatus, nil)
	if err := engine.sendAck(cmd); err != nil {
		t.Fatalf("sendAck: %v", err)
	}
}

func TestSendAckRejectedReturnsErrCommandRejected(t *testing.T) {
	engine, _, demux := newTestEngine(t)
	q, _ := demux.queue(wire.GroupAck)
	q.Put(wire.Ack{CameraIdentifier: 1, Accepted: 0})

	cmd := wire.NewCommand(1, wire.FunctionAcquire, nil)
	err := engine.sendAck(cmd)
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("sendAck error = %v, want ErrCommandRejected", err)
	}
}

func TestSendAckTimesOutWithoutAck(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	cmd := wire.NewCommand(1, wire.FunctionGetStatus, nil)
	err := engine.sendAck(cmd)
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("sendAck error = %v, want ErrAckTimeout", err)
	}
}

func TestSendAckAnswerDecodesTypedPayload(t *testing.T) {
	engine, _, demux := newTestEngine(t)
	ackQ, _ := demux.queue(wire.GroupAck)
	ackQ.Put(wire.Ack{CameraIdentifier: 1, Accepted: 1})

	payload := settingsFixture().Encode()
	answerQ, _ := demux.queue(wire.GroupID(wire.DataTypeSettings))
	answerQ.Put(wire.DataAnswer{CameraIdentifier: 1, DataType: wire.DataTypeSettings, Payload: payload})

	cmd := wire.NewCommand(1, wire.FunctionGetSettings, nil)
	got, err := sendAckAnswer(engine, cmd, wire.GroupID(wire.DataTypeSettings), wire.DecodeSettings)
	if err != nil {
		t.Fatalf("sendAckAnswer: %v", err)
	}
	if got.ExposureTimeMs != 100.5 {
		t.Errorf("ExposureTimeMs = %v, want 100.5", got.ExposureTimeMs)
	}
}

func TestSendAckAnswerPropagatesErrorCode(t *testing.T) {
	engine, _, demux := newTestEngine(t)
	ackQ, _ := demux.queue(wire.GroupAck)
	ackQ.Put(wire.Ack{CameraIdentifier: 1, Accepted: 1})

	answerQ, _ := demux.queue(wire.GroupID(wire.DataTypeSettings))
	answerQ.Put(wire.DataAnswer{CameraIdentifier: 1, DataType: wire.DataTypeSettings, ErrorCode: 7})

	cmd := wire.NewCommand(1, wire.FunctionGetSettings, nil)
	if _, err := sendAckAnswer(engine, cmd, wire.GroupID(wire.DataTypeSettings), wire.DecodeSettings); err == nil {
		t.Fatal("expected error for non-zero error_code")
	}
}
