package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// ErrCommandRejected is returned when the peer acknowledges a command
// with accepted=0.
var ErrCommandRejected = errors.New("camera: command rejected by peer")

// ErrAckTimeout and ErrAnswerTimeout report a queue-wait timeout while
// awaiting an acknowledgement or a typed data answer.
var (
	ErrAckTimeout    = errors.New("camera: timed out waiting for acknowledgement")
	ErrAnswerTimeout = errors.New("camera: timed out waiting for data answer")
)

// commandEngine serializes every outbound command on a single mutex, so
// that in-order pairing of send and response is guaranteed by the
// single-command-at-a-time rule, since responses bear no sequence
// number. Grounded on google-periph/devices/lepton/cci.cciConn's
// mu-guarded get/set/run trio, generalized from an I2C register
// transaction to a framed TCP command/ack/answer round trip.
type commandEngine struct {
	mu      sync.Mutex
	conn    commandConn
	demux   *demultiplexer
	metrics *Metrics
	timeout time.Duration
}

// commandConn is the narrow send surface the command engine needs from
// transport.Conn; a separate interface lets this package's tests fake it
// without dragging in the real TCP type.
type commandConn interface {
	Send([]byte) error
}

func newCommandEngine(conn commandConn, demux *demultiplexer, metrics *Metrics, timeout time.Duration) *commandEngine {
	return &commandEngine{conn: conn, demux: demux, metrics: metrics, timeout: timeout}
}

// send issues cmd and returns without waiting for any reply
// (fire-and-forget, used for specific server commands).
func (e *commandEngine) send(cmd wire.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.Send(cmd.Encode())
}

// sendAck issues cmd and waits on the acknowledgement queue. A refused
// acknowledgement (accepted=0) surfaces as ErrCommandRejected, never a
// cache mutation.
func (e *commandEngine) sendAck(cmd wire.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sendAckLocked(cmd)
}

func (e *commandEngine) sendAckLocked(cmd wire.Command) error {
	start := time.Now()
	defer func() {
		e.metrics.observeCommandLatency(cmd.FunctionNumber.String(), time.Since(start).Seconds())
	}()

	if err := e.conn.Send(cmd.Encode()); err != nil {
		return fmt.Errorf("camera: send %s: %w", cmd.FunctionNumber, err)
	}

	q, ok := e.demux.queue(wire.GroupAck)
	if !ok {
		return fmt.Errorf("camera: no ack queue configured")
	}
	p, ok := q.TakeWait(e.timeout)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAckTimeout, cmd.FunctionNumber)
	}
	ack, ok := p.(wire.Ack)
	if !ok {
		return fmt.Errorf("camera: expected Ack in ack queue, got %T", p)
	}
	if !ack.IsAccepted() {
		return fmt.Errorf("%w: %s", ErrCommandRejected, cmd.FunctionNumber)
	}
	return nil
}

// sendAckAnswer issues cmd, waits for acknowledgement, then waits on the
// data-answer group gid for a typed payload decoded by decode.
func sendAckAnswer[T any](e *commandEngine, cmd wire.Command, gid wire.GroupID, decode func([]byte) (T, error)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	if err := e.sendAckLocked(cmd); err != nil {
		return zero, err
	}

	q, ok := e.demux.queue(gid)
	if !ok {
		return zero, fmt.Errorf("camera: no answer queue configured for group %v", gid)
	}
	p, ok := q.TakeWait(e.timeout)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrAnswerTimeout, cmd.FunctionNumber)
	}
	answer, ok := p.(wire.DataAnswer)
	if !ok {
		return zero, fmt.Errorf("camera: expected DataAnswer in answer queue, got %T", p)
	}
	if answer.Failed() {
		return zero, fmt.Errorf("camera: %s: peer reported error_code %d", cmd.FunctionNumber, answer.ErrorCode)
	}
	return decode(answer.Payload)
}
