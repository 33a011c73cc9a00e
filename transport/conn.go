// Package transport implements the TCP connection to the camera server:
// a timed, non-blocking connect and a length-prefix-driven
// framed receive built on encoding/binary over a plain net.Conn, grounded
// on the dial/deadline idioms in
// _examples/runZeroInc-sockstats/wrap.go and the register-transaction
// Conn abstraction in _examples/google-periph/conn/conn.go.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout is returned by Receive when the reception deadline elapses
// without the read completing; Send sets no deadline and never returns it. Callers distinguish it from
// other transport failures with errors.Is.
var ErrTimeout = errors.New("transport: i/o timeout")

// Conn is a connected TCP session with the camera server. It is not safe
// for concurrent use by multiple goroutines issuing Send/Receive on the
// same direction; the command engine and receiver worker each own one
// direction exclusively.
type Conn struct {
	nc               net.Conn
	receptionTimeout time.Duration
}

// Dial resolves host:port, opens a TCP connection bounded by
// connectTimeout, and enables TCP_NODELAY so small command/ack packets are
// not held up by Nagle coalescing. receptionTimeout is applied to every
// subsequent Receive call via SetReadDeadline, standing in for the
// source's non-blocking-connect-then-SO_RCVTIMEO sequence:
// net.DialTimeout already performs the connect-with-timeout dance that the
// source does manually via select-on-writable.
func Dial(host string, port uint16, connectTimeout, receptionTimeout time.Duration) (*Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	nc, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			nc.Close()
			return nil, fmt.Errorf("transport: set TCP_NODELAY: %w", err)
		}
	}
	return &Conn{nc: nc, receptionTimeout: receptionTimeout}, nil
}

// Wrap builds a Conn around an already-established net.Conn, bypassing
// Dial's resolve-and-connect step. It exists for tests and for fakes
// such as transporttest.Conn that stand in for a real socket.
func Wrap(nc net.Conn, receptionTimeout time.Duration) *Conn {
	return &Conn{nc: nc, receptionTimeout: receptionTimeout}
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// LocalAddr and RemoteAddr expose the socket endpoints, used for logging.
func (c *Conn) LocalAddr() net.Addr  { return c.nc.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Send writes buf in full. It has no timeout of its own: the peer reading
// a small command off a healthy socket is expected to be prompt, and a
// genuinely dead peer surfaces as a write error rather than a hang,
// standing in for the source's SIGPIPE-to-return-code masking.
func (c *Conn) Send(buf []byte) error {
	_, err := c.nc.Write(buf)
	if err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Receive reads exactly one wire packet: a fixed-size generic header
// (headerSize bytes) followed by however many more bytes the header's
// length field at headerLengthOffset (big-endian uint32, the total packet
// length) declares. Every read in the sequence is bound
// by the reception timeout configured at Dial; on expiry Receive returns
// ErrTimeout and the caller's loop continues.
func (c *Conn) Receive(headerSize, headerLengthOffset int) ([]byte, error) {
	header := make([]byte, headerSize)
	if err := c.readFull(header); err != nil {
		return nil, err
	}

	total := binary.BigEndian.Uint32(header[headerLengthOffset : headerLengthOffset+4])
	if int(total) < headerSize {
		return nil, fmt.Errorf("transport: declared packet length %d shorter than header %d", total, headerSize)
	}

	buf := make([]byte, total)
	copy(buf, header)
	if err := c.readFull(buf[headerSize:]); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Conn) readFull(buf []byte) error {
	if c.receptionTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.receptionTimeout)); err != nil {
			return fmt.Errorf("transport: set read deadline: %w", err)
		}
	}
	n := 0
	for n < len(buf) {
		m, err := c.nc.Read(buf[n:])
		n += m
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return ErrTimeout
			}
			return fmt.Errorf("transport: receive: %w", err)
		}
	}
	return nil
}
