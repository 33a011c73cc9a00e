// Package spectralinstrument is the root of a client-side driver for an
// SI-class scientific CCD detector's TCP/IP command protocol.
//
// It is organized as a small stack of packages, each owning one concern:
//
// → wire/ encodes and decodes the framed binary packets the detector
// server and this driver exchange: commands, acknowledgements, typed
// data answers, and image tiles.
//
// → transport/ dials the TCP connection and frames inbound/outbound
// bytes using the header length field wire/ decodes against.
//
// → queue/ is a small generic, protected FIFO used to hand packets from
// the receiver worker to whichever goroutine is waiting for them.
//
// → camera/ is the driver facade: a packet demultiplexer, a serializing
// command engine, a periodic status/settings updater, and an
// acquisition state machine, behind a single Camera type.
//
// → cmd/ contains two small command-line front-ends built on camera/:
// spectral-info prints detector identity and status, spectral-acquire
// runs an acquisition and saves frames to disk.
//
// This package itself holds no code; it exists so the module has a
// documented entry point.
package spectralinstrument
