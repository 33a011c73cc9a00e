// Package wire implements the SI-class camera controller's binary TCP/IP
// command/response protocol: a generic header shared by every packet,
// four typed variants built on top of it, and the codec that moves bytes
// between the two.
//
// All multi-byte scalars are big-endian. Decoding is staged: decodeHeader
// reads the 6-byte generic header, its Identifier selects a variant, and a
// variant-specific decoder reads the next header level and the payload.
// A data answer's payload stays opaque bytes; callers decode it for its
// DataType with DecodeSettings, DecodeAcquisitionStatus, etc. Every read is bounded by
// the length the peer declared, never by how much the buffer happens to
// contain.
package wire
