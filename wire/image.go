package wire

// ImageHeaderSize is the wire size of the image-specific header: four u32
// fields (image identifier, sequence number, byte offset into the frame,
// total frame length) plus a u32 chunk length.
const ImageHeaderSize = 20

// Image is one tile of a frame. Successive image packets for the same
// frame share ImageIdentifier; SequenceNumber orders them while
// Offset/TotalLength let a receiver reassemble tiles that arrive out of
// order.
type Image struct {
	CameraIdentifier uint8
	ImageIdentifier  uint32
	SequenceNumber   uint32
	Offset           uint32
	TotalLength      uint32
	Payload          []byte
}

func (img Image) Header() Header {
	return Header{
		PacketLength:     uint32(GenericHeaderSize + ImageHeaderSize + len(img.Payload)),
		PacketIdentifier: IdentifierImage,
		CameraIdentifier: img.CameraIdentifier,
	}
}

// Encode implements Packet.
func (img Image) Encode() []byte {
	w := &writer{}
	img.Header().encode(w)
	w.putU32(img.ImageIdentifier)
	w.putU32(img.SequenceNumber)
	w.putU32(img.Offset)
	w.putU32(img.TotalLength)
	w.putU32(uint32(len(img.Payload)))
	w.putBytes(img.Payload)
	return w.bytes()
}

func decodeImageBody(h Header, c *cursor) (Image, error) {
	imageID, err := c.u32()
	if err != nil {
		return Image{}, err
	}
	seq, err := c.u32()
	if err != nil {
		return Image{}, err
	}
	offset, err := c.u32()
	if err != nil {
		return Image{}, err
	}
	totalLength, err := c.u32()
	if err != nil {
		return Image{}, err
	}
	chunkLength, err := c.u32()
	if err != nil {
		return Image{}, err
	}
	if int(chunkLength) != c.remaining() {
		return Image{}, decodeErrorf("image chunk length %d does not match remaining %d bytes", chunkLength, c.remaining())
	}
	payload, err := c.take(int(chunkLength))
	if err != nil {
		return Image{}, err
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return Image{
		CameraIdentifier: h.CameraIdentifier,
		ImageIdentifier:  imageID,
		SequenceNumber:   seq,
		Offset:           offset,
		TotalLength:      totalLength,
		Payload:          body,
	}, nil
}

var _ Packet = Image{}
