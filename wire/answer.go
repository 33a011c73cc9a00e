package wire

// DataType identifies the shape of a data-answer payload. Values live in
// the peer's 2000-2999 range; as with FunctionNumber, the exact assignment
// is this driver's own convention (see DESIGN.md).
type DataType uint16

// Data-answer kinds
const (
	DataTypeStatus            DataType = 2000
	DataTypeCameraParameters  DataType = 2001
	DataTypeSettings          DataType = 2002
	DataTypeAcquisitionStatus DataType = 2003
	DataTypeCommandDone       DataType = 2004
	DataTypeGenericString     DataType = 2005
)

func (d DataType) String() string {
	switch d {
	case DataTypeStatus:
		return "Status"
	case DataTypeCameraParameters:
		return "CameraParameters"
	case DataTypeSettings:
		return "Settings"
	case DataTypeAcquisitionStatus:
		return "AcquisitionStatus"
	case DataTypeCommandDone:
		return "CommandDone"
	case DataTypeGenericString:
		return "GenericString"
	default:
		return "DataType(unknown)"
	}
}

// AnswerHeaderSize is the wire size of the data-answer specific header:
// i32 error_code + u16 data_type + i32 specific_data_length.
const AnswerHeaderSize = 10

// DataAnswer is an inbound response packet carrying typed payload data for
// an earlier command. The payload bytes are kept opaque here; callers
// decode them per DataType with DecodeSettings, DecodeAcquisitionStatus,
// etc.
type DataAnswer struct {
	CameraIdentifier uint8
	ErrorCode        int32
	DataType         DataType
	Payload          []byte
}

// Failed reports whether the peer reported a non-zero error_code.
func (a DataAnswer) Failed() bool {
	return a.ErrorCode != 0
}

func (a DataAnswer) Header() Header {
	return Header{
		PacketLength:     uint32(GenericHeaderSize + AnswerHeaderSize + len(a.Payload)),
		PacketIdentifier: IdentifierAnswer,
		CameraIdentifier: a.CameraIdentifier,
	}
}

// Encode implements Packet.
func (a DataAnswer) Encode() []byte {
	w := &writer{}
	a.Header().encode(w)
	w.putI32(a.ErrorCode)
	w.putU16(uint16(a.DataType))
	w.putI32(int32(len(a.Payload)))
	w.putBytes(a.Payload)
	return w.bytes()
}

func decodeAnswerBody(h Header, c *cursor) (DataAnswer, error) {
	errCode, err := c.i32()
	if err != nil {
		return DataAnswer{}, err
	}
	dataType, err := c.u16()
	if err != nil {
		return DataAnswer{}, err
	}
	dataLen, err := c.i32()
	if err != nil {
		return DataAnswer{}, err
	}
	if dataLen < 0 || int(dataLen) != c.remaining() {
		return DataAnswer{}, decodeErrorf("answer specific_data_length %d does not match remaining %d bytes", dataLen, c.remaining())
	}
	payload, err := c.take(int(dataLen))
	if err != nil {
		return DataAnswer{}, err
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return DataAnswer{
		CameraIdentifier: h.CameraIdentifier,
		ErrorCode:        errCode,
		DataType:         DataType(dataType),
		Payload:          body,
	}, nil
}

// SettingsPayload is the typed shape of a Settings data answer: the
// detector's current exposure, frame count, ROI and acquisition type.
type SettingsPayload struct {
	ExposureTimeMs    float64
	NbImagesToAcquire uint32
	SerialOrigin      uint32
	SerialLength      uint32
	SerialBinning     uint32
	ParallelOrigin    uint32
	ParallelLength    uint32
	ParallelBinning   uint32
	AcquisitionType   uint16
}

// DecodeSettings decodes a Settings data answer's payload.
func DecodeSettings(payload []byte) (SettingsPayload, error) {
	c := newCursor(payload)
	var s SettingsPayload
	var err error
	if s.ExposureTimeMs, err = c.f64(); err != nil {
		return s, err
	}
	if s.NbImagesToAcquire, err = c.u32(); err != nil {
		return s, err
	}
	if s.SerialOrigin, err = c.u32(); err != nil {
		return s, err
	}
	if s.SerialLength, err = c.u32(); err != nil {
		return s, err
	}
	if s.SerialBinning, err = c.u32(); err != nil {
		return s, err
	}
	if s.ParallelOrigin, err = c.u32(); err != nil {
		return s, err
	}
	if s.ParallelLength, err = c.u32(); err != nil {
		return s, err
	}
	if s.ParallelBinning, err = c.u32(); err != nil {
		return s, err
	}
	if s.AcquisitionType, err = c.u16(); err != nil {
		return s, err
	}
	return s, nil
}

// Encode serializes a SettingsPayload the way the peer would send it. Used
// by tests to synthesize fixtures.
func (s SettingsPayload) Encode() []byte {
	w := &writer{}
	w.putF64(s.ExposureTimeMs)
	w.putU32(s.NbImagesToAcquire)
	w.putU32(s.SerialOrigin)
	w.putU32(s.SerialLength)
	w.putU32(s.SerialBinning)
	w.putU32(s.ParallelOrigin)
	w.putU32(s.ParallelLength)
	w.putU32(s.ParallelBinning)
	w.putU16(s.AcquisitionType)
	return w.bytes()
}

// AcquisitionStatusPayload is the typed shape of an AcquisitionStatus data
// answer, returned in response to InquireAcquisitionStatus while polling
// for frame completion.
type AcquisitionStatusPayload struct {
	Completed bool
}

// DecodeAcquisitionStatus decodes an AcquisitionStatus data answer's payload.
func DecodeAcquisitionStatus(payload []byte) (AcquisitionStatusPayload, error) {
	c := newCursor(payload)
	v, err := c.u16()
	if err != nil {
		return AcquisitionStatusPayload{}, err
	}
	return AcquisitionStatusPayload{Completed: v != 0}, nil
}

// Encode serializes an AcquisitionStatusPayload. Used by tests.
func (a AcquisitionStatusPayload) Encode() []byte {
	w := &writer{}
	if a.Completed {
		w.putU16(1)
	} else {
		w.putU16(0)
	}
	return w.bytes()
}

var _ Packet = DataAnswer{}
