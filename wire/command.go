package wire

// FunctionNumber identifies the kind of an outbound command. Values live in
// the peer's 1000-1999 range; the exact assignment below is this driver's
// own convention (original_source does not reproduce the peer's table, see
// DESIGN.md), kept internally consistent across encode and decode.
type FunctionNumber uint16

// Command kinds
const (
	FunctionGetStatus               FunctionNumber = 1000
	FunctionGetCameraParameters     FunctionNumber = 1001
	FunctionGetSettings             FunctionNumber = 1002
	FunctionSetExposureTime         FunctionNumber = 1003
	FunctionSetAcquisitionType      FunctionNumber = 1004
	FunctionSetAcquisitionMode      FunctionNumber = 1005
	FunctionSetFormatParameters     FunctionNumber = 1006
	FunctionSetRoi                  FunctionNumber = 1007
	FunctionSetCoolingValue         FunctionNumber = 1008
	FunctionSetReadoutSpeed         FunctionNumber = 1009
	FunctionConfigurePackets        FunctionNumber = 1010
	FunctionAcquire                 FunctionNumber = 1011
	FunctionTerminateAcquisition    FunctionNumber = 1012
	FunctionRetrieveImage           FunctionNumber = 1013
	FunctionInquireAcquisitionStatus FunctionNumber = 1014
	FunctionSetSingleParameter      FunctionNumber = 1015
)

func (f FunctionNumber) String() string {
	switch f {
	case FunctionGetStatus:
		return "GetStatus"
	case FunctionGetCameraParameters:
		return "GetCameraParameters"
	case FunctionGetSettings:
		return "GetSettings"
	case FunctionSetExposureTime:
		return "SetExposureTime"
	case FunctionSetAcquisitionType:
		return "SetAcquisitionType"
	case FunctionSetAcquisitionMode:
		return "SetAcquisitionMode"
	case FunctionSetFormatParameters:
		return "SetFormatParameters"
	case FunctionSetRoi:
		return "SetRoi"
	case FunctionSetCoolingValue:
		return "SetCoolingValue"
	case FunctionSetReadoutSpeed:
		return "SetReadoutSpeed"
	case FunctionConfigurePackets:
		return "ConfigurePackets"
	case FunctionAcquire:
		return "Acquire"
	case FunctionTerminateAcquisition:
		return "TerminateAcquisition"
	case FunctionRetrieveImage:
		return "RetrieveImage"
	case FunctionInquireAcquisitionStatus:
		return "InquireAcquisitionStatus"
	case FunctionSetSingleParameter:
		return "SetSingleParameter"
	default:
		return "FunctionNumber(unknown)"
	}
}

// CommandHeaderSize is the wire size of the command-specific header:
// u16 function_number + u16 specific_data_length.
const CommandHeaderSize = 4

// Command is an outbound (egress) command packet: generic header, command
// header, and an opaque payload whose shape depends on FunctionNumber.
type Command struct {
	CameraIdentifier uint8
	FunctionNumber   FunctionNumber
	Payload          []byte
}

// NewCommand builds a command addressed to cameraID (pass ServerCameraID
// for server-level commands).
func NewCommand(cameraID uint8, fn FunctionNumber, payload []byte) Command {
	return Command{CameraIdentifier: cameraID, FunctionNumber: fn, Payload: payload}
}

func (c Command) Header() Header {
	return Header{
		PacketLength:     uint32(GenericHeaderSize + CommandHeaderSize + len(c.Payload)),
		PacketIdentifier: IdentifierCommand,
		CameraIdentifier: c.CameraIdentifier,
	}
}

// Encode implements Packet.
func (c Command) Encode() []byte {
	w := &writer{}
	c.Header().encode(w)
	w.putU16(uint16(c.FunctionNumber))
	w.putU16(uint16(len(c.Payload)))
	w.putBytes(c.Payload)
	return w.bytes()
}

func decodeCommandBody(h Header, c *cursor) (Command, error) {
	fn, err := c.u16()
	if err != nil {
		return Command{}, err
	}
	dataLen, err := c.u16()
	if err != nil {
		return Command{}, err
	}
	if int(dataLen) != c.remaining() {
		return Command{}, decodeErrorf("command specific_data_length %d does not match remaining %d bytes", dataLen, c.remaining())
	}
	payload, err := c.take(int(dataLen))
	if err != nil {
		return Command{}, err
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return Command{
		CameraIdentifier: h.CameraIdentifier,
		FunctionNumber:   FunctionNumber(fn),
		Payload:          body,
	}, nil
}

var _ Packet = Command{}
