package wire

import (
	"reflect"
	"testing"
)

func TestCommandRoundTrip(t *testing.T) {
	cmd := NewCommand(1, FunctionSetExposureTime, []byte{0x00, 0x00, 0x03, 0xe8})
	buf := cmd.Encode()

	p, err := Decode(buf, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := p.(Command)
	if !ok {
		t.Fatalf("Decode returned %T, want Command", p)
	}
	if got.FunctionNumber != cmd.FunctionNumber {
		t.Errorf("FunctionNumber = %v, want %v", got.FunctionNumber, cmd.FunctionNumber)
	}
	if string(got.Payload) != string(cmd.Payload) {
		t.Errorf("Payload = %v, want %v", got.Payload, cmd.Payload)
	}
	if got.Header().PacketLength != uint32(len(buf)) {
		t.Errorf("PacketLength = %d, want %d", got.Header().PacketLength, len(buf))
	}
}

func TestAckRoundTrip(t *testing.T) {
	for _, accepted := range []uint16{0, 1, 7} {
		a := Ack{CameraIdentifier: 1, Accepted: accepted}
		p, err := Decode(a.Encode(), 1)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		got := p.(Ack)
		if got.Accepted != accepted {
			t.Errorf("Accepted = %d, want %d", got.Accepted, accepted)
		}
		if got.IsAccepted() != (accepted != 0) {
			t.Errorf("IsAccepted() = %v", got.IsAccepted())
		}
	}
}

func TestDataAnswerRoundTrip(t *testing.T) {
	settings := SettingsPayload{
		ExposureTimeMs:    1500.5,
		NbImagesToAcquire: 3,
		SerialOrigin:      0,
		SerialLength:      2048,
		SerialBinning:     1,
		ParallelOrigin:    0,
		ParallelLength:    2048,
		ParallelBinning:   1,
		AcquisitionType:   0,
	}
	ans := DataAnswer{CameraIdentifier: 1, ErrorCode: 0, DataType: DataTypeSettings, Payload: settings.Encode()}
	p, err := Decode(ans.Encode(), 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := p.(DataAnswer)
	if got.DataType != DataTypeSettings {
		t.Fatalf("DataType = %v", got.DataType)
	}
	decoded, err := DecodeSettings(got.Payload)
	if err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if decoded != settings {
		t.Errorf("DecodeSettings = %+v, want %+v", decoded, settings)
	}
}

func TestImageRoundTrip(t *testing.T) {
	img := Image{
		CameraIdentifier: 1,
		ImageIdentifier:  42,
		SequenceNumber:   2,
		Offset:           4096,
		TotalLength:      8192,
		Payload:          []byte{1, 2, 3, 4},
	}
	p, err := Decode(img.Encode(), 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := p.(Image)
	if !reflect.DeepEqual(got, img) {
		t.Errorf("got %+v, want %+v", got, img)
	}
}

func TestDecodeRejectsUnexpectedCameraIdentifier(t *testing.T) {
	a := Ack{CameraIdentifier: 5, Accepted: 1}
	if _, err := Decode(a.Encode(), 1); err == nil {
		t.Fatal("expected decode error for unexpected camera identifier")
	}
}

func TestDecodeAllowsServerCameraIdentifier(t *testing.T) {
	a := Ack{CameraIdentifier: ServerCameraID, Accepted: 1}
	if _, err := Decode(a.Encode(), 1); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	cmd := NewCommand(1, FunctionGetStatus, []byte{1, 2, 3, 4})
	buf := cmd.Encode()
	if _, err := Decode(buf[:len(buf)-2], 1); err == nil {
		t.Fatal("expected error decoding truncated buffer")
	}
}

func TestDecodeRejectsUnknownIdentifier(t *testing.T) {
	buf := []byte{0, 0, 0, 6, 99, 1}
	if _, err := Decode(buf, 1); err == nil {
		t.Fatal("expected error for unknown packet identifier")
	}
}

func TestGroupOf(t *testing.T) {
	cases := []struct {
		p     Packet
		id    GroupID
		grupd bool
	}{
		{Ack{}, GroupAck, true},
		{Image{}, GroupImage, true},
		{DataAnswer{DataType: DataTypeStatus}, GroupID(DataTypeStatus), true},
		{Command{}, 0, false},
	}
	for _, c := range cases {
		id, ok := GroupOf(c.p)
		if ok != c.grupd || (ok && id != c.id) {
			t.Errorf("GroupOf(%T) = (%v, %v), want (%v, %v)", c.p, id, ok, c.id, c.grupd)
		}
	}
}
