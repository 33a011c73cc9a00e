package camera

import (
	"testing"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

func settingsFixture() wire.SettingsPayload {
	return wire.SettingsPayload{
		ExposureTimeMs:    100.5,
		NbImagesToAcquire: 3,
		SerialOrigin:      0,
		SerialLength:      2048,
		SerialBinning:     1,
		ParallelOrigin:    0,
		ParallelLength:    2048,
		ParallelBinning:   1,
		AcquisitionType:   uint16(AcquisitionLight),
	}
}

func TestApplyCameraParametersParsesKnownFields(t *testing.T) {
	blob := []byte(
		"factory.instrument_model = \"SGL II\"\n" +
			"factory.instrument_serial_number = \"SN-1234\"\n" +
			"factory.instrument_serial_size = 2048\n" +
			"factory.instrument_parallel_size = 2048\n" +
			"miscellaneous.bits_per_pixel = 16\n" +
			"factory.instrument_max_binning = 4\n" +
			"factory.instrument_detector_type = \"CCD\"\n" +
			"\n",
	)

	c := &paramCache{}
	if err := c.applyCameraParameters(blob); err != nil {
		t.Fatalf("applyCameraParameters: %v", err)
	}

	snap := c.snapshot()
	if snap.Model != "SGL II" {
		t.Errorf("Model = %q, want %q", snap.Model, "SGL II")
	}
	if snap.SerialNumber != "SN-1234" {
		t.Errorf("SerialNumber = %q, want %q", snap.SerialNumber, "SN-1234")
	}
	if snap.WidthMax != 2048 || snap.HeightMax != 2048 {
		t.Errorf("WidthMax/HeightMax = %d/%d, want 2048/2048", snap.WidthMax, snap.HeightMax)
	}
	if snap.PixelDepth != 16 {
		t.Errorf("PixelDepth = %d, want 16", snap.PixelDepth)
	}
	if snap.MaxBinning != 4 {
		t.Errorf("MaxBinning = %d, want 4", snap.MaxBinning)
	}
	if snap.DetectorType != "CCD" {
		t.Errorf("DetectorType = %q, want %q", snap.DetectorType, "CCD")
	}
}

func TestApplyCameraParametersIgnoresUnparsableLines(t *testing.T) {
	c := &paramCache{}
	if err := c.applyCameraParameters([]byte("not a key value line\n\n")); err != nil {
		t.Fatalf("applyCameraParameters: %v", err)
	}
	if snap := c.snapshot(); snap.Model != "" {
		t.Errorf("Model = %q, want empty", snap.Model)
	}
}

func TestApplyStatusTruthTable(t *testing.T) {
	cases := []struct {
		name  string
		flags uint32
		want  Status
	}{
		{"disconnected", 0, StatusFault},
		{"connected but config error", flagCameraConnected | flagConfigurationError, StatusFault},
		{"connected and acquiring", flagCameraConnected | flagAcquisitionInProgress, StatusExposure},
		{"connected and idle", flagCameraConnected, StatusReady},
		{"config error wins over acquiring", flagCameraConnected | flagConfigurationError | flagAcquisitionInProgress, StatusFault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &paramCache{}
			c.applyStatus(tc.flags)
			if got := c.status(); got != tc.want {
				t.Errorf("status() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestApplySettingsPopulatesSnapshot(t *testing.T) {
	c := &paramCache{}
	c.applySettings(settingsFixture())

	snap := c.snapshot()
	if snap.ExposureTimeMs != 100.5 {
		t.Errorf("ExposureTimeMs = %v, want 100.5", snap.ExposureTimeMs)
	}
	if snap.NbImagesToAcquire != 3 {
		t.Errorf("NbImagesToAcquire = %d, want 3", snap.NbImagesToAcquire)
	}
	if snap.AcquisitionType != AcquisitionLight {
		t.Errorf("AcquisitionType = %v, want AcquisitionLight", snap.AcquisitionType)
	}
}

func TestForceStatusOverridesLatestStatus(t *testing.T) {
	c := &paramCache{}
	c.applyStatus(flagCameraConnected)
	if got := c.status(); got != StatusReady {
		t.Fatalf("status() = %s, want Ready", got)
	}
	c.forceStatus(StatusExposure)
	if got := c.status(); got != StatusExposure {
		t.Errorf("status() = %s, want Exposure", got)
	}
}
