package camera

import (
	"strconv"
	"strings"
	"sync"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// AcquisitionType mirrors the peer's acquisition_type enumeration.
type AcquisitionType uint16

// AcquisitionType values.
const (
	AcquisitionLight     AcquisitionType = 0
	AcquisitionDark      AcquisitionType = 1
	AcquisitionTriggered AcquisitionType = 2
	AcquisitionTest      AcquisitionType = 3
)

// Status is the driver's externally visible state.
type Status int

// Status values exposed through the host-facing contract.
const (
	StatusInit Status = iota
	StatusReady
	StatusExposure
	StatusReadout
	StatusLatency
	StatusFault
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "Init"
	case StatusReady:
		return "Ready"
	case StatusExposure:
		return "Exposure"
	case StatusReadout:
		return "Readout"
	case StatusLatency:
		return "Latency"
	case StatusFault:
		return "Fault"
	default:
		return "Status(unknown)"
	}
}

// Server status flag bits.
const (
	flagCameraConnected       uint32 = 1 << 0
	flagConfigurationError    uint32 = 1 << 1
	flagAcquisitionInProgress uint32 = 1 << 2
)

// paramCache holds the last-known detector identity and settings,
// readable by any goroutine; writers hold the command engine's mutex for
// the whole ack-then-answer round trip that produces a new snapshot, and
// additionally take mu for the actual field assignment so a reader never
// observes a half-written update.
type paramCache struct {
	mu sync.RWMutex

	model              string
	detectorType       string
	serialNumber       string
	widthMax           uint32
	heightMax          uint32
	pixelDepth         uint32
	maxBinning         uint32
	exposureTimeMs     float64
	nbImagesToAcquire  uint32
	acquisitionType    AcquisitionType
	serialOrigin       uint32
	serialLength       uint32
	serialBinning      uint32
	parallelOrigin     uint32
	parallelLength     uint32
	parallelBinning    uint32
	coolingValue       uint32
	ccdTemperature     float64
	readoutSpeed       uint16
	latestStatus       Status
}

// Snapshot is a coherent read of every parameter-cache field at one
// instant, returned by paramCache.snapshot. Callers that need a coherent
// multi-field view must read after an updateSettings/updateStatus call
// returns.
type Snapshot struct {
	Model             string
	DetectorType      string
	SerialNumber      string
	WidthMax          uint32
	HeightMax         uint32
	PixelDepth        uint32
	MaxBinning        uint32
	ExposureTimeMs    float64
	NbImagesToAcquire uint32
	AcquisitionType   AcquisitionType
	SerialOrigin      uint32
	SerialLength      uint32
	SerialBinning     uint32
	ParallelOrigin    uint32
	ParallelLength    uint32
	ParallelBinning   uint32
	CoolingValue      uint32
	CCDTemperature    float64
	ReadoutSpeed      uint16
	LatestStatus      Status
}

func (c *paramCache) snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Model:             c.model,
		DetectorType:      c.detectorType,
		SerialNumber:      c.serialNumber,
		WidthMax:          c.widthMax,
		HeightMax:         c.heightMax,
		PixelDepth:        c.pixelDepth,
		MaxBinning:        c.maxBinning,
		ExposureTimeMs:    c.exposureTimeMs,
		NbImagesToAcquire: c.nbImagesToAcquire,
		AcquisitionType:   c.acquisitionType,
		SerialOrigin:      c.serialOrigin,
		SerialLength:      c.serialLength,
		SerialBinning:     c.serialBinning,
		ParallelOrigin:    c.parallelOrigin,
		ParallelLength:    c.parallelLength,
		ParallelBinning:   c.parallelBinning,
		CoolingValue:      c.coolingValue,
		CCDTemperature:    c.ccdTemperature,
		ReadoutSpeed:      c.readoutSpeed,
		LatestStatus:      c.latestStatus,
	}
}

func (c *paramCache) status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestStatus
}

// applyCameraParameters parses the "group.key = value" text blob returned
// by GetCameraParameters, grounded on
// original_source's NetAnswerGetCameraParameters parsing loop, and fills
// the identity fields it names plus the supplemented max_binning/
// detector_type fields original_source also carries.
func (c *paramCache) applyCameraParameters(blob []byte) error {
	fields := parseParameterBlob(blob)

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := fields["factory.instrument_model"]; ok {
		c.model = v
	}
	if v, ok := fields["factory.instrument_serial_number"]; ok {
		c.serialNumber = v
	}
	if v, ok := fields["factory.instrument_serial_size"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.widthMax = uint32(n)
		}
	}
	if v, ok := fields["factory.instrument_parallel_size"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.heightMax = uint32(n)
		}
	}
	if v, ok := fields["miscellaneous.bits_per_pixel"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.pixelDepth = uint32(n)
		}
	}
	if v, ok := fields["factory.instrument_max_binning"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.maxBinning = uint32(n)
		}
	}
	if v, ok := fields["factory.instrument_detector_type"]; ok {
		c.detectorType = v
	}
	return nil
}

// parseParameterBlob splits a text payload into "group.key" -> "value"
// pairs. Each line matches "group.key = value"; lines that don't contain
// "=" are ignored rather than rejected, since the peer's blob may carry
// trailing blank lines.
func parseParameterBlob(blob []byte) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(string(blob), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		if key == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// applyStatus implements the status-flag truth table exactly:
// CameraConnected=0 or ConfigurationError=1 means Fault; otherwise Ready
// or Exposure depending on AcquisitionInProgress.
func (c *paramCache) applyStatus(flags uint32) {
	var status Status
	switch {
	case flags&flagCameraConnected == 0:
		status = StatusFault
	case flags&flagConfigurationError != 0:
		status = StatusFault
	case flags&flagAcquisitionInProgress != 0:
		status = StatusExposure
	default:
		status = StatusReady
	}
	c.mu.Lock()
	c.latestStatus = status
	c.mu.Unlock()
}

// applySettings populates exposure, frame count, ROI, and acquisition
// type directly from a decoded Settings data answer.
func (c *paramCache) applySettings(s wire.SettingsPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exposureTimeMs = s.ExposureTimeMs
	c.nbImagesToAcquire = s.NbImagesToAcquire
	c.serialOrigin = s.SerialOrigin
	c.serialLength = s.SerialLength
	c.serialBinning = s.SerialBinning
	c.parallelOrigin = s.ParallelOrigin
	c.parallelLength = s.ParallelLength
	c.parallelBinning = s.ParallelBinning
	c.acquisitionType = AcquisitionType(s.AcquisitionType)
}

// forceStatus is used by the acquisition driver to advance latest_status
// outside the normal updateStatus path (e.g. Exposure on accepted
// acquire, Idle/Ready on completion), respecting the invariant
// that Ready only advances to Exposure via an accepted acquire and to
// Fault only on unrecoverable error.
func (c *paramCache) forceStatus(s Status) {
	c.mu.Lock()
	c.latestStatus = s
	c.mu.Unlock()
}
