package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// AcqState is a state of the acquisition driver's state machine.
type AcqState int

// AcqState values.
const (
	AcqIdle AcqState = iota
	AcqExposure
	AcqReadout
	AcqRetrieve
	AcqLatency
	AcqError
)

func (s AcqState) String() string {
	switch s {
	case AcqIdle:
		return "Idle"
	case AcqExposure:
		return "Exposure"
	case AcqReadout:
		return "Readout"
	case AcqRetrieve:
		return "Retrieve"
	case AcqLatency:
		return "Latency"
	case AcqError:
		return "Error"
	default:
		return "AcqState(unknown)"
	}
}

// TriggerMode is the host-facing trigger selection.
type TriggerMode int

// TriggerMode values.
const (
	InternalTrigger TriggerMode = iota
	ExternalTriggerSingle
	ExternalTriggerMulti
)

func triggerToAcquisitionType(t TriggerMode) AcquisitionType {
	switch t {
	case ExternalTriggerSingle, ExternalTriggerMulti:
		return AcquisitionTriggered
	default:
		return AcquisitionLight
	}
}

// AcqParams are the host-supplied parameters for one acquisition run.
type AcqParams struct {
	NbFrames  uint32
	Trigger   TriggerMode
	LatencyMs uint32
	Width     int
	Height    int
	BitDepth  int
}

// ErrImageAssembly reports that image tiles for a frame could not be
// fully reassembled before the deadline.
var ErrImageAssembly = errors.New("camera: image tile assembly failed")

// acquisitionDriver runs the state machine: prepare, expose, readout,
// retrieve, latency, repeat; stop/abort. Grounded on
// original_source's CameraAcqThread frame loop and on
// google-periph/devices/lepton.Dev.readFrame's tile-accumulation pattern,
// generalized from SPI telemetry lines to TCP image-packet tiles
// addressed by byte offset.
type acquisitionDriver struct {
	cam *Camera

	mu         sync.Mutex
	state      AcqState
	stopFlag   int32
	framesDone uint32
}

func newAcquisitionDriver(cam *Camera) *acquisitionDriver {
	return &acquisitionDriver{cam: cam, state: AcqIdle}
}

func (a *acquisitionDriver) getState() AcqState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *acquisitionDriver) setState(s AcqState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *acquisitionDriver) framesAcquired() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.framesDone
}

// StartAcq transitions Idle->Exposure and runs the frame loop to
// completion (or until Stop/Abort/error). It blocks the caller's
// goroutine for the whole acquisition; callers that want asynchronous
// acquisition should call it from their own goroutine.
func (a *acquisitionDriver) StartAcq(ctx context.Context, params AcqParams) error {
	if a.getState() != AcqIdle {
		return fmt.Errorf("camera: StartAcq invalid in state %s", a.getState())
	}

	runID := xid.New().String()
	logger := a.cam.logger.With("worker", "acquisition", "run", runID)

	atomic.StoreInt32(&a.stopFlag, 0)
	a.mu.Lock()
	a.framesDone = 0
	a.mu.Unlock()

	if err := a.setAcquisitionParams(params); err != nil {
		a.setState(AcqError)
		return err
	}

	a.cam.suspendUpdater(true)
	defer a.cam.suspendUpdater(false)

	for frame := uint32(1); frame <= params.NbFrames; frame++ {
		if a.stopRequested() {
			logger.Info("stop observed before frame", "frame", frame)
			return a.terminateToIdle(logger)
		}

		a.setState(AcqExposure)
		if err := a.acquireFrame(); err != nil {
			if errors.Is(err, errStopRequested) {
				return a.terminateToIdle(logger)
			}
			a.setState(AcqError)
			a.cam.cache.forceStatus(StatusFault)
			a.cam.reportEvent(newEvent(LevelError, "camera: acquire frame %d failed: %v", frame, err))
			return err
		}
		a.cam.cache.forceStatus(StatusExposure)

		a.setState(AcqReadout)
		a.cam.cache.forceStatus(StatusReadout)
		if err := a.pollAcquisitionDone(ctx); err != nil {
			if errors.Is(err, errStopRequested) {
				return a.terminateToIdle(logger)
			}
			a.setState(AcqError)
			a.cam.cache.forceStatus(StatusFault)
			return err
		}

		a.setState(AcqRetrieve)
		retrieveStart := time.Now()
		img, err := a.retrieveFrame(params, logger)
		if err != nil {
			a.setState(AcqError)
			a.cam.cache.forceStatus(StatusFault)
			a.cam.reportEvent(newEvent(LevelError, "camera: retrieve frame %d failed: %v", frame, err))
			return err
		}
		if a.cam.buffers != nil {
			if err := a.cam.buffers.AcceptFrame(img); err != nil {
				logger.Error("buffer manager rejected frame", "err", err)
			}
		}
		a.cam.metrics.incFramesAcquired()
		a.mu.Lock()
		a.framesDone++
		a.mu.Unlock()

		a.setState(AcqLatency)
		a.cam.cache.forceStatus(StatusLatency)
		if err := a.waitLatency(ctx, retrieveStart, params.LatencyMs); err != nil {
			return a.terminateToIdle(logger)
		}
	}

	a.setState(AcqIdle)
	a.cam.cache.forceStatus(StatusReady)
	return nil
}

// StopAcq sets the stop flag; the driver exits its poll/wait loops at
// the next safe point and issues TerminateAcquisition.
func (a *acquisitionDriver) StopAcq() {
	atomic.StoreInt32(&a.stopFlag, 1)
}

func (a *acquisitionDriver) stopRequested() bool {
	return atomic.LoadInt32(&a.stopFlag) != 0
}

var errStopRequested = errors.New("camera: stop requested")

func (a *acquisitionDriver) terminateToIdle(logger *log.Logger) error {
	cmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionTerminateAcquisition, nil)
	if err := a.cam.cmds.sendAck(cmd); err != nil {
		logger.Warn("TerminateAcquisition failed", "err", err)
	}
	a.setState(AcqIdle)
	a.cam.cache.forceStatus(StatusReady)
	return nil
}

func (a *acquisitionDriver) setAcquisitionParams(params AcqParams) error {
	acqType := triggerToAcquisitionType(params.Trigger)
	cmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionSetAcquisitionType, encodeU16(uint16(acqType)))
	if err := a.cam.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetAcquisitionType: %w", err)
	}
	modeCmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionSetAcquisitionMode, encodeU16(0))
	if err := a.cam.cmds.sendAck(modeCmd); err != nil {
		return fmt.Errorf("camera: SetAcquisitionMode: %w", err)
	}
	return nil
}

func encodeU16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// acquireFrame issues Acquire and waits for it to be accepted.
func (a *acquisitionDriver) acquireFrame() error {
	cmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionAcquire, nil)
	if err := a.cam.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: Acquire: %w", err)
	}
	return nil
}

// pollAcquisitionDone polls InquireAcquisitionStatus every
// inquire_acq_status_delay_ms until the answer reports completion, up to
// maximum_readout_time_sec, observing the stop flag between polls.
func (a *acquisitionDriver) pollAcquisitionDone(ctx context.Context) error {
	deadline := time.Now().Add(a.cam.cfg.maximumReadoutTime())
	ticker := time.NewTicker(a.cam.cfg.inquireAcqStatusDelay())
	defer ticker.Stop()

	for {
		if a.stopRequested() {
			return errStopRequested
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("camera: %w: readout exceeded %s", ErrAcquisitionTimeout, a.cam.cfg.maximumReadoutTime())
		}

		cmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionInquireAcquisitionStatus, nil)
		status, err := sendAckAnswer(a.cam.cmds, cmd, wire.GroupID(wire.DataTypeAcquisitionStatus), wire.DecodeAcquisitionStatus)
		if err != nil {
			return fmt.Errorf("camera: InquireAcquisitionStatus: %w", err)
		}
		if status.Completed {
			return nil
		}

		select {
		case <-ctx.Done():
			return errStopRequested
		case <-ticker.C:
		}
	}
}

// ErrAcquisitionTimeout reports the readout deadline being exceeded.
var ErrAcquisitionTimeout = errors.New("camera: acquisition readout deadline exceeded")

// retrieveFrame sends RetrieveImage and consumes image packets from the
// image queue until every tile of the frame has arrived, reassembling by
// offset.
func (a *acquisitionDriver) retrieveFrame(params AcqParams, logger *log.Logger) (Frame, error) {
	cmd := wire.NewCommand(a.cam.cfg.CameraIdentifier, wire.FunctionRetrieveImage, nil)
	if err := a.cam.cmds.sendAck(cmd); err != nil {
		return Frame{}, fmt.Errorf("camera: RetrieveImage: %w", err)
	}

	q, ok := a.cam.demux.queue(wire.GroupImage)
	if !ok {
		return Frame{}, fmt.Errorf("camera: no image queue configured")
	}

	frameSize := params.Width * params.Height * params.BitDepth / 8
	pixels := make([]byte, frameSize)
	received := 0
	var imageID uint32
	haveImageID := false

	deadline := time.Now().Add(a.cam.cfg.maximumReadoutTime())
	for received < frameSize {
		if a.stopRequested() {
			return Frame{}, errStopRequested
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Frame{}, fmt.Errorf("%w: tile missing past deadline", ErrImageAssembly)
		}

		p, ok := q.TakeWait(remaining)
		if !ok {
			return Frame{}, fmt.Errorf("%w: tile missing past deadline", ErrImageAssembly)
		}
		img, ok := p.(wire.Image)
		if !ok {
			return Frame{}, fmt.Errorf("camera: expected Image in image queue, got %T", p)
		}
		if !haveImageID {
			imageID = img.ImageIdentifier
			haveImageID = true
		} else if img.ImageIdentifier != imageID {
			logger.Debug("dropping tile from stale frame", "got", img.ImageIdentifier, "want", imageID)
			continue
		}

		end := int(img.Offset) + len(img.Payload)
		if end > len(pixels) {
			return Frame{}, fmt.Errorf("%w: tile offset %d+%d exceeds frame size %d", ErrImageAssembly, img.Offset, len(img.Payload), len(pixels))
		}
		copy(pixels[img.Offset:end], img.Payload)
		received += len(img.Payload)
	}

	return Frame{
		ImageIdentifier: imageID,
		Width:           params.Width,
		Height:          params.Height,
		BitsPerPixel:    params.BitDepth,
		Pixels:          pixels,
	}, nil
}

// waitLatency sleeps until latencyMs has elapsed since retrieveStart, the
// moment Exposure+Readout finished and Retrieve began. Anchoring there
// rather than at the start of Exposure absorbs Retrieve's own variable
// duration into the wait, so the achieved period stays
// exposure+readout+latency as long as retrieval finishes within latencyMs;
// a retrieval that takes longer ends the wait at once, and the period
// grows by the excess.
func (a *acquisitionDriver) waitLatency(ctx context.Context, retrieveStart time.Time, latencyMs uint32) error {
	deadline := retrieveStart.Add(time.Duration(latencyMs) * time.Millisecond)
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return nil
	}
	if a.stopRequested() {
		return errStopRequested
	}
	select {
	case <-ctx.Done():
		return errStopRequested
	case <-time.After(remaining):
		return nil
	}
}
