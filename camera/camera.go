// Package camera implements a client-side driver for an SI-class CCD
// detector's TCP/IP command protocol: a framed wire codec, a
// packet demultiplexer, a serializing command engine, and three
// cooperating workers (receiver, status updater, acquisition driver)
// behind a single Camera facade.
package camera

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/soleil-ica/go-spectralinstrument/transport"
	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// Camera owns one TCP connection to the detector server and the three
// workers that ride it. It is constructed exactly once
// per detector by the host, via New, and torn down by Close; nothing
// here is a package-level singleton. Grounded on google-periph's device
// facades (a driver struct owning its conn and exposing host-facing
// methods), generalized from a register-transaction bus device to a
// stream of asynchronous worker goroutines.
type Camera struct {
	cfg    Config
	logger *log.Logger
	events EventReporter

	metrics *Metrics
	conn    *transport.Conn
	demux   *demultiplexer
	cache   *paramCache
	cmds    *commandEngine
	buffers BufferManager

	acq              *acquisitionDriver
	updaterSuspended int32

	cancel  context.CancelFunc
	workers *errgroup.Group
}

// Option configures optional collaborators at New time; the zero value of
// each is valid (no metrics, no event reporting, no buffer manager, the
// package's default logger).
type Option func(*Camera)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Camera) { c.logger = logger }
}

// WithMetrics wires a *Metrics built by NewMetrics; omit to run without
// instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Camera) { c.metrics = m }
}

// WithEventReporter wires the host's event channel.
func WithEventReporter(r EventReporter) Option {
	return func(c *Camera) { c.events = r }
}

// WithBufferManager wires the host's frame buffer manager. Acquisitions
// run without one only for tests that don't care where frames land.
func WithBufferManager(b BufferManager) Option {
	return func(c *Camera) { c.buffers = b }
}

// New dials the detector server, starts the receiver worker, sends
// ConfigurePackets, starts the updater worker, and returns a ready Camera.
// The acquisition driver runs no goroutine of its own: StartAcquisition
// runs it on the caller's goroutine. The returned
// Camera must be closed with Close when the host is done with it.
func New(cfg Config, opts ...Option) (*Camera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Camera{
		cfg:    cfg,
		logger: log.Default(),
		cache:  &paramCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("camera_id", cfg.CameraIdentifier)

	conn, err := transport.Dial(cfg.ConnectionAddr, cfg.ConnectionPort, cfg.connectionTimeout(), cfg.receptionTimeout())
	if err != nil {
		return nil, fmt.Errorf("camera: connect: %w", err)
	}
	c.conn = conn

	c.demux = newDemultiplexer()
	c.cmds = newCommandEngine(conn, c.demux, c.metrics, cfg.waitPacketTimeout())
	c.acq = newAcquisitionDriver(c)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	c.workers = g

	g.Go(func() error { return c.receiverLoop(gctx) })

	// ConfigurePackets must round-trip before any other command: it tells
	// the peer the image tile size and inter-tile pacing this driver
	// expects, the same way the interoperating detector control software
	// sends it immediately after connecting and treats its failure as
	// fatal rather than recoverable.
	if err := c.configurePackets(); err != nil {
		cancel()
		_ = g.Wait()
		_ = conn.Close()
		return nil, fmt.Errorf("camera: connect: %w", err)
	}

	g.Go(func() error { return c.updaterLoop(gctx) })

	return c, nil
}

// configurePackets sends ConfigurePackets with the configured image tile
// size and inter-tile delay, waiting for acknowledgement.
func (c *Camera) configurePackets() error {
	payload := append(encodeU32(c.cfg.ImagePacketPixelsNb), encodeU32(c.cfg.ImagePacketDelayUs)...)
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionConfigurePackets, payload)
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: ConfigurePackets: %w", err)
	}
	return nil
}

// Close stops the background workers and releases the connection, in
// that order. An acquisition in progress is asked to
// stop but Close does not wait for the run to observe it; callers that
// need a clean stop should call StopAcquisition first and wait for
// StartAcquisition to return.
func (c *Camera) Close() error {
	c.acq.StopAcq()
	c.cancel()
	_ = c.workers.Wait()
	return c.conn.Close()
}

// Identity is the detector's identity and maximum image geometry, read
// once from GetCameraParameters.
type Identity struct {
	Model        string
	DetectorType string
	SerialNumber string
	WidthMax     uint32
	HeightMax    uint32
	PixelDepth   uint32
	MaxBinning   uint32
}

// Identify issues GetCameraParameters and returns the detector's
// identity and maximum image size.
func (c *Camera) Identify() (Identity, error) {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionGetCameraParameters, nil)
	blob, err := sendAckAnswer(c.cmds, cmd, wire.GroupID(wire.DataTypeCameraParameters), decodeRawPayload)
	if err != nil {
		return Identity{}, fmt.Errorf("camera: Identify: %w", err)
	}
	if err := c.cache.applyCameraParameters(blob); err != nil {
		return Identity{}, err
	}
	snap := c.cache.snapshot()
	return Identity{
		Model:        snap.Model,
		DetectorType: snap.DetectorType,
		SerialNumber: snap.SerialNumber,
		WidthMax:     snap.WidthMax,
		HeightMax:    snap.HeightMax,
		PixelDepth:   snap.PixelDepth,
		MaxBinning:   snap.MaxBinning,
	}, nil
}

func decodeRawPayload(payload []byte) ([]byte, error) { return payload, nil }

// Status returns the driver's last-known status, refreshed
// every data_update_delay_ms by the updater worker (or, during an
// acquisition, advanced directly by the acquisition driver).
func (c *Camera) Status() Status {
	return c.cache.status()
}

// Snapshot returns a coherent read of every cached parameter.
func (c *Camera) Snapshot() Snapshot {
	return c.cache.snapshot()
}

// SetExposureTime sets the exposure duration in milliseconds.
func (c *Camera) SetExposureTime(ms float64) error {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetExposureTime, encodeF64(ms))
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetExposureTime: %w", err)
	}
	return nil
}

// ExposureTime returns the last-cached exposure duration in
// milliseconds.
func (c *Camera) ExposureTime() float64 {
	return c.cache.snapshot().ExposureTimeMs
}

// SetFrameCount sets the number of frames the next acquisition run
// should produce.
func (c *Camera) SetFrameCount(n uint32) error {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetFormatParameters, encodeU32(n))
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetFrameCount: %w", err)
	}
	return nil
}

// ROI is a region of interest expressed as serial/parallel origin and
// length, matching the detector's own axis naming.
type ROI struct {
	SerialOrigin   uint32
	SerialLength   uint32
	ParallelOrigin uint32
	ParallelLength uint32
}

// SetROI sets the acquisition region of interest.
func (c *Camera) SetROI(roi ROI) error {
	payload := append(encodeU32(roi.SerialOrigin), encodeU32(roi.SerialLength)...)
	payload = append(payload, encodeU32(roi.ParallelOrigin)...)
	payload = append(payload, encodeU32(roi.ParallelLength)...)
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetRoi, payload)
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetRoi: %w", err)
	}
	return nil
}

// SetBinning sets the serial and parallel binning factors.
func (c *Camera) SetBinning(x, y uint32) error {
	payload := append(encodeU32(x), encodeU32(y)...)
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetFormatParameters, payload)
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetBinning: %w", err)
	}
	return nil
}

// SetCooling turns the detector's cooling on or off.
func (c *Camera) SetCooling(on bool) error {
	var v uint32
	if on {
		v = 1
	}
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetCoolingValue, encodeU32(v))
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetCoolingValue: %w", err)
	}
	return nil
}

// SetReadoutSpeed sets the detector's readout speed selector.
func (c *Camera) SetReadoutSpeed(speed uint16) error {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionSetReadoutSpeed, encodeU16(speed))
	if err := c.cmds.sendAck(cmd); err != nil {
		return fmt.Errorf("camera: SetReadoutSpeed: %w", err)
	}
	return nil
}

// StartAcquisition runs params.NbFrames exposures to completion,
// reporting each assembled frame to the buffer manager as it arrives. It
// blocks until the run finishes, is stopped, or fails; callers that want
// to control acquisition asynchronously should invoke it from their own
// goroutine and use StopAcquisition to interrupt it.
func (c *Camera) StartAcquisition(ctx context.Context, params AcqParams) error {
	return c.acq.StartAcq(ctx, params)
}

// StopAcquisition requests that a running acquisition terminate at its
// next safe point.
func (c *Camera) StopAcquisition() {
	c.acq.StopAcq()
}

// AcquisitionState returns the acquisition driver's current state.
func (c *Camera) AcquisitionState() AcqState {
	return c.acq.getState()
}

// FramesAcquired returns the number of frames completed by the current
// or most recent acquisition run.
func (c *Camera) FramesAcquired() uint32 {
	return c.acq.framesAcquired()
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func encodeF64(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}
