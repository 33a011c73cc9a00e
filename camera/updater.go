package camera

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/soleil-ica/go-spectralinstrument/wire"
)

// updaterLoop runs the periodic worker: every data_update_delay_ms, issue
// GetStatus then GetSettings and fold the results into the parameter
// cache. It is suspended, via Camera.suspendUpdater, while the
// acquisition driver owns status polling for a running acquisition.
func (c *Camera) updaterLoop(ctx context.Context) error {
	logger := c.logger.With("worker", "updater")
	ticker := time.NewTicker(c.cfg.dataUpdateDelay())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if atomic.LoadInt32(&c.updaterSuspended) != 0 {
			continue
		}

		if err := c.updateStatus(); err != nil {
			logger.Warn("updateStatus failed", "err", err)
			continue
		}
		if err := c.updateSettings(); err != nil {
			logger.Warn("updateSettings failed", "err", err)
		}
	}
}

// updateStatus issues GetStatus and folds the server.flags bitfield into
// the parameter cache's latest_status truth table.
func (c *Camera) updateStatus() error {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionGetStatus, nil)
	flags, err := sendAckAnswer(c.cmds, cmd, wire.GroupID(wire.DataTypeStatus), decodeStatusFlags)
	if err != nil {
		return err
	}
	c.cache.applyStatus(flags)
	return nil
}

// decodeStatusFlags reads the single big-endian u32 server.flags bitfield
// from a Status data answer's payload.
func decodeStatusFlags(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, wire.ErrTruncated
	}
	return uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]), nil
}

// updateSettings issues GetSettings and applies the structured payload to
// the parameter cache.
func (c *Camera) updateSettings() error {
	cmd := wire.NewCommand(c.cfg.CameraIdentifier, wire.FunctionGetSettings, nil)
	settings, err := sendAckAnswer(c.cmds, cmd, wire.GroupID(wire.DataTypeSettings), wire.DecodeSettings)
	if err != nil {
		return err
	}
	c.cache.applySettings(settings)
	return nil
}

// suspendUpdater pauses/resumes the periodic status+settings poll while
// the acquisition driver owns status tracking for a running acquisition.
func (c *Camera) suspendUpdater(suspend bool) {
	var v int32
	if suspend {
		v = 1
	}
	atomic.StoreInt32(&c.updaterSuspended, v)
}
