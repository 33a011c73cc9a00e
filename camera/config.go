package camera

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the driver's full connection and timing configuration,
// loadable from a YAML file the way doismellburning-samoyed's deviceid.go
// loads tocalls.yaml, with cmd/ front-ends layering pflag overrides on
// top of it (see cmd/spectral-acquire and cmd/spectral-info). Timing
// fields keep the unit named in their suffix (sec/ms/us) rather than
// time.Duration directly, since yaml.v3 decodes a bare scalar into a
// Duration's underlying int64 as nanoseconds, not the named unit.
type Config struct {
	CameraIdentifier uint8  `yaml:"camera_identifier"`
	ConnectionAddr   string `yaml:"connection_address"`
	ConnectionPort   uint16 `yaml:"connection_port"`

	ConnectionTimeoutSec     uint32 `yaml:"connection_timeout_sec"`
	ReceptionTimeoutSec      uint32 `yaml:"reception_timeout_sec"`
	WaitPacketTimeoutSec     uint32 `yaml:"wait_packet_timeout_sec"`
	MaximumReadoutTimeSec    uint32 `yaml:"maximum_readout_time_sec"`
	DelayToCheckAcqEndMs     uint32 `yaml:"delay_to_check_acq_end_ms"`
	InquireAcqStatusDelayMs  uint32 `yaml:"inquire_acq_status_delay_ms"`
	DataUpdateDelayMs        uint32 `yaml:"data_update_delay_ms"`
	ImagePacketPixelsNb      uint32 `yaml:"image_packet_pixels_nb"`
	ImagePacketDelayUs       uint32 `yaml:"image_packet_delay_us"`
}

// Default timing constants, matching the values the interoperating
// detector control software actually ships, reproduced here rather than
// invented.
const (
	DefaultDataUpdateDelayMs       = 1000
	DefaultMaximumReadoutTimeSec   = 20
	DefaultDelayToCheckAcqEndMs    = 1
	DefaultInquireAcqStatusDelayMs = 20
)

// DefaultConfig returns a Config with every timing field set to the
// detector's documented defaults, camera_identifier 1, and no connection
// address (the caller must supply one).
func DefaultConfig() Config {
	return Config{
		CameraIdentifier:        1,
		ConnectionTimeoutSec:    5,
		ReceptionTimeoutSec:     5,
		WaitPacketTimeoutSec:    5,
		MaximumReadoutTimeSec:   DefaultMaximumReadoutTimeSec,
		DelayToCheckAcqEndMs:    DefaultDelayToCheckAcqEndMs,
		InquireAcqStatusDelayMs: DefaultInquireAcqStatusDelayMs,
		DataUpdateDelayMs:       DefaultDataUpdateDelayMs,
		ImagePacketPixelsNb:     65536,
		ImagePacketDelayUs:      0,
	}
}

// LoadConfig reads a YAML configuration file, starting from
// DefaultConfig and overlaying whatever fields the file sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("camera: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("camera: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants a configuration must satisfy.
func (c Config) Validate() error {
	if c.CameraIdentifier < 1 {
		return fmt.Errorf("camera: camera_identifier must be >= 1, got %d", c.CameraIdentifier)
	}
	if c.ConnectionAddr == "" {
		return fmt.Errorf("camera: connection_address must not be empty")
	}
	if c.ConnectionPort == 0 {
		return fmt.Errorf("camera: connection_port must not be zero")
	}
	return nil
}

func (c Config) connectionTimeout() time.Duration { return time.Duration(c.ConnectionTimeoutSec) * time.Second }
func (c Config) receptionTimeout() time.Duration  { return time.Duration(c.ReceptionTimeoutSec) * time.Second }
func (c Config) waitPacketTimeout() time.Duration {
	return time.Duration(c.WaitPacketTimeoutSec) * time.Second
}
func (c Config) maximumReadoutTime() time.Duration {
	return time.Duration(c.MaximumReadoutTimeSec) * time.Second
}
func (c Config) delayToCheckAcqEnd() time.Duration {
	return time.Duration(c.DelayToCheckAcqEndMs) * time.Millisecond
}
func (c Config) inquireAcqStatusDelay() time.Duration {
	return time.Duration(c.InquireAcqStatusDelayMs) * time.Millisecond
}
func (c Config) dataUpdateDelay() time.Duration {
	return time.Duration(c.DataUpdateDelayMs) * time.Millisecond
}
