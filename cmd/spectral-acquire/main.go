// spectral-acquire connects to a detector server, runs an acquisition
// sequence and saves each frame as a 16- or 8-bit grayscale PNG, per
// --bitdepth.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/soleil-ica/go-spectralinstrument/camera"
)

// diskBufferManager writes every accepted frame to outDir as a sequentially
// numbered PNG, reconstructing an image.Gray16 from the frame's big-endian
// pixel bytes when BitsPerPixel is 16, or image.Gray otherwise.
type diskBufferManager struct {
	outDir  string
	logger  *log.Logger
	written int
}

func (d *diskBufferManager) AcceptFrame(f camera.Frame) error {
	var img image.Image
	switch f.BitsPerPixel {
	case 16:
		// image.Gray16.Pix is big-endian per pixel, matching the frame's
		// wire byte order, so the copy needs no reordering.
		g := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
		copy(g.Pix, f.Pixels)
		img = g
	case 8:
		g := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(g.Pix, f.Pixels)
		img = g
	default:
		return fmt.Errorf("spectral-acquire: unsupported bit depth %d", f.BitsPerPixel)
	}

	path := filepath.Join(d.outDir, fmt.Sprintf("frame-%05d.png", d.written))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return err
	}
	d.written++
	d.logger.Info("frame written", "path", path, "image_id", f.ImageIdentifier)
	return nil
}

func triggerModeFromFlag(s string) (camera.TriggerMode, error) {
	switch s {
	case "internal":
		return camera.InternalTrigger, nil
	case "external-single":
		return camera.ExternalTriggerSingle, nil
	case "external-multi":
		return camera.ExternalTriggerMulti, nil
	default:
		return 0, fmt.Errorf("spectral-acquire: unknown trigger mode %q", s)
	}
}

func mainImpl() error {
	configPath := pflag.StringP("config", "c", "", "path to a YAML configuration file")
	addr := pflag.StringP("addr", "a", "", "override connection_address")
	port := pflag.Uint16P("port", "p", 0, "override connection_port")
	outDir := pflag.StringP("out", "o", ".", "directory to save acquired frames into")
	frames := pflag.Uint32P("frames", "n", 1, "number of frames to acquire")
	exposureMs := pflag.Float64P("exposure", "e", 100, "exposure time in milliseconds")
	latencyMs := pflag.Uint32P("latency", "l", 0, "inter-frame latency in milliseconds")
	trigger := pflag.String("trigger", "internal", "trigger mode: internal, external-single, external-multi")
	width := pflag.Int("width", 2048, "frame width in pixels")
	height := pflag.Int("height", 2048, "frame height in pixels")
	bitDepth := pflag.Int("bitdepth", 16, "bits per pixel")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	if pflag.NArg() != 0 {
		return errors.New("spectral-acquire: unsupported positional arguments")
	}
	if *frames == 0 {
		return errors.New("spectral-acquire: -frames must be >= 1")
	}

	logger := log.Default()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	triggerMode, err := triggerModeFromFlag(*trigger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("spectral-acquire: %w", err)
	}

	cfg := camera.DefaultConfig()
	if *configPath != "" {
		loaded, err := camera.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.ConnectionAddr = *addr
	}
	if *port != 0 {
		cfg.ConnectionPort = *port
	}

	buffers := &diskBufferManager{outDir: *outDir, logger: logger}
	cam, err := camera.New(cfg, camera.WithLogger(logger), camera.WithBufferManager(buffers))
	if err != nil {
		return fmt.Errorf("spectral-acquire: %w", err)
	}
	defer cam.Close()

	if err := cam.SetExposureTime(*exposureMs); err != nil {
		return fmt.Errorf("spectral-acquire: %w", err)
	}
	if err := cam.SetFrameCount(*frames); err != nil {
		return fmt.Errorf("spectral-acquire: %w", err)
	}

	params := camera.AcqParams{
		NbFrames:  *frames,
		Trigger:   triggerMode,
		LatencyMs: *latencyMs,
		Width:     *width,
		Height:    *height,
		BitDepth:  *bitDepth,
	}

	logger.Info("starting acquisition", "frames", *frames, "exposure_ms", *exposureMs)
	if err := cam.StartAcquisition(context.Background(), params); err != nil {
		return fmt.Errorf("spectral-acquire: %w", err)
	}
	logger.Info("acquisition complete", "frames_acquired", cam.FramesAcquired())
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "spectral-acquire: %s\n", err)
		os.Exit(1)
	}
}
