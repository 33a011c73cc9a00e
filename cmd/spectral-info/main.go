// spectral-info connects to a detector server and prints its identity,
// current settings and status.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/soleil-ica/go-spectralinstrument/camera"
)

func mainImpl() error {
	configPath := pflag.StringP("config", "c", "", "path to a YAML configuration file")
	addr := pflag.StringP("addr", "a", "", "override connection_address")
	port := pflag.Uint16P("port", "p", 0, "override connection_port")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	logger := log.Default()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
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

	cam, err := camera.New(cfg, camera.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("spectral-info: %w", err)
	}
	defer cam.Close()

	id, err := cam.Identify()
	if err != nil {
		return fmt.Errorf("spectral-info: %w", err)
	}

	fmt.Printf("Model:          %s\n", id.Model)
	fmt.Printf("Detector type:  %s\n", id.DetectorType)
	fmt.Printf("Serial number:  %s\n", id.SerialNumber)
	fmt.Printf("Max image size: %dx%d, %d bits/pixel\n", id.WidthMax, id.HeightMax, id.PixelDepth)
	fmt.Printf("Max binning:    %d\n", id.MaxBinning)
	fmt.Printf("Status:         %s\n", cam.Status())

	snap := cam.Snapshot()
	fmt.Printf("Exposure:       %.3f ms\n", snap.ExposureTimeMs)
	fmt.Printf("Frame count:    %d\n", snap.NbImagesToAcquire)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "spectral-info: %s\n", err)
		os.Exit(1)
	}
}
