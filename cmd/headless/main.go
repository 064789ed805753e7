// Command headless runs the tracker without the Tk window and logs the pose
// once per second.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soocke/headtrack-go/assets"
	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/debug"
	"github.com/soocke/headtrack-go/domain/calibration"
	"github.com/soocke/headtrack-go/domain/capture/backend"
	"github.com/soocke/headtrack-go/domain/capture/opencv"
	"github.com/soocke/headtrack-go/domain/overlay"
	"github.com/soocke/headtrack-go/domain/tracker"
	"github.com/soocke/headtrack-go/logging"
)

var (
	cfgPath      = flag.String("config", "headtrack.json", "config file (.json, .yaml or .yml)")
	debugFlag    = flag.Bool("debug", false, "verbose logging and runtime stats")
	window       = flag.Bool("window", false, "show annotated frames in an OpenCV window")
	calibrateFor = flag.Duration("calibrate-for", 0, "calibrate the head offset for this long, then save it")
	printMarker  = flag.String("print-marker", "", "write the marker as PNG to this path and exit")
	markerPx     = flag.Int("marker-px", 720, "side of the printed marker in pixels")
)

func main() {
	flag.Parse()

	if *printMarker != "" {
		if err := writeMarker(*printMarker, *markerPx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*cfgPath)
	cfg.Debug = cfg.Debug || *debugFlag
	logger := logging.NewLogger(logging.Level(cfg.Debug))
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", *cfgPath, "error", err)
	}
	if cfg.Debug {
		debug.StartGoroutineLogger(10*time.Second, logger)
		debug.StartMemLogger(10*time.Second, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("headless run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tr := tracker.New(logger, cfg, backend.NewFactory(cfg), tracker.WithDetector(backend.NewDetector(cfg)))

	var display overlay.Display
	if *window || cfg.ShowWindow {
		display = opencv.NewWindow(logger, "headtrack")
	}
	if err := tr.Start(display); err != nil {
		return err
	}
	defer tr.Stop()

	if *calibrateFor > 0 {
		if err := calibrate(ctx, cfg, tr, logger); err != nil {
			logger.Warn("calibration failed", "error", err)
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			p := tr.Pose()
			s := tr.Stats()
			logger.Info("pose",
				"yaw", p.Yaw, "pitch", p.Pitch, "roll", p.Roll,
				"x", p.X, "y", p.Y, "z", p.Z,
				"fps", s.FPS, "roi_hits", s.ROIHits, "frames", s.Frames,
			)
		}
	}
}

// calibrate samples for the -calibrate-for duration and saves the committed
// offset to the config file.
func calibrate(ctx context.Context, cfg *config.Config, tr *tracker.Tracker, logger *slog.Logger) error {
	ctl := calibration.NewController(logger, tr, tr, cfg.CalibrationInterval())
	logger.Info("calibrating: turn your head slowly", "duration", *calibrateFor)
	ctl.Start()
	select {
	case <-ctx.Done():
	case <-time.After(*calibrateFor):
	}
	off, err := ctl.Stop()
	if err != nil {
		return err
	}
	cfg.SetHeadOffset(off)
	logger.Info("head offset calibrated", "x", off.X, "y", off.Y, "z", off.Z)
	return cfg.Save(*cfgPath)
}

func writeMarker(path string, px int) error {
	img, err := assets.MarkerImage(px)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
