// Package backend picks the capture source and marker detector named by the
// configuration.
package backend

import (
	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/domain/capture/opencv"
	"github.com/soocke/headtrack-go/domain/marker"
	"github.com/soocke/headtrack-go/domain/tracker"
)

// NewFactory returns a factory that builds the source selected by
// cfg.Backend when it is called, so backend edits apply to the next session.
func NewFactory(cfg *config.Config) capture.Factory {
	return func() capture.Source {
		if cfg.Backend == config.BackendScreen {
			return capture.NewScreenSource(cfg.ScreenRect())
		}
		return opencv.NewCamera()
	}
}

// NewDetector returns the detector factory for cfg.Backend: OpenCV contours
// for camera frames, the pure-Go border tracer for screen captures.
func NewDetector(cfg *config.Config) tracker.DetectorFactory {
	return func(thr uint8) marker.Detector {
		if cfg.Backend == config.BackendScreen {
			return marker.NewBorderDetector(thr)
		}
		return opencv.NewContourDetector(thr)
	}
}

