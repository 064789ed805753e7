package app

import (
	"log/slog"

	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/domain/calibration"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/domain/capture/backend"
	"github.com/soocke/headtrack-go/domain/capture/opencv"
	"github.com/soocke/headtrack-go/domain/tracker"
	"github.com/soocke/headtrack-go/ui/model"
	"github.com/soocke/headtrack-go/ui/presenter"
	"github.com/soocke/headtrack-go/ui/view"
)

// AppContainer assembles models, services, presenters and the root view.
type AppContainer struct {
	Config   *config.Config
	CfgPath  string
	Logger   *slog.Logger
	Tracking *model.TrackingModel
	Frames   *model.FrameModel
	Tracker  *tracker.Tracker
	Calib    *calibration.Controller
	RootView *view.RootView

	// Presenters
	TrackingPresenter    *presenter.TrackingPresenter
	CalibrationPresenter *presenter.CalibrationPresenter
	PosePresenter        *presenter.PosePresenter
	Loop                 *presenter.Loop
}

// BuildContainer constructs all components. Nothing touches a device or Tk
// until the view is built and a handler fires.
func BuildContainer(cfg *config.Config, logger *slog.Logger, cfgPath string, factory capture.Factory) *AppContainer {
	if factory == nil {
		factory = backend.NewFactory(cfg)
	}
	c := &AppContainer{Config: cfg, CfgPath: cfgPath, Logger: logger}
	c.Tracking = &model.TrackingModel{}
	c.Frames = model.NewFrameModel()
	c.Tracker = tracker.New(logger, cfg, factory, tracker.WithDetector(backend.NewDetector(cfg)))
	// The tracker is both the pose source and the offset sink.
	c.Calib = calibration.NewController(logger, c.Tracker, c.Tracker, cfg.CalibrationInterval())
	c.RootView = view.NewRootView(cfg, cfgPath, logger)

	// Frames are annotated with OpenCV before they reach the preview.
	c.TrackingPresenter = presenter.NewTrackingPresenter(c.Tracking, c.Tracker, opencv.NewAnnotator(c.Frames), c.RootView)
	c.CalibrationPresenter = presenter.NewCalibrationPresenter(c.Calib, c.RootView, c.saveOffset)
	c.Calib.AddListener(c.CalibrationPresenter.OnState)
	c.PosePresenter = presenter.NewPosePresenter(c.Tracker, func() float64 { return c.Tracker.Stats().FPS }, c.Frames, c.RootView)
	return c
}

// saveOffset records a committed calibration in the config and persists it.
func (c *AppContainer) saveOffset(v r3.Vector) error {
	c.Config.SetHeadOffset(v)
	c.RootView.ReloadConfig()
	if c.CfgPath == "" {
		return nil
	}
	return c.Config.Save(c.CfgPath)
}

// ApplyConfig hands an edited config to the tracker. Capture settings apply
// to the next session, the head offset immediately.
func (c *AppContainer) ApplyConfig(cfg *config.Config) {
	c.Tracker.Configure(cfg)
}

// Shutdown ends calibration and tracking. Stopping the tracker waits for the
// settle delay.
func (c *AppContainer) Shutdown() {
	if c.Calib.Active() {
		if _, err := c.Calib.Stop(); err != nil && c.Logger != nil {
			c.Logger.Info("calibration discarded on exit", "error", err)
		}
	}
	c.TrackingPresenter.Disable()
}
