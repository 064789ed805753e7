package app

import (
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/debug"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/ui/presenter"
	"github.com/soocke/headtrack-go/ui/theme"
	"github.com/soocke/headtrack-go/ui/view"
)

const tick = 50 * time.Millisecond

// app is the Tk debug window around a tracker.
type app struct {
	title   string
	width   int
	height  int
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	c       *AppContainer
	afterID string
}

func NewApp(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger) *app {
	return &app{title: title, width: width, height: height, cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Start builds the window and runs the Tk event loop until exit.
func (a *app) Start() {
	if a.cfg.Debug && a.logger != nil {
		debug.StartGoroutineLogger(10*time.Second, a.logger)
		debug.StartMemLogger(10*time.Second, a.logger)
	}
	a.c = BuildContainer(a.cfg, a.logger, a.cfgPath, nil)

	theme.Init(false)
	App.WmTitle(a.title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", a.width, a.height))

	a.c.RootView.Build(capture.CameraNames(), view.Handlers{
		ToggleTracking:    a.c.TrackingPresenter.Toggle,
		ToggleCalibration: a.c.CalibrationPresenter.Toggle,
		CameraSettings:    a.cameraSettings,
		Exit:              a.exitHandler,
		ConfigApplied:     a.c.ApplyConfig,
	})
	a.c.Loop = presenter.NewLoop(a.c.CalibrationPresenter, a.c.PosePresenter, a.scheduleUpdate)
	a.c.Loop.Tracking = a.c.TrackingPresenter
	a.scheduleUpdate()
	App.Wait()
}

func (a *app) cameraSettings() {
	if err := a.c.Tracker.OpenCameraSettings(); err != nil {
		a.c.RootView.SetStatus("Camera settings: " + err.Error())
		if a.logger != nil {
			a.logger.Warn("camera settings failed", "error", err)
		}
	}
}

func (a *app) scheduleUpdate() {
	// TclAfter keeps updates on Tk's event loop thread.
	a.afterID = TclAfter(tick, func() { a.c.Loop.Tick() })
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	a.c.Shutdown()
	Destroy(App)
}
