package view

import (
	"image"
	"log/slog"

	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/domain/pose"
	"github.com/soocke/headtrack-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions the root view forwards.
type Handlers struct {
	ToggleTracking    func()
	ToggleCalibration func()
	CameraSettings    func()
	Exit              func()
	ConfigApplied     func(*config.Config)
}

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Readout     PoseReadout
	ConfigPanel ConfigPanel
	Preview     Preview

	// Widgets
	StatusLabel    *LabelWidget
	TrackingBtn    *ButtonWidget
	CalibrationBtn *ButtonWidget
}

// UI abstracts the view operations presenters need.
type UI interface {
	PreviewReset()
	ConfigEditable(bool)
	SetTrackingLabel(string)
	SetCalibrationLabel(string)
	SetStatus(string)
	SetPose(p pose.Pose, fps float64)
	UpdatePreview(img image.Image)
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. cameras fills the camera selector.
func (rv *RootView) Build(cameras []string, h Handlers) {
	if rv == nil {
		return
	}
	pal := theme.CurrentPalette()

	// Row 0: pose readout
	top := Frame()
	Grid(top, Row(0), Column(0), Columnspan(3), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	rv.Readout = NewPoseReadout(top, 0)

	// Row 1: status line and buttons
	rv.StatusLabel = Label(Txt("Stopped"), Borderwidth(1), Relief("ridge"), Anchor("w"),
		Background(pal.Surface), Foreground(pal.Text))
	Grid(rv.StatusLabel, Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(1), Column(2), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.TrackingBtn = Button(Txt("Start tracking"), Command(h.ToggleTracking),
		Background(pal.Primary), Foreground("white"))
	Grid(rv.TrackingBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.CalibrationBtn = Button(Txt("Calibrate"), Command(h.ToggleCalibration),
		Background(pal.Accent), Foreground("white"))
	Grid(rv.CalibrationBtn, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	settingsBtn := Button(Txt("Camera settings"), Command(h.CameraSettings))
	Grid(settingsBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := Button(Txt("Exit"), Command(h.Exit), Background(pal.Danger), Foreground("white"))
	Grid(exitBtn, In(btnFrame), Row(3), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Config panel rows
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, cameras, h.ConfigApplied)
	endRow := rv.ConfigPanel.Build(2)

	rv.Preview = NewPreview(endRow, 3)
}

// SetStatus updates the status line.
func (rv *RootView) SetStatus(text string) {
	if rv != nil && rv.StatusLabel != nil {
		rv.StatusLabel.Configure(Txt(text))
	}
}

func (rv *RootView) SetTrackingLabel(text string) {
	if rv != nil && rv.TrackingBtn != nil {
		rv.TrackingBtn.Configure(Txt(text))
	}
}

func (rv *RootView) SetCalibrationLabel(text string) {
	if rv != nil && rv.CalibrationBtn != nil {
		rv.CalibrationBtn.Configure(Txt(text))
	}
}

// ConfigEditable toggles config panel editability.
func (rv *RootView) ConfigEditable(enabled bool) {
	if rv != nil && rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(enabled)
	}
}

// SetPose proxies to the readout.
func (rv *RootView) SetPose(p pose.Pose, fps float64) {
	if rv != nil && rv.Readout != nil {
		rv.Readout.SetPose(p, fps)
	}
}

// UpdatePreview proxies to the preview.
func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdatePreview(img)
	}
}

// PreviewReset clears the preview.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

// ReloadConfig refreshes the config form after the config changed outside
// of it, e.g. a committed calibration.
func (rv *RootView) ReloadConfig() {
	if rv != nil && rv.ConfigPanel != nil {
		rv.ConfigPanel.Reload()
	}
}
