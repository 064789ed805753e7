package opencv

import (
	"image"
	"log/slog"

	"github.com/soocke/headtrack-go/domain/overlay"
	"gocv.io/x/gocv"
)

// Window shows annotated frames in a HighGUI window.
type Window struct {
	logger *slog.Logger
	win    *gocv.Window
}

// NewWindow opens a HighGUI window titled title.
func NewWindow(logger *slog.Logger, title string) *Window {
	return &Window{logger: logger, win: gocv.NewWindow(title)}
}

// Show implements overlay.Display.
func (w *Window) Show(img image.Image) {
	if w.win == nil || img == nil {
		return
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("window frame conversion failed", "error", err)
		}
		return
	}
	defer mat.Close()
	w.win.IMShow(mat)
	w.win.WaitKey(1)
}

// ShowFrame implements overlay.FrameDisplay, drawing the annotations with
// OpenCV.
func (w *Window) ShowFrame(f overlay.Frame) {
	if w.win == nil || f.Image == nil {
		return
	}
	mat, err := frameMat(f)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("window frame conversion failed", "error", err)
		}
		return
	}
	defer mat.Close()
	w.win.IMShow(mat)
	w.win.WaitKey(1)
}

// Close destroys the window.
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	err := w.win.Close()
	w.win = nil
	return err
}
