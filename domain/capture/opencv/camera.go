// Package opencv provides the OpenCV-backed camera source and debug window.
// It is the only package that needs cgo.
package opencv

import (
	"fmt"
	"image"

	"github.com/soocke/headtrack-go/domain/capture"
	"gocv.io/x/gocv"
)

// Camera reads frames from a video device through OpenCV.
type Camera struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// NewCamera returns a closed camera source.
func NewCamera() capture.Source { return &Camera{} }

// Open implements capture.Source. name is resolved with capture.ResolveCamera.
func (c *Camera) Open(name string, s capture.Settings) error {
	idx, err := capture.ResolveCamera(name)
	if err != nil {
		return err
	}
	vc, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		return err
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return fmt.Errorf("camera %d did not open", idx)
	}
	if s.Resolution.X > 0 && s.Resolution.Y > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(s.Resolution.X))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(s.Resolution.Y))
	}
	if s.FrameRate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(s.FrameRate))
	}
	c.vc = vc
	c.mat = gocv.NewMat()
	return nil
}

// Read implements capture.Source. The returned image is a fresh copy.
func (c *Camera) Read() (image.Image, error) {
	if c.vc == nil {
		return nil, capture.ErrNotOpen
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, capture.ErrReadFailed
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrReadFailed, err)
	}
	return img, nil
}

// ShowSettings implements capture.SettingsDialog. Only backends with a
// native property page (DirectShow) react to it.
func (c *Camera) ShowSettings() error {
	if c.vc == nil {
		return capture.ErrNotOpen
	}
	c.vc.Set(gocv.VideoCaptureSettings, 1)
	return nil
}

// Close implements capture.Source.
func (c *Camera) Close() error {
	if c.vc == nil {
		return nil
	}
	_ = c.mat.Close()
	err := c.vc.Close()
	c.vc = nil
	return err
}
