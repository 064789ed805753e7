package capture

import (
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// ScreenSource grabs a fixed screen region, or the whole screen when the
// region is empty. It lets the tracker run against a video played on the
// desktop without a camera.
type ScreenSource struct {
	rect image.Rectangle
	open bool

	// grab functions are swapped in tests.
	grabRect   func(image.Rectangle) (*image.RGBA, error)
	grabScreen func() (*image.RGBA, error)
}

// NewScreenSource returns a source for rect; an empty rect captures the
// full screen.
func NewScreenSource(rect image.Rectangle) *ScreenSource {
	return &ScreenSource{
		rect:       rect,
		grabRect:   screenshot.CaptureRect,
		grabScreen: screenshot.CaptureScreen,
	}
}

// Open implements Source. The name and hints are ignored; the region is
// fixed at construction.
func (s *ScreenSource) Open(string, Settings) error {
	s.open = true
	return nil
}

// Read implements Source.
func (s *ScreenSource) Read() (image.Image, error) {
	if !s.open {
		return nil, ErrNotOpen
	}
	var (
		img *image.RGBA
		err error
	)
	if s.rect.Empty() {
		img, err = s.grabScreen()
	} else {
		img, err = s.grabRect(s.rect)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return img, nil
}

// Close implements Source.
func (s *ScreenSource) Close() error {
	s.open = false
	return nil
}
