// Package overlay annotates frames for the debug view.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Display receives annotated frames. Each frame is freshly allocated, so a
// display may keep it. Show is called from the capture goroutine.
type Display interface {
	Show(img image.Image)
}

// FrameDisplay is a Display that draws the annotations itself.
type FrameDisplay interface {
	Display
	ShowFrame(f Frame)
}

// Present hands f to d. A FrameDisplay receives the raw frame; any other
// display gets the frame drawn by Annotate.
func Present(d Display, f Frame) {
	switch d := d.(type) {
	case nil:
	case FrameDisplay:
		d.ShowFrame(f)
	default:
		d.Show(Annotate(f))
	}
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(image.Image)

// Show implements Display.
func (f DisplayFunc) Show(img image.Image) { f(img) }

// Multi fans frames out to several displays. Nil entries are skipped.
type Multi []Display

// Show implements Display.
func (m Multi) Show(img image.Image) {
	for _, d := range m {
		if d != nil {
			d.Show(img)
		}
	}
}

// ShowFrame implements FrameDisplay. Annotate runs at most once for the
// members that are not FrameDisplays.
func (m Multi) ShowFrame(f Frame) {
	var annotated image.Image
	for _, d := range m {
		switch d := d.(type) {
		case nil:
		case FrameDisplay:
			d.ShowFrame(f)
		default:
			if annotated == nil {
				annotated = Annotate(f)
			}
			d.Show(annotated)
		}
	}
}

// Close closes every display that implements io.Closer and returns the
// first error.
func (m Multi) Close() error {
	var first error
	for _, d := range m {
		if c, ok := d.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

var (
	outlineColor  = color.RGBA{R: 255, A: 255}
	firstColor    = color.RGBA{G: 255, A: 255}
	centroidColor = color.RGBA{B: 255, G: 128, A: 255}
	textColor     = color.RGBA{R: 255, G: 255, A: 255}
)

// Frame is the input to Annotate. Corners and Centroid are optional.
type Frame struct {
	Image    image.Image
	Corners  []r2.Point
	Centroid *r2.Point
	FPS      float64
}

// Annotate copies the frame into a new RGBA image and draws the marker
// outline, the projected model centroid and the frame rate onto it.
func Annotate(f Frame) *image.RGBA {
	if f.Image == nil {
		return nil
	}
	b := f.Image.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, f.Image, b.Min, draw.Src)

	if len(f.Corners) > 1 {
		for i := range f.Corners {
			a, c := f.Corners[i], f.Corners[(i+1)%len(f.Corners)]
			line(dst, a, c, outlineColor)
		}
		// Highlight the first corner so orientation is visible.
		disc(dst, f.Corners[0], 3, firstColor)
	}
	if f.Centroid != nil {
		disc(dst, *f.Centroid, 4, centroidColor)
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(b.Min.X+10, b.Min.Y+20),
	}
	d.DrawString(fmt.Sprintf("Hz: %d", int(math.Round(f.FPS))))
	return dst
}

// line draws a one pixel Bresenham line clipped to dst.
func line(dst *image.RGBA, a, b r2.Point, c color.RGBA) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	bounds := dst.Bounds()
	for i := 0; i < dx-dy+1; i++ {
		if (image.Point{x0, y0}).In(bounds) {
			dst.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func disc(dst *image.RGBA, p r2.Point, r int, c color.RGBA) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	b := dst.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) > r*r || !(image.Point{x, y}).In(b) {
				continue
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
