package opencv

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/golang/geo/r2"
	"github.com/soocke/headtrack-go/domain/overlay"
	"gocv.io/x/gocv"
)

var (
	outlineColor  = color.RGBA{R: 255, A: 255}
	firstColor    = color.RGBA{G: 255, A: 255}
	centroidColor = color.RGBA{B: 255, G: 128, A: 255}
	textColor     = color.RGBA{R: 255, G: 255, A: 255}
)

// frameMat converts f.Image to a BGR Mat and draws the marker outline, the
// first corner, the projected centroid and the frame rate onto it.
func frameMat(f overlay.Frame) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return mat, err
	}
	off := f.Image.Bounds().Min
	pt := func(p r2.Point) image.Point {
		return image.Pt(int(math.Round(p.X))-off.X, int(math.Round(p.Y))-off.Y)
	}
	if len(f.Corners) > 1 {
		for i := range f.Corners {
			gocv.Line(&mat, pt(f.Corners[i]), pt(f.Corners[(i+1)%len(f.Corners)]), outlineColor, 1)
		}
		gocv.Circle(&mat, pt(f.Corners[0]), 3, firstColor, -1)
	}
	if f.Centroid != nil {
		gocv.Circle(&mat, pt(*f.Centroid), 4, centroidColor, -1)
	}
	gocv.PutText(&mat, fmt.Sprintf("Hz: %d", int(math.Round(f.FPS))), image.Pt(10, 20),
		gocv.FontHersheySimplex, 0.5, textColor, 1)
	return mat, nil
}

// Annotator draws frames with OpenCV and forwards the result to Next.
type Annotator struct {
	Next overlay.Display
}

var _ overlay.FrameDisplay = (*Annotator)(nil)

// NewAnnotator returns an annotator in front of next.
func NewAnnotator(next overlay.Display) *Annotator {
	return &Annotator{Next: next}
}

// Show implements overlay.Display for frames that are already annotated.
func (a *Annotator) Show(img image.Image) {
	if a.Next != nil {
		a.Next.Show(img)
	}
}

// ShowFrame implements overlay.FrameDisplay. Frames that cannot be
// converted are passed on with the pure-Go annotation.
func (a *Annotator) ShowFrame(f overlay.Frame) {
	if a.Next == nil || f.Image == nil {
		return
	}
	mat, err := frameMat(f)
	if err != nil {
		a.Next.Show(overlay.Annotate(f))
		return
	}
	defer mat.Close()
	img, err := mat.ToImage()
	if err != nil {
		a.Next.Show(overlay.Annotate(f))
		return
	}
	a.Next.Show(img)
}

// Close closes Next when it is an io.Closer.
func (a *Annotator) Close() error {
	if c, ok := a.Next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
