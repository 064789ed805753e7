package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
)

func TestAnnotate_DrawsOutlineCentroidAndText(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 120, 100))
	corners := []r2.Point{{X: 40, Y: 40}, {X: 100, Y: 40}, {X: 100, Y: 90}, {X: 40, Y: 90}}
	c := r2.Point{X: 70, Y: 65}
	out := Annotate(Frame{Image: src, Corners: corners, Centroid: &c, FPS: 59.6})
	if out == nil || out.Bounds() != src.Bounds() {
		t.Fatalf("unexpected output bounds")
	}
	if got := out.RGBAAt(70, 40); got != outlineColor {
		t.Fatalf("top edge not drawn: %v", got)
	}
	if got := out.RGBAAt(100, 60); got != outlineColor {
		t.Fatalf("right edge not drawn: %v", got)
	}
	if got := out.RGBAAt(40, 40); got != firstColor {
		t.Fatalf("first corner not highlighted: %v", got)
	}
	if got := out.RGBAAt(70, 65); got != centroidColor {
		t.Fatalf("centroid not drawn: %v", got)
	}
	text := 0
	for y := 5; y < 25; y++ {
		for x := 5; x < 70; x++ {
			if out.RGBAAt(x, y) == textColor {
				text++
			}
		}
	}
	if text == 0 {
		t.Fatalf("frame rate text not drawn")
	}
	// The source frame is untouched.
	if src.GrayAt(70, 40) != (color.Gray{}) {
		t.Fatalf("source modified")
	}
}

func TestAnnotate_ClipsAndTolerates(t *testing.T) {
	if Annotate(Frame{}) != nil {
		t.Fatalf("nil image should yield nil")
	}
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	off := r2.Point{X: -50, Y: 300}
	out := Annotate(Frame{Image: src, Corners: []r2.Point{{X: -10, Y: -10}, {X: 40, Y: 5}, {X: 5, Y: 40}}, Centroid: &off})
	if out == nil {
		t.Fatalf("expected output")
	}
}

func TestDisplayFunc(t *testing.T) {
	var got image.Image
	var d Display = DisplayFunc(func(img image.Image) { got = img })
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	d.Show(img)
	if got != img {
		t.Fatalf("display func not called")
	}
}

type closingDisplay struct {
	shown, closed int
}

func (d *closingDisplay) Show(image.Image) { d.shown++ }
func (d *closingDisplay) Close() error     { d.closed++; return nil }

func TestMulti_FansOutAndCloses(t *testing.T) {
	a := &closingDisplay{}
	var funcShown int
	m := Multi{a, nil, DisplayFunc(func(image.Image) { funcShown++ })}
	m.Show(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if a.shown != 1 || funcShown != 1 {
		t.Fatalf("shown a=%d func=%d", a.shown, funcShown)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.closed != 1 {
		t.Fatalf("closer not closed")
	}
}

type frameRecorder struct {
	frames []Frame
	shown  int
}

func (d *frameRecorder) Show(image.Image)  { d.shown++ }
func (d *frameRecorder) ShowFrame(f Frame) { d.frames = append(d.frames, f) }

func TestPresent_RoutesByDisplayKind(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 20, 20))
	f := Frame{Image: src, FPS: 30}

	raw := &frameRecorder{}
	Present(raw, f)
	if len(raw.frames) != 1 || raw.shown != 0 || raw.frames[0].Image != src {
		t.Fatalf("frame display got frames=%d shown=%d", len(raw.frames), raw.shown)
	}

	var got image.Image
	Present(DisplayFunc(func(img image.Image) { got = img }), f)
	if _, ok := got.(*image.RGBA); !ok {
		t.Fatalf("plain display got %T, want annotated RGBA", got)
	}

	Present(nil, f)
}

func TestMulti_ShowFrameAnnotatesOnce(t *testing.T) {
	var imgs []image.Image
	plain := DisplayFunc(func(img image.Image) { imgs = append(imgs, img) })
	raw := &frameRecorder{}
	m := Multi{plain, nil, raw, plain}

	m.ShowFrame(Frame{Image: image.NewGray(image.Rect(0, 0, 8, 8))})
	if len(raw.frames) != 1 {
		t.Fatalf("frame display got %d frames", len(raw.frames))
	}
	if len(imgs) != 2 || imgs[0] != imgs[1] {
		t.Fatalf("plain displays must share one annotated image, got %d", len(imgs))
	}
}
