package opencv

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/soocke/headtrack-go/domain/marker"
	"github.com/soocke/headtrack-go/domain/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCorners(t *testing.T, want [4]r2.Point, got []r2.Point, delta float64) {
	t.Helper()
	require.Len(t, got, 4)
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, delta, "corner %d x", i)
		assert.InDelta(t, want[i].Y, got[i].Y, delta, "corner %d y", i)
	}
}

func TestContourDetector_UprightSquare(t *testing.T) {
	img := marker.Square(marker.DefaultPattern, 10)
	got := NewContourDetector(0).Detect(img, 0.05, 1)
	require.Len(t, got, 1)
	assertCorners(t, [4]r2.Point{{X: 10, Y: 10}, {X: 80, Y: 10}, {X: 80, Y: 80}, {X: 10, Y: 80}}, got[0], 1.0)
}

func TestContourDetector_OrientationFollowsMarker(t *testing.T) {
	quad := [4]r2.Point{{X: 80, Y: 10}, {X: 80, Y: 80}, {X: 10, Y: 80}, {X: 10, Y: 10}}
	img := marker.Render(marker.DefaultPattern, quad, 90, 90)
	got := NewContourDetector(0).Detect(img, 0.05, 1)
	require.Len(t, got, 1)
	assertCorners(t, quad, got[0], 1.0)
}

func TestContourDetector_MatchesBorderDetector(t *testing.T) {
	quad := [4]r2.Point{{X: 120, Y: 90}, {X: 260, Y: 110}, {X: 250, Y: 240}, {X: 110, Y: 230}}
	img := marker.Render(marker.DefaultPattern, quad, 400, 300)
	sub := img.SubImage(image.Rect(90, 70, 290, 270)).(*image.Gray)

	cv := NewContourDetector(0).Detect(sub, 0.05, 1)
	pure := marker.NewBorderDetector(0).Detect(sub, 0.05, 1)
	require.Len(t, cv, 1)
	require.Len(t, pure, 1)
	assertCorners(t, quad, cv[0], 1.5)
	for i := range pure[0] {
		assert.InDelta(t, pure[0][i].X, cv[0][i].X, 2.0)
		assert.InDelta(t, pure[0][i].Y, cv[0][i].Y, 2.0)
	}
}

func TestContourDetector_SizeBoundsAndPlainShapes(t *testing.T) {
	d := NewContourDetector(0)
	img := marker.Square(marker.DefaultPattern, 10)
	assert.Empty(t, d.Detect(img, 0.05, 0.5))
	assert.Empty(t, d.Detect(img, 0.9, 1))

	solid := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range solid.Pix {
		solid.Pix[i] = 0xff
	}
	assert.Empty(t, d.Detect(solid, 0.05, 1))
	for y := 20; y < 90; y++ {
		for x := 20; x < 90; x++ {
			solid.SetGray(x, y, color.Gray{})
		}
	}
	assert.Empty(t, d.Detect(solid, 0.05, 1))
	assert.Empty(t, d.Detect(nil, 0.05, 1))
}

func TestAnnotator_DrawsAndForwards(t *testing.T) {
	var got image.Image
	a := NewAnnotator(overlay.DisplayFunc(func(img image.Image) { got = img }))
	src := image.NewGray(image.Rect(0, 0, 120, 100))
	c := r2.Point{X: 60, Y: 50}
	overlay.Present(a, overlay.Frame{
		Image:    src,
		Corners:  []r2.Point{{X: 20, Y: 20}, {X: 100, Y: 20}, {X: 100, Y: 80}, {X: 20, Y: 80}},
		Centroid: &c,
		FPS:      30,
	})
	require.NotNil(t, got)
	assert.Equal(t, src.Bounds().Size(), got.Bounds().Size())
	r, g, b, _ := got.At(60, 50).RGBA()
	assert.NotZero(t, r|g|b, "centroid not drawn")
	r, _, _, _ = got.At(60, 20).RGBA()
	assert.NotZero(t, r, "outline not drawn")
	assert.NoError(t, a.Close())
}
