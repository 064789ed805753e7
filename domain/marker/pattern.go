package marker

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
)

// Pattern is the 5×5 interior of a marker, row-major, true for white cells.
type Pattern [GridCells - 2][GridCells - 2]bool

// DefaultPattern is the marker printed by the tracker. Its top-left inner
// corner is the only white inner corner.
var DefaultPattern = Pattern{
	{true, false, true, true, false},
	{false, true, false, false, true},
	{true, false, true, false, true},
	{false, false, true, true, false},
	{false, true, false, true, false},
}

// dark reports whether grid cell (col,row) of the full marker is black.
func (p Pattern) dark(col, row int) bool {
	if col <= 0 || row <= 0 || col >= GridCells-1 || row >= GridCells-1 {
		return true
	}
	return !p[row-1][col-1]
}

// Render draws the marker with its corners at quad (top-left, top-right,
// bottom-right, bottom-left) onto a white w×h image. Pixel (x,y) covers
// [x,x+1)×[y,y+1).
func Render(p Pattern, quad [4]r2.Point, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var q [4]point
	for i, c := range quad {
		q[i] = point{c.X, c.Y}
	}
	fwd, ok := squareToQuad(q)
	if !ok {
		return img
	}
	inv, ok := fwd.inverse()
	if !ok {
		return img
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := inv.apply(float64(x)+0.5, float64(y)+0.5)
			if uv.X < 0 || uv.Y < 0 || uv.X >= 1 || uv.Y >= 1 {
				continue
			}
			col := int(math.Floor(uv.X * GridCells))
			row := int(math.Floor(uv.Y * GridCells))
			if p.dark(col, row) {
				img.SetGray(x, y, color.Gray{})
			}
		}
	}
	return img
}

// Square renders an upright marker with a one-cell white quiet zone, cell
// pixels per cell.
func Square(p Pattern, cell int) *image.Gray {
	if cell < 1 {
		cell = 1
	}
	size := (GridCells + 2) * cell
	lo, hi := float64(cell), float64((GridCells+1)*cell)
	return Render(p, [4]r2.Point{{X: lo, Y: lo}, {X: hi, Y: lo}, {X: hi, Y: hi}, {X: lo, Y: hi}}, size, size)
}
