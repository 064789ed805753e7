package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// MarkerPNG contains the printable tracking marker: 7×7 cells plus a one
// cell quiet zone, 20 pixels per cell.
//
//go:embed marker.png
var MarkerPNG []byte

// MarkerImage decodes the embedded marker and, when px > 0, scales it to a
// px×px square with nearest-neighbour sampling so cell edges stay sharp.
func MarkerImage(px int) (image.Image, error) {
	if len(MarkerPNG) == 0 {
		return nil, fmt.Errorf("embedded marker.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(MarkerPNG))
	if err != nil {
		return nil, err
	}
	if px <= 0 || px == img.Bounds().Dx() {
		return img, nil
	}
	dst := image.NewGray(image.Rect(0, 0, px, px))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}
