package capture

import (
	"image"
	"image/draw"
	"sync"
)

// Grayscale conversion buffers are pooled: the capture loop converts every
// frame and would otherwise allocate a full-frame buffer each iteration.
// Consumers that keep a frame past the iteration must not recycle it.

var grayPool sync.Pool // stores *image.Gray

// acquireGray returns a reusable gray image with bounds r. Pix length is
// exactly the rectangle area and Stride is its width.
func acquireGray(r image.Rectangle) *image.Gray {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &image.Gray{Rect: r}
	}
	needed := w * h
	var img *image.Gray
	if v := grayPool.Get(); v != nil {
		img = v.(*image.Gray)
	}
	if img == nil || cap(img.Pix) < needed {
		return &image.Gray{Pix: make([]byte, needed), Stride: w, Rect: r}
	}
	img.Stride = w
	img.Rect = r
	img.Pix = img.Pix[:needed]
	return img
}

// RecycleGray returns a frame obtained from ToGray to the pool. The caller
// must not use img afterwards.
func RecycleGray(img *image.Gray) {
	if img == nil || img.Pix == nil {
		return
	}
	grayPool.Put(img)
}

// ToGray converts img to 8-bit luma in a pooled buffer with the same bounds.
// RGBA and NRGBA frames take a fast path using the ITU-R 601 weights of
// color.GrayModel.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := acquireGray(b)
	switch src := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			copy(dst.Pix[dst.PixOffset(b.Min.X, y):dst.PixOffset(b.Max.X-1, y)+1],
				src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X-1, y)+1])
		}
	case *image.RGBA:
		rgbaToGray(dst, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	case *image.NRGBA:
		rgbaToGray(dst, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	default:
		draw.Draw(dst, b, img, b.Min, draw.Src)
	}
	return dst
}

func rgbaToGray(dst *image.Gray, pix []uint8, stride, off int) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := 0; y < h; y++ {
		row := pix[off+y*stride : off+y*stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range out {
			r, g, b := uint32(row[4*x]), uint32(row[4*x+1]), uint32(row[4*x+2])
			// Same weights as color.GrayModel, on 8-bit channels.
			out[x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
}
