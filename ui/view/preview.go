package view

import (
	"image"

	"github.com/soocke/headtrack-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows the annotated camera frame.
type Preview interface {
	UpdatePreview(img image.Image)
	Reset()
}

type preview struct {
	label *LabelWidget
	photo *Img // current Tk photo; deleted before it is replaced
	maxW  int
	maxH  int
}

const (
	maxPreviewW = 480
	maxPreviewH = 360
)

func placeholder() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, 320, 240)))
}

// NewPreview creates the preview label spanning the given grid row.
func NewPreview(row, columns int) Preview {
	photo := NewPhoto(Data(placeholder()))
	lbl := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(lbl, Row(row), Column(0), Columnspan(columns), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &preview{label: lbl, photo: photo, maxW: maxPreviewW, maxH: maxPreviewH}
}

func (v *preview) replace(png []byte) {
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = NewPhoto(Data(png))
	v.label.Configure(Image(v.photo))
}

func (v *preview) UpdatePreview(img image.Image) {
	if v == nil || v.label == nil || img == nil {
		return
	}
	v.replace(images.EncodePNG(images.ScaleToFit(img, v.maxW, v.maxH)))
}

func (v *preview) Reset() {
	if v == nil || v.label == nil {
		return
	}
	v.replace(placeholder())
}
