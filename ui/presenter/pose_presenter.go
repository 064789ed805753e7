package presenter

import (
	"image"
	"time"

	"github.com/soocke/headtrack-go/domain/pose"
)

// PoseSource provides the latest published pose.
type PoseSource interface {
	Pose() pose.Pose
}

// FrameSource provides the latest annotated frame and its sequence number.
type FrameSource interface {
	Latest() (image.Image, uint64)
}

// PoseView renders the pose readout and the preview.
type PoseView interface {
	SetPose(p pose.Pose, fps float64)
	UpdatePreview(img image.Image)
}

// PosePresenter copies the pose, frame rate and newest frame to the view.
type PosePresenter struct {
	src     PoseSource
	fps     func() float64
	frames  FrameSource
	view    PoseView
	lastSeq uint64
}

// NewPosePresenter returns a presenter. fps and frames may be nil.
func NewPosePresenter(src PoseSource, fps func() float64, frames FrameSource, view PoseView) *PosePresenter {
	return &PosePresenter{src: src, fps: fps, frames: frames, view: view}
}

// Tick pushes the current values. A frame is rendered at most once.
func (p *PosePresenter) Tick(time.Time) {
	if p == nil || p.src == nil || p.view == nil {
		return
	}
	var rate float64
	if p.fps != nil {
		rate = p.fps()
	}
	p.view.SetPose(p.src.Pose(), rate)
	if p.frames == nil {
		return
	}
	img, seq := p.frames.Latest()
	if seq == p.lastSeq {
		return
	}
	p.lastSeq = seq
	if img != nil {
		p.view.UpdatePreview(img)
	}
}
