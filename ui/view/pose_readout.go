package view

import (
	"fmt"

	"github.com/soocke/headtrack-go/domain/pose"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// PoseReadout shows the six pose components and the frame rate.
type PoseReadout interface {
	SetPose(p pose.Pose, fps float64)
}

var poseNames = [6]string{"Yaw", "Pitch", "Roll", "X", "Y", "Z"}

type poseReadout struct {
	values [6]*LabelWidget
	fps    *LabelWidget
	last   [6]float64
	shown  bool
}

// NewPoseReadout lays out one name/value column pair per component inside
// parent at the given row.
func NewPoseReadout(parent *FrameWidget, row int) PoseReadout {
	r := &poseReadout{}
	for i, name := range poseNames {
		lbl := Label(Txt(name+":"), Anchor("e"))
		Grid(lbl, In(parent), Row(row), Column(2*i), Sticky("e"), Padx("0.2m"))
		r.values[i] = Label(Txt("0.00"), Width(8), Anchor("w"))
		Grid(r.values[i], In(parent), Row(row), Column(2*i+1), Sticky("w"), Padx("0.2m"))
	}
	r.fps = Label(Txt("Hz: 0"), Width(8))
	Grid(r.fps, In(parent), Row(row), Column(12), Sticky("w"), Padx("0.6m"))
	return r
}

func (r *poseReadout) SetPose(p pose.Pose, fps float64) {
	if r == nil || r.fps == nil {
		return
	}
	vals := p.Array()
	for i, v := range vals {
		if r.shown && r.last[i] == v {
			continue
		}
		r.values[i].Configure(Txt(fmt.Sprintf("%.2f", v)))
	}
	r.last, r.shown = vals, true
	r.fps.Configure(Txt(fmt.Sprintf("Hz: %.0f", fps)))
}
