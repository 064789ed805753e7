package presenter

import (
	"image"
	"testing"
	"time"

	"github.com/soocke/headtrack-go/domain/pose"
	"github.com/soocke/headtrack-go/ui/model"
)

type fixedPose struct{ p pose.Pose }

func (f fixedPose) Pose() pose.Pose { return f.p }

type mockPoseView struct {
	pose     pose.Pose
	fps      float64
	previews int
}

func (v *mockPoseView) SetPose(p pose.Pose, fps float64) { v.pose, v.fps = p, fps }
func (v *mockPoseView) UpdatePreview(image.Image)        { v.previews++ }

func TestPosePresenter_RendersEachFrameOnce(t *testing.T) {
	want := pose.Pose{Yaw: 12, Z: 50}
	frames := model.NewFrameModel()
	view := &mockPoseView{}
	p := NewPosePresenter(fixedPose{want}, func() float64 { return 59.5 }, frames, view)

	p.Tick(time.Now())
	if view.pose != want || view.fps != 59.5 {
		t.Fatalf("view got %+v @ %v", view.pose, view.fps)
	}
	if view.previews != 0 {
		t.Fatalf("no frame yet, got %d previews", view.previews)
	}

	frames.Show(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	p.Tick(time.Now())
	p.Tick(time.Now())
	if view.previews != 1 {
		t.Fatalf("previews = %d, want 1", view.previews)
	}

	_ = frames.Close()
	p.Tick(time.Now())
	if view.previews != 1 {
		t.Fatalf("cleared frame must not be rendered")
	}
}

func TestLoop_TicksAndReschedules(t *testing.T) {
	view := &mockPoseView{}
	scheduled := 0
	l := NewLoop(nil, NewPosePresenter(fixedPose{pose.Pose{Roll: 3}}, nil, nil, view), func() { scheduled++ })
	l.Tick()
	l.Tick()
	if scheduled != 2 || view.pose.Roll != 3 {
		t.Fatalf("scheduled=%d pose=%+v", scheduled, view.pose)
	}
	var nilLoop *Loop
	nilLoop.Tick()
}
