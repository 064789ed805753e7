package capture

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu       sync.Mutex
	openErr  error
	readErr  error
	opened   int
	closed   int
	settings Settings
	block    chan struct{}
}

func (f *fakeSource) Open(_ string, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	f.settings = s
	return nil
}

func (f *fakeSource) Read() (image.Image, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

type dialogSource struct {
	fakeSource
}

func (d *dialogSource) ShowSettings() error {
	<-d.block
	return nil
}

func TestDevice_OpenReadClose(t *testing.T) {
	src := &fakeSource{}
	d := NewDevice(src)
	if _, err := d.Read(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen before open, got %v", err)
	}
	hints := Settings{Resolution: image.Pt(640, 480), FrameRate: 60}
	if err := d.Open("0", hints); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.Open("0", hints); err != nil || src.opened != 1 {
		t.Fatalf("second open should be a no-op, opened=%d err=%v", src.opened, err)
	}
	if src.settings != hints || d.Name() != "0" {
		t.Fatalf("hints not forwarded: %+v", src.settings)
	}
	if img, err := d.Read(); err != nil || img == nil {
		t.Fatalf("read: %v", err)
	}
	_ = d.Close()
	_ = d.Close()
	if src.closed != 1 || d.IsOpen() {
		t.Fatalf("expected single close, got %d", src.closed)
	}
}

func TestDevice_OpenFailureWrapped(t *testing.T) {
	boom := errors.New("no such device")
	d := NewDevice(&fakeSource{openErr: boom})
	err := d.Open("cam", Settings{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if d.IsOpen() {
		t.Fatalf("device must stay closed")
	}
}

func TestDevice_SettingsHoldsCameraLock(t *testing.T) {
	src := &dialogSource{fakeSource{block: make(chan struct{})}}
	d := NewDevice(src)
	if err := d.Open("0", Settings{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	go func() { _ = d.ShowSettings() }()
	time.Sleep(20 * time.Millisecond)

	readDone := make(chan struct{})
	go func() {
		_, _ = d.Read()
		close(readDone)
	}()
	select {
	case <-readDone:
		t.Fatalf("read must wait for the settings dialog")
	case <-time.After(30 * time.Millisecond):
	}
	close(src.block)
	select {
	case <-readDone:
	case <-time.After(time.Second):
		t.Fatalf("read did not resume after dialog closed")
	}
}

func TestDevice_NoSettingsDialog(t *testing.T) {
	d := NewDevice(&fakeSource{})
	if err := d.ShowSettings(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	_ = d.Open("0", Settings{})
	if err := d.ShowSettings(); !errors.Is(err, ErrNoSettings) {
		t.Fatalf("expected ErrNoSettings, got %v", err)
	}
}

func TestShowSettings_TemporaryDevice(t *testing.T) {
	src := &dialogSource{fakeSource{block: make(chan struct{})}}
	close(src.block)
	if err := ShowSettings(src, "0"); err != nil {
		t.Fatalf("show settings: %v", err)
	}
	if src.opened != 1 || src.closed != 1 {
		t.Fatalf("expected open/close pair, got %d/%d", src.opened, src.closed)
	}
}

func TestToGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 2))
	rgba.Set(0, 0, color.RGBA{255, 255, 255, 255})
	rgba.Set(1, 0, color.RGBA{255, 0, 0, 255})
	rgba.Set(2, 1, color.RGBA{10, 200, 30, 255})
	g := ToGray(rgba)
	defer RecycleGray(g)
	if g.Bounds() != rgba.Bounds() {
		t.Fatalf("bounds mismatch %v", g.Bounds())
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := color.GrayModel.Convert(rgba.At(x, y)).(color.Gray).Y
			got := g.GrayAt(x, y).Y
			if d := int(want) - int(got); d < -1 || d > 1 {
				t.Fatalf("pixel (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}

	sub := rgba.SubImage(image.Rect(1, 0, 3, 2))
	gs := ToGray(sub)
	if gs.Bounds() != sub.Bounds() || gs.GrayAt(2, 1).Y != g.GrayAt(2, 1).Y {
		t.Fatalf("sub-image conversion mismatch")
	}

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 77})
	if ToGray(gray).GrayAt(1, 1).Y != 77 {
		t.Fatalf("gray copy mismatch")
	}
}

func TestScreenSource(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var gotRect image.Rectangle
	s := NewScreenSource(image.Rect(10, 10, 18, 18))
	s.grabRect = func(r image.Rectangle) (*image.RGBA, error) { gotRect = r; return frame, nil }
	s.grabScreen = func() (*image.RGBA, error) { return nil, errors.New("unexpected") }

	if _, err := s.Read(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	_ = s.Open("", Settings{})
	img, err := s.Read()
	if err != nil || img != frame || gotRect != image.Rect(10, 10, 18, 18) {
		t.Fatalf("unexpected read: %v %v", err, gotRect)
	}

	full := NewScreenSource(image.Rectangle{})
	full.grabScreen = func() (*image.RGBA, error) { return nil, errors.New("display gone") }
	_ = full.Open("", Settings{})
	if _, err := full.Read(); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed, got %v", err)
	}
}

func TestResolveCamera(t *testing.T) {
	root := t.TempDir()
	for name, label := range map[string]string{"video0": "Integrated Camera\n", "video2": "Logitech C920\n", "other": "x"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "name"), []byte(label), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := sysfsRoot
	sysfsRoot = root
	defer func() { sysfsRoot = old }()

	cams := ListCameras()
	if len(cams) != 2 || cams[0].Index != 0 || cams[1].Name != "Logitech C920" {
		t.Fatalf("unexpected cameras %+v", cams)
	}
	cases := map[string]int{"": 0, "3": 3, "/dev/video5": 5, "Logitech C920": 2, "Integrated Camera": 0}
	for in, want := range cases {
		got, err := ResolveCamera(in)
		if err != nil || got != want {
			t.Fatalf("ResolveCamera(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ResolveCamera("Nope"); !errors.Is(err, ErrUnknownCamera) {
		t.Fatalf("expected ErrUnknownCamera, got %v", err)
	}
}
