package tracker

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/domain/pose"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// frameSource serves the same frame forever after failing the first
// failReads reads. With panicAt set, read number panicAt panics.
type frameSource struct {
	frame     image.Image
	openErr   error
	failReads int32
	panicAt   int32

	reads    atomic.Int32
	closed   atomic.Bool
	settings atomic.Int32
	opened   string
}

func (s *frameSource) Open(name string, _ capture.Settings) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = name
	return nil
}

func (s *frameSource) Read() (image.Image, error) {
	n := s.reads.Add(1)
	if s.panicAt > 0 && n == s.panicAt {
		panic("device fault")
	}
	if n <= s.failReads {
		return nil, capture.ErrReadFailed
	}
	return s.frame, nil
}

func (s *frameSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *frameSource) ShowSettings() error {
	s.settings.Add(1)
	return nil
}

type recordingDisplay struct {
	mu     sync.Mutex
	shown  int
	closed bool
}

func (d *recordingDisplay) Show(img image.Image) {
	d.mu.Lock()
	if img != nil {
		d.shown++
	}
	d.mu.Unlock()
}

func (d *recordingDisplay) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *recordingDisplay) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SettleDelayMs = 30
	return cfg
}

func newTestTracker(src *frameSource, cfg *config.Config) *Tracker {
	return New(discardLogger(), cfg, func() capture.Source { return src })
}

func TestStart_PublishesPose(t *testing.T) {
	src := &frameSource{frame: renderTruth(640, 480)}
	tr := newTestTracker(src, testConfig())
	disp := &recordingDisplay{}

	if err := tr.Start(disp); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tr.Stop()
	if !tr.Running() {
		t.Fatalf("expected running")
	}
	waitFor(t, 5*time.Second, func() bool { return tr.Stats().ROIHits >= 2 })

	got := tr.Pose()
	want := pose.FromSolution(pose.Solution{R: truthR, T: truthT}, 0.1)
	if d := got.Z - want.Z; d > 2 || d < -2 {
		t.Fatalf("Z = %.2f, want %.2f", got.Z, want.Z)
	}
	if disp.count() == 0 {
		t.Fatalf("display received no frames")
	}
	if src.opened != "0" {
		t.Fatalf("opened %q, want default camera", src.opened)
	}
	if tr.Stats().RunID == "" {
		t.Fatalf("missing run id")
	}
}

func TestStart_OpenFailureLeavesPoseUntouched(t *testing.T) {
	openErr := errors.New("no such device")
	src := &frameSource{openErr: openErr}
	tr := newTestTracker(src, testConfig())

	err := tr.Start(nil)
	if !errors.Is(err, openErr) {
		t.Fatalf("Start error = %v, want %v", err, openErr)
	}
	if tr.Running() {
		t.Fatalf("loop must not run after open failure")
	}
	if tr.Pose() != (pose.Pose{}) {
		t.Fatalf("pose must stay zero, got %+v", tr.Pose())
	}
	if src.reads.Load() != 0 {
		t.Fatalf("no frames should be read")
	}
	tr.Stop()
}

func TestStart_TwiceReturnsErrRunning(t *testing.T) {
	src := &frameSource{frame: image.NewGray(image.Rect(0, 0, 64, 48))}
	tr := newTestTracker(src, testConfig())
	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tr.Stop()
	if err := tr.Start(nil); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Start = %v, want ErrRunning", err)
	}
}

func TestLoop_RetriesTransientReadFailures(t *testing.T) {
	src := &frameSource{frame: renderTruth(640, 480), failReads: 5}
	tr := newTestTracker(src, testConfig())
	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tr.Stop()

	waitFor(t, 5*time.Second, func() bool { return tr.Pose() != (pose.Pose{}) })
	if got := tr.Stats().ReadFailures; got != 5 {
		t.Fatalf("read failures = %d, want 5", got)
	}
}

func TestLoop_NoMarkerKeepsZeroPose(t *testing.T) {
	src := &frameSource{frame: image.NewGray(image.Rect(0, 0, 64, 48))}
	tr := newTestTracker(src, testConfig())
	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return tr.Stats().DetectFailures >= 3 })
	tr.Stop()
	if tr.Pose() != (pose.Pose{}) {
		t.Fatalf("pose published without a marker: %+v", tr.Pose())
	}
}

func TestStop_SettlesThenReleases(t *testing.T) {
	src := &frameSource{frame: image.NewGray(image.Rect(0, 0, 64, 48))}
	tr := newTestTracker(src, testConfig())
	disp := &recordingDisplay{}
	if err := tr.Start(disp); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return src.reads.Load() > 0 })

	start := time.Now()
	tr.Stop()
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("Stop returned after %v, before the settle delay", elapsed)
	}
	if tr.Running() {
		t.Fatalf("still running after Stop")
	}
	if !src.closed.Load() {
		t.Fatalf("source not closed")
	}
	disp.mu.Lock()
	closed := disp.closed
	disp.mu.Unlock()
	if !closed {
		t.Fatalf("display not closed")
	}

	// Stop on a stopped tracker is a no-op and a new session can start.
	tr.Stop()
	src.closed.Store(false)
	if err := tr.Start(nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	tr.Stop()
}

func TestStart_ClearsPreviousSessionPose(t *testing.T) {
	src := &frameSource{frame: renderTruth(640, 480)}
	tr := newTestTracker(src, testConfig())
	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { _, ok := tr.RT(); return ok })
	tr.Stop()
	if tr.Pose() == (pose.Pose{}) {
		t.Fatalf("first session published no pose")
	}

	src.frame = image.NewGray(image.Rect(0, 0, 640, 480))
	if err := tr.Start(nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer tr.Stop()
	waitFor(t, 2*time.Second, func() bool { return tr.Stats().DetectFailures >= 5 })
	if got := tr.Pose(); got != (pose.Pose{}) {
		t.Fatalf("stale pose after restart: %+v", got)
	}
	if _, ok := tr.RT(); ok {
		t.Fatalf("RT still reported after restart")
	}
}

func TestLoop_PanicStopsRunning(t *testing.T) {
	src := &frameSource{frame: image.NewGray(image.Rect(0, 0, 64, 48)), panicAt: 3}
	tr := newTestTracker(src, testConfig())
	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return !tr.Running() })
	if src.closed.Load() {
		t.Fatalf("device released before Stop")
	}
	tr.Stop()
	if !src.closed.Load() {
		t.Fatalf("Stop did not release the device after a loop panic")
	}
	if err := tr.Start(nil); err != nil {
		t.Fatalf("restart after panic: %v", err)
	}
	tr.Stop()
}

func TestOpenCameraSettings(t *testing.T) {
	src := &frameSource{frame: image.NewGray(image.Rect(0, 0, 64, 48))}
	tr := newTestTracker(src, testConfig())

	if err := tr.OpenCameraSettings(); err != nil {
		t.Fatalf("settings while stopped: %v", err)
	}
	if !src.closed.Load() {
		t.Fatalf("temporary device not released")
	}

	if err := tr.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tr.Stop()
	if err := tr.OpenCameraSettings(); err != nil {
		t.Fatalf("settings while running: %v", err)
	}
	if got := src.settings.Load(); got != 2 {
		t.Fatalf("settings shown %d times, want 2", got)
	}
}

func TestHeadOffset(t *testing.T) {
	cfg := testConfig()
	cfg.HeadOffsetZ = -90
	tr := newTestTracker(&frameSource{}, cfg)
	if got := tr.HeadOffset().Z; got != -90 {
		t.Fatalf("offset from config = %v", got)
	}
	cfg.HeadOffsetX = 4
	tr.Configure(cfg)
	if got := tr.HeadOffset().X; got != 4 {
		t.Fatalf("offset after Configure = %v", got)
	}
}
