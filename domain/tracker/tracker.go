// Package tracker runs the capture loop: read a frame, find the marker,
// solve its pose and publish it.
package tracker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/domain/fps"
	"github.com/soocke/headtrack-go/domain/marker"
	"github.com/soocke/headtrack-go/domain/overlay"
	"github.com/soocke/headtrack-go/domain/pose"
	"github.com/soocke/headtrack-go/domain/roi"
)

// ErrRunning is returned by Start while a session is active.
var ErrRunning = errors.New("tracker: already running")

// readRetryDelay keeps a failing device from spinning the loop hot.
const readRetryDelay = time.Millisecond

// HeadTracker is the capability the host uses to drive a tracker.
type HeadTracker interface {
	Start(display overlay.Display) error
	Stop()
	Pose() pose.Pose
}

var _ HeadTracker = (*Tracker)(nil)

// Tracker owns the capture loop and the published pose.
type Tracker struct {
	logger  *slog.Logger
	cfg     config.Config
	factory capture.Factory

	newDetector DetectorFactory
	solver      poseSolver

	store pose.Store

	offsetMu sync.Mutex
	offset   r3.Vector

	// lifecycle
	mu      sync.Mutex
	running atomic.Bool
	alive   atomic.Bool
	stop    atomic.Bool
	done    chan struct{}
	device  *capture.Device
	display overlay.Display
	runID   atomic.Value // string

	stats counters
}

// DetectorFactory builds the marker detector for a session from the
// configured threshold.
type DetectorFactory func(thr uint8) marker.Detector

// Option customises a Tracker.
type Option func(*Tracker)

// WithDetector replaces the default pure-Go detector.
func WithDetector(f DetectorFactory) Option {
	return func(t *Tracker) {
		if f != nil {
			t.newDetector = f
		}
	}
}

// New returns a stopped tracker. cfg is copied; the head offset can be
// changed later with SetHeadOffset, everything else applies on the next
// Start via Configure.
func New(logger *slog.Logger, cfg *config.Config, factory capture.Factory, opts ...Option) *Tracker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	t := &Tracker{
		logger:  logger,
		cfg:     *cfg,
		factory: factory,
		newDetector: func(thr uint8) marker.Detector {
			return marker.NewBorderDetector(thr)
		},
		solver: pose.Solver{},
		offset: cfg.HeadOffset(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configure replaces the configuration used by the next session and the
// head offset immediately.
func (t *Tracker) Configure(cfg *config.Config) {
	if cfg == nil {
		return
	}
	t.mu.Lock()
	t.cfg = *cfg
	t.mu.Unlock()
	t.SetHeadOffset(cfg.HeadOffset())
}

// HeadOffset returns the head-centre offset used to build the marker model.
func (t *Tracker) HeadOffset() r3.Vector {
	t.offsetMu.Lock()
	defer t.offsetMu.Unlock()
	return t.offset
}

// SetHeadOffset changes the model offset; the next frame uses it.
func (t *Tracker) SetHeadOffset(v r3.Vector) {
	t.offsetMu.Lock()
	t.offset = v
	t.offsetMu.Unlock()
}

// Pose returns the latest published pose, all zero before the first solve.
func (t *Tracker) Pose() pose.Pose { return t.store.Pose() }

// RT returns the solver-space pair of the latest solve.
func (t *Tracker) RT() (pose.RT, bool) { return t.store.RT() }

// Running reports whether the capture loop is active. It turns false when
// the loop dies on its own; Stop still has to be called to release the
// camera.
func (t *Tracker) Running() bool { return t.running.Load() && t.alive.Load() }

// Stats returns loop counters for the current or last session.
func (t *Tracker) Stats() Stats {
	id, _ := t.runID.Load().(string)
	return t.stats.snapshot(id)
}

// Start opens the camera and starts the capture loop. display may be nil.
// When the camera cannot be opened the loop does not start, the pose is left
// untouched and the error is returned. Otherwise the pose from any previous
// session is cleared before the first frame.
func (t *Tracker) Start(display overlay.Display) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running.Load() {
		return ErrRunning
	}
	if t.factory == nil {
		return fmt.Errorf("tracker: no capture source")
	}
	cfg := t.cfg
	runID := uuid.NewString()
	log := t.logger
	if log != nil {
		log = log.With("run", runID)
	}

	dev := capture.NewDevice(t.factory())
	hints := capture.Settings{Resolution: cfg.ResolutionSize(), FrameRate: cfg.FrameRateHint()}
	if err := dev.Open(cfg.CameraName, hints); err != nil {
		if log != nil {
			log.Error("camera open failed", "camera", cfg.CameraName, "error", err)
		}
		return err
	}

	p := &pipeline{
		params: params{
			fov:          float64(cfg.FOV),
			halfSize:     cfg.MarkerHalfSize,
			searchWindow: cfg.SearchWindow,
			scale:        cfg.TranslationScale,
		},
		roi:    roi.NewPredictor(t.newDetector(uint8(cfg.Threshold)), cfg.MarkerSizeMin, cfg.MarkerSizeMax),
		solver: t.solver,
		store:  &t.store,
		offset: t.HeadOffset,
	}

	t.store.Reset()
	t.stats.reset()
	t.stop.Store(false)
	t.alive.Store(true)
	t.running.Store(true)
	t.done = make(chan struct{})
	t.device, t.display = dev, display
	t.runID.Store(runID)
	go t.loop(log, p, dev, display, t.done)
	if log != nil {
		log.Info("tracking started", "camera", cfg.CameraName, "resolution", hints.Resolution, "fps_hint", hints.FrameRate)
	}
	return nil
}

// Stop signals the loop, waits for the in-flight frame, waits the settle
// delay and then releases the camera and display. Some capture drivers
// misbehave when a device is reopened right after release.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running.Load() {
		return
	}
	t.stop.Store(true)
	<-t.done
	if d := t.cfg.SettleDelay(); d > 0 {
		time.Sleep(d)
	}
	if err := t.device.Close(); err != nil && t.logger != nil {
		t.logger.Warn("camera close failed", "error", err)
	}
	if c, ok := t.display.(io.Closer); ok {
		_ = c.Close()
	}
	t.device, t.display = nil, nil
	t.running.Store(false)
	if t.logger != nil {
		t.logger.Info("tracking stopped", "run", t.runID.Load())
	}
}

// OpenCameraSettings shows the camera's settings dialog. While tracking the
// running device is used under the camera lock, pausing the loop; otherwise
// a temporary device is opened.
func (t *Tracker) OpenCameraSettings() error {
	t.mu.Lock()
	dev, name, factory := t.device, t.cfg.CameraName, t.factory
	t.mu.Unlock()
	if dev != nil {
		return dev.ShowSettings()
	}
	if factory == nil {
		return fmt.Errorf("tracker: no capture source")
	}
	return capture.ShowSettings(factory(), name)
}

func (t *Tracker) loop(log *slog.Logger, p *pipeline, dev *capture.Device, display overlay.Display, done chan<- struct{}) {
	defer close(done)
	defer t.alive.Store(false)
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("capture loop panic", "error", r)
		}
	}()
	var est fps.Estimator
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()

	for !t.stop.Load() {
		img, err := dev.Read()
		if err != nil {
			t.stats.readFailures.Add(1)
			if log != nil && !errors.Is(err, capture.ErrReadFailed) {
				log.Debug("frame read failed", "error", err)
			}
			time.Sleep(readRetryDelay)
			continue
		}
		start := time.Now()
		o := p.step(img)
		t.stats.record(o, time.Since(start))
		rate := est.Update(time.Now())
		t.stats.fpsBits.Store(math.Float64bits(rate))

		if o.fail == failSolve && log != nil {
			log.Debug("pose solve failed", "error", o.err)
		}
		if display != nil {
			overlay.Present(display, overlay.Frame{
				Image:    img,
				Corners:  o.corners,
				Centroid: o.centroid,
				FPS:      rate,
			})
		}

		select {
		case <-logTicker.C:
			t.logStats(log)
		default:
		}
	}
}

func (t *Tracker) logStats(log *slog.Logger) {
	if log == nil {
		return
	}
	s := t.stats.snapshot("")
	log.Debug("tracker.stats",
		"frames", s.Frames,
		"read_failures", s.ReadFailures,
		"detect_failures", s.DetectFailures,
		"solve_failures", s.SolveFailures,
		"roi_hits", s.ROIHits,
		"avg_process", s.AvgProcess,
		"fps", s.FPS,
	)
}
