package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
)

func TestValidate_ClampsOutOfRange(t *testing.T) {
	c := &Config{
		Resolution:    7,
		FrameRate:     -1,
		FOV:           500,
		MarkerSizeMin: 2,
		MarkerSizeMax: -1,
		Threshold:     300,
		SearchWindow:  0.5,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Resolution != 0 || c.FrameRate != 0 {
		t.Fatalf("expected indices reset, got res=%d fps=%d", c.Resolution, c.FrameRate)
	}
	if c.FOV != 56 || c.Threshold != 100 || c.SearchWindow != 1.3 {
		t.Fatalf("unexpected clamps: fov=%d thr=%d win=%v", c.FOV, c.Threshold, c.SearchWindow)
	}
	if c.MarkerSizeMin != 0.05 || c.MarkerSizeMax != 0.3 {
		t.Fatalf("unexpected size bounds %v..%v", c.MarkerSizeMin, c.MarkerSizeMax)
	}
	if c.Backend != BackendCamera {
		t.Fatalf("expected camera backend, got %q", c.Backend)
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	c := DefaultConfig()
	c.Backend = "gstreamer"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestChoices(t *testing.T) {
	c := DefaultConfig()
	if got := c.ResolutionSize(); got != image.Pt(640, 480) {
		t.Fatalf("resolution 0: %v", got)
	}
	c.Resolution = 2
	if got := c.ResolutionSize(); got != (image.Point{}) {
		t.Fatalf("resolution 2 should be device default, got %v", got)
	}
	want := []int{0, 30, 60, 75, 125, 200}
	for i, w := range want {
		c.FrameRate = i
		if got := c.FrameRateHint(); got != w {
			t.Fatalf("frame rate %d: got %d want %d", i, got, w)
		}
	}
	if len(ResolutionLabels()) != 3 || len(FrameRateLabels()) != 6 {
		t.Fatalf("unexpected label counts")
	}
}

func TestHeadOffsetRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.SetHeadOffset(r3.Vector{X: 5, Y: 10, Z: -3})
	if got := c.HeadOffset(); got != (r3.Vector{X: 5, Y: 10, Z: -3}) {
		t.Fatalf("head offset: %v", got)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoad_JSONAndYAML(t *testing.T) {
	for _, name := range []string{"cfg.json", "cfg.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			c := DefaultConfig()
			c.CameraName = "Logitech C920"
			c.FOV = 75
			c.SetHeadOffset(r3.Vector{X: 1.5, Y: -2, Z: 30})
			if err := c.Save(path); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(c, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"fov": 90}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.FOV != 90 || got.MarkerHalfSize != 40 || got.SettleDelayMs != 1000 {
		t.Fatalf("partial load lost defaults: %+v", got)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"fov": `), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if cfg == nil || cfg.FOV != 56 {
		t.Fatalf("expected defaults on error, got %+v", cfg)
	}
}
