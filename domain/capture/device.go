package capture

import (
	"fmt"
	"image"
	"sync"
)

// Device guards a Source with the camera lock. The capture loop and
// out-of-band callers such as the settings dialog share it.
type Device struct {
	mu   sync.Mutex
	src  Source
	open bool
	name string
}

// NewDevice wraps src.
func NewDevice(src Source) *Device {
	return &Device{src: src}
}

// Open opens the underlying source with the given hints.
func (d *Device) Open(name string, s Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.src == nil {
		return fmt.Errorf("open %q: %w", name, ErrNotOpen)
	}
	if d.open {
		return nil
	}
	if err := d.src.Open(name, s); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}
	d.open, d.name = true, name
	return nil
}

// Read returns the next frame.
func (d *Device) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, ErrNotOpen
	}
	img, err := d.src.Read()
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrReadFailed
	}
	return img, nil
}

// IsOpen reports whether the source is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Name returns the identifier the device was opened with.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// ShowSettings opens the source's settings dialog while holding the camera
// lock, so the capture loop pauses until it returns.
func (d *Device) ShowSettings() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	dlg, ok := d.src.(SettingsDialog)
	if !ok {
		return ErrNoSettings
	}
	return dlg.ShowSettings()
}

// Close releases the source. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	return d.src.Close()
}

// ShowSettings opens a temporary device for name just to show its settings
// dialog, for use when no tracker is running.
func ShowSettings(src Source, name string) error {
	d := NewDevice(src)
	if err := d.Open(name, Settings{}); err != nil {
		return err
	}
	defer d.Close()
	return d.ShowSettings()
}
