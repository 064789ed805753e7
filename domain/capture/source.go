// Package capture opens frame sources and serialises access to them.
package capture

import (
	"errors"
	"image"
)

var (
	// ErrNotOpen is returned by Read on a source that is not open.
	ErrNotOpen = errors.New("capture: device not open")
	// ErrReadFailed marks a transient read failure; the caller may retry.
	ErrReadFailed = errors.New("capture: read failed")
	// ErrNoSettings is returned when a source has no settings dialog.
	ErrNoSettings = errors.New("capture: source has no settings dialog")
)

// Settings are the capture hints applied on open. Zero values keep the
// device defaults.
type Settings struct {
	Resolution image.Point
	FrameRate  int
}

// Source is a frame producer such as a camera. Implementations need not be
// safe for concurrent use; Device serialises calls.
type Source interface {
	Open(name string, s Settings) error
	Read() (image.Image, error)
	Close() error
}

// SettingsDialog is implemented by sources that can show a device-specific
// configuration UI.
type SettingsDialog interface {
	ShowSettings() error
}

// Factory builds a fresh Source. The tracker creates one per session.
type Factory func() Source
