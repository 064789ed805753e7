package model

import (
	"image"
	"sync"
)

// FrameModel is the hand-off point between the capture goroutine and the Tk
// thread. It implements overlay.Display: the tracker pushes annotated frames
// with Show and the preview presenter polls Latest on its tick.
type FrameModel struct {
	mu     sync.Mutex
	latest image.Image
	seq    uint64
}

// NewFrameModel returns an empty model.
func NewFrameModel() *FrameModel { return &FrameModel{} }

// Show stores img as the latest frame.
func (m *FrameModel) Show(img image.Image) {
	if m == nil || img == nil {
		return
	}
	m.mu.Lock()
	m.latest = img
	m.seq++
	m.mu.Unlock()
}

// Latest returns the most recent frame and its sequence number. The sequence
// only grows, so callers can skip frames they already rendered.
func (m *FrameModel) Latest() (image.Image, uint64) {
	if m == nil {
		return nil, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.seq
}

// Close drops the stored frame. The tracker calls it when a session ends.
func (m *FrameModel) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	m.latest = nil
	m.seq++
	m.mu.Unlock()
	return nil
}
