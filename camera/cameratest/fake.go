// Package cameratest provides fakes for camera.BufferManager and
// camera.EventReporter, grounded on google-periph/devices/devicestest's
// fake devices.Display, for use by tests outside package camera and by
// callers exercising camera.Camera without a host framework. Tests inside
// package camera cannot import it, since it imports camera itself.
package cameratest

import (
	"sync"

	"github.com/soleil-ica/go-spectralinstrument/camera"
)

// BufferManager is a fake camera.BufferManager that records every frame
// it's handed, in arrival order.
type BufferManager struct {
	mu     sync.Mutex
	frames []camera.Frame
	err    error
}

// AcceptFrame implements camera.BufferManager.
func (b *BufferManager) AcceptFrame(f camera.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.frames = append(b.frames, f)
	return nil
}

// Frames returns every frame accepted so far.
func (b *BufferManager) Frames() []camera.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]camera.Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// FailWith makes subsequent AcceptFrame calls return err.
func (b *BufferManager) FailWith(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

var _ camera.BufferManager = &BufferManager{}

// EventReporter is a fake camera.EventReporter that records every event
// it's handed.
type EventReporter struct {
	mu     sync.Mutex
	events []camera.Event
}

// ReportEvent implements camera.EventReporter.
func (r *EventReporter) ReportEvent(ev camera.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns every event reported so far.
func (r *EventReporter) Events() []camera.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]camera.Event, len(r.events))
	copy(out, r.events)
	return out
}

var _ camera.EventReporter = &EventReporter{}
