package core

import (
	"github.com/devblok/raymarch/diag"
)

// FrameBackend is the queue and synchronization surface the frame
// protocol runs against. FrameSynchronizer is the real one, tests
// substitute mocks.
type FrameBackend interface {
	// WaitForFence blocks until the previous frame retired.
	WaitForFence() error

	// ResetFence unsignals the fence before the next submit.
	ResetFence() error

	// AcquireNextImage returns the next image index, or ErrStale
	// when the swapchain no longer matches the surface.
	AcquireNextImage() (uint32, error)

	// Submit queues the command buffer recorded for imageIndex.
	Submit(imageIndex uint32) error

	// Present displays imageIndex, returning ErrStale when the
	// frame had to be dropped.
	Present(imageIndex uint32) error
}

// FrameState tracks how far a frame progressed through the protocol.
type FrameState int

// Protocol states, in traversal order. A stale acquire or present
// returns directly to FrameIdle.
const (
	FrameIdle FrameState = iota
	FrameWaited
	FrameAcquired
	FrameRecorded
	FrameSubmitted
	FramePresented
)

// NewFrameLoop wires the protocol to a backend and a recording
// callback. The callback must not run before the fence wait retires
// the previous frame, which the call order here guarantees.
func NewFrameLoop(backend FrameBackend, record func(imageIndex uint32) error, sink diag.Sink) *FrameLoop {
	if sink == nil {
		sink = diag.Discard
	}
	return &FrameLoop{
		backend: backend,
		record:  record,
		sink:    sink,
	}
}

// FrameLoop drives one frame per Advance call: wait, reset, acquire,
// record, submit, present. It is the single place frame level
// invariants are enforced.
type FrameLoop struct {
	backend FrameBackend
	record  func(imageIndex uint32) error
	sink    diag.Sink
	state   FrameState
}

// State returns how far the most recent frame progressed.
func (l *FrameLoop) State() FrameState {
	return l.state
}

// Advance runs one frame. Stale conditions drop the frame and return
// nil, the next tick retries from a clean state. The early return is
// harmless: the fence was reset and will be signaled by whichever
// submission eventually happens.
func (l *FrameLoop) Advance() error {
	l.state = FrameIdle

	if err := l.backend.WaitForFence(); err != nil {
		return err
	}
	l.state = FrameWaited

	if err := l.backend.ResetFence(); err != nil {
		return err
	}

	imageIndex, err := l.backend.AcquireNextImage()
	if err == ErrStale {
		l.sink.Message(diag.SeverityDebug, "frame", "stale swapchain at acquire, frame dropped")
		l.state = FrameIdle
		return nil
	}
	if err != nil {
		return err
	}
	l.state = FrameAcquired

	if err := l.record(imageIndex); err != nil {
		return err
	}
	l.state = FrameRecorded

	if err := l.backend.Submit(imageIndex); err != nil {
		return err
	}
	l.state = FrameSubmitted

	if err := l.backend.Present(imageIndex); err == ErrStale {
		l.sink.Message(diag.SeverityDebug, "frame", "stale swapchain at present, frame dropped")
		l.state = FrameIdle
		return nil
	} else if err != nil {
		return err
	}
	l.state = FramePresented

	return nil
}
