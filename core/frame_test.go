package core

import (
	"errors"
	"testing"
	"time"
)

// mockBackend simulates the GPU side of the frame protocol. The
// fence only signals when the test triggers it, mirroring real GPU
// completion timing.
type mockBackend struct {
	fenceSignaled  chan struct{}
	acquireIndex   uint32
	acquireErr     error
	presentErr     error
	waitCalls      int
	resetCalls     int
	submitCalls    int
	presentCalls   int
	submittedIndex uint32
}

func newMockBackend() *mockBackend {
	b := &mockBackend{fenceSignaled: make(chan struct{}, 1)}
	// the fence starts pre-signaled, like the real one
	b.SignalFence()
	return b
}

// SignalFence is the test's "GPU finished" trigger.
func (b *mockBackend) SignalFence() {
	select {
	case b.fenceSignaled <- struct{}{}:
	default:
	}
}

func (b *mockBackend) WaitForFence() error {
	b.waitCalls++
	<-b.fenceSignaled
	return nil
}

func (b *mockBackend) ResetFence() error {
	b.resetCalls++
	return nil
}

func (b *mockBackend) AcquireNextImage() (uint32, error) {
	if b.acquireErr != nil {
		return 0, b.acquireErr
	}
	return b.acquireIndex, nil
}

func (b *mockBackend) Submit(imageIndex uint32) error {
	b.submitCalls++
	b.submittedIndex = imageIndex
	return nil
}

func (b *mockBackend) Present(imageIndex uint32) error {
	b.presentCalls++
	return b.presentErr
}

func TestFrameLoopHappyPath(t *testing.T) {
	backend := newMockBackend()
	backend.acquireIndex = 2

	var recordedIndex uint32
	recordCalls := 0
	loop := NewFrameLoop(backend, func(i uint32) error {
		recordedIndex = i
		recordCalls++
		return nil
	}, nil)

	if err := loop.Advance(); err != nil {
		t.Fatal(err)
	}

	if loop.State() != FramePresented {
		t.Errorf("expected FramePresented, got %d", loop.State())
	}
	if recordCalls != 1 || recordedIndex != 2 {
		t.Errorf("expected one recording of image 2, got %d of image %d", recordCalls, recordedIndex)
	}
	if backend.submittedIndex != 2 {
		t.Errorf("expected submit of image 2, got %d", backend.submittedIndex)
	}
	if backend.waitCalls != 1 || backend.resetCalls != 1 || backend.submitCalls != 1 || backend.presentCalls != 1 {
		t.Error("every protocol step must run exactly once")
	}
}

func TestStaleAcquireDropsFrame(t *testing.T) {
	backend := newMockBackend()
	backend.acquireErr = ErrStale

	flags := make([]bool, 3)
	loop := NewFrameLoop(backend, func(i uint32) error {
		flags[i] = true
		return nil
	}, nil)

	if err := loop.Advance(); err != nil {
		t.Fatalf("stale acquire must be recoverable, got %v", err)
	}

	if loop.State() != FrameIdle {
		t.Errorf("stale acquire must return to FrameIdle, got %d", loop.State())
	}
	for i, f := range flags {
		if f {
			t.Errorf("image %d was recorded despite the dropped frame", i)
		}
	}
	if backend.submitCalls != 0 || backend.presentCalls != 0 {
		t.Error("a dropped frame must not reach submit or present")
	}
}

func TestStalePresentDropsFrame(t *testing.T) {
	backend := newMockBackend()
	backend.presentErr = ErrStale

	loop := NewFrameLoop(backend, func(uint32) error { return nil }, nil)

	if err := loop.Advance(); err != nil {
		t.Fatalf("stale present must be recoverable, got %v", err)
	}
	if loop.State() != FrameIdle {
		t.Errorf("stale present must return to FrameIdle, got %d", loop.State())
	}
	if backend.submitCalls != 1 {
		t.Error("the frame was submitted before presentation went stale")
	}
}

func TestFatalAcquirePropagates(t *testing.T) {
	backend := newMockBackend()
	backend.acquireErr = errors.New("device lost")

	loop := NewFrameLoop(backend, func(uint32) error { return nil }, nil)
	if err := loop.Advance(); err == nil {
		t.Fatal("non stale acquire failures are fatal and must propagate")
	}
}

func TestRecordingWaitsForFence(t *testing.T) {
	backend := newMockBackend()
	// drain the pre-signaled state so the first frame can complete,
	// then the second frame must block until the trigger
	recorded := make(chan struct{}, 2)
	loop := NewFrameLoop(backend, func(uint32) error {
		recorded <- struct{}{}
		return nil
	}, nil)

	if err := loop.Advance(); err != nil {
		t.Fatal(err)
	}
	<-recorded

	done := make(chan error, 1)
	go func() {
		done <- loop.Advance()
	}()

	select {
	case <-recorded:
		t.Fatal("recording began before the fence wait completed")
	case <-time.After(50 * time.Millisecond):
	}

	backend.SignalFence()

	select {
	case <-recorded:
	case <-time.After(time.Second):
		t.Fatal("recording never happened after the fence signaled")
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
