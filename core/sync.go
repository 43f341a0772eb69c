package core

import (
	"errors"
	"math"

	"github.com/devblok/raymarch/device"
	vk "github.com/vulkan-go/vulkan"
)

// NewFrameSynchronizer creates the semaphore pair and the fence of
// the single in flight frame model. The fence starts signaled so the
// first frame does not stall on work that was never submitted.
func NewFrameSynchronizer(dev *device.Device, swapchain *SwapchainManager, recorder *CommandRecorder) (*FrameSynchronizer, error) {
	s := &FrameSynchronizer{
		device:    dev,
		swapchain: swapchain,
		recorder:  recorder,
	}

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	var (
		imageAvailableSemaphore vk.Semaphore
		renderFinishedSemaphore vk.Semaphore
		fence                   vk.Fence
	)
	if err := vk.Error(vk.CreateSemaphore(dev.Logical, &sci, nil, &imageAvailableSemaphore)); err != nil {
		return nil, errors.New("vk.CreateSemaphore(): " + err.Error())
	}
	if err := vk.Error(vk.CreateSemaphore(dev.Logical, &sci, nil, &renderFinishedSemaphore)); err != nil {
		vk.DestroySemaphore(dev.Logical, imageAvailableSemaphore, nil)
		return nil, errors.New("vk.CreateSemaphore(): " + err.Error())
	}
	if err := vk.Error(vk.CreateFence(dev.Logical, &fci, nil, &fence)); err != nil {
		vk.DestroySemaphore(dev.Logical, imageAvailableSemaphore, nil)
		vk.DestroySemaphore(dev.Logical, renderFinishedSemaphore, nil)
		return nil, errors.New("vk.CreateFence(): " + err.Error())
	}

	s.imageAvailableSemaphore = imageAvailableSemaphore
	s.renderFinishedSemaphore = renderFinishedSemaphore
	s.fence = fence

	return s, nil
}

// FrameSynchronizer owns the synchronization primitives and the
// acquire/submit/present sequencing against the real queues. It
// satisfies FrameBackend.
type FrameSynchronizer struct {
	device    *device.Device
	swapchain *SwapchainManager
	recorder  *CommandRecorder

	imageAvailableSemaphore vk.Semaphore
	renderFinishedSemaphore vk.Semaphore
	fence                   vk.Fence
}

// WaitForFence blocks until the previous frame's GPU work retired.
// This is the sole backpressure bounding the CPU to one frame ahead.
func (s *FrameSynchronizer) WaitForFence() error {
	if err := vk.Error(vk.WaitForFences(s.device.Logical, 1, []vk.Fence{s.fence}, vk.True, math.MaxUint64)); err != nil {
		return errors.New("vk.WaitForFences(): " + err.Error())
	}
	return nil
}

// ResetFence returns the fence to unsignaled before the next submit.
func (s *FrameSynchronizer) ResetFence() error {
	if err := vk.Error(vk.ResetFences(s.device.Logical, 1, []vk.Fence{s.fence})); err != nil {
		return errors.New("vk.ResetFences(): " + err.Error())
	}
	return nil
}

// AcquireNextImage asks the presentation engine for the next image.
// An out of date swapchain maps to ErrStale, a suboptimal result
// still delivers a usable image.
func (s *FrameSynchronizer) AcquireNextImage() (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(s.device.Logical, s.swapchain.Handle(), math.MaxUint64,
		s.imageAvailableSemaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, ErrStale
	default:
		return 0, errors.New("vk.AcquireNextImage(): " + vk.Error(result).Error())
	}
}

// Submit queues the recorded buffer for imageIndex. The dispatch
// waits for acquisition at the compute stage, completion signals the
// present semaphore and the frame fence.
func (s *FrameSynchronizer) Submit(imageIndex uint32) error {
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.imageAvailableSemaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.recorder.CommandBuffer(imageIndex)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinishedSemaphore},
	}}

	if err := vk.Error(vk.QueueSubmit(s.device.GraphicsQueue, 1, submit, s.fence)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	return nil
}

// Present hands the image to the presentation engine once rendering
// finished. Out of date and suboptimal results map to ErrStale, the
// frame is simply dropped.
func (s *FrameSynchronizer) Present(imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderFinishedSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain.Handle()},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(s.device.PresentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrStale
	default:
		return errors.New("vk.QueuePresent(): " + vk.Error(result).Error())
	}
}

// Destroy releases the synchronization primitives.
func (s *FrameSynchronizer) Destroy() {
	vk.DestroySemaphore(s.device.Logical, s.imageAvailableSemaphore, nil)
	vk.DestroySemaphore(s.device.Logical, s.renderFinishedSemaphore, nil)
	vk.DestroyFence(s.device.Logical, s.fence, nil)
}
