package core

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestDispatchGroups(t *testing.T) {
	cases := []struct {
		name           string
		extent         vk.Extent2D
		upscale        uint32
		wantX, wantY   uint32
	}{
		{"full resolution", vk.Extent2D{Width: 1280, Height: 720}, 1, 80, 45},
		{"half resolution rounds up", vk.Extent2D{Width: 1280, Height: 720}, 2, 40, 23},
		{"odd width rounds up", vk.Extent2D{Width: 1281, Height: 720}, 1, 81, 45},
		{"tiny target", vk.Extent2D{Width: 1, Height: 1}, 1, 1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			x, y := dispatchGroups(c.extent, localWorkgroupSize, c.upscale)
			if x != c.wantX || y != c.wantY {
				t.Errorf("dispatchGroups(%v, %d, %d) = (%d, %d), want (%d, %d)",
					c.extent, localWorkgroupSize, c.upscale, x, y, c.wantX, c.wantY)
			}
		})
	}
}

func TestPerImageResourceCountsAgree(t *testing.T) {
	const imageCount = 3
	swapchain := &SwapchainManager{
		images: make([]vk.Image, imageCount),
		views:  make([]vk.ImageView, imageCount),
	}
	resources := &ComputeResourceSet{
		descriptorSets: make([]vk.DescriptorSet, len(swapchain.Views())),
	}
	recorder := &CommandRecorder{
		commandBuffers: make([]vk.CommandBuffer, swapchain.ImageCount()),
	}

	if resources.SetCount() != swapchain.ImageCount() {
		t.Errorf("descriptor set count %d does not match image count %d",
			resources.SetCount(), swapchain.ImageCount())
	}
	if recorder.BufferCount() != swapchain.ImageCount() {
		t.Errorf("command buffer count %d does not match image count %d",
			recorder.BufferCount(), swapchain.ImageCount())
	}
}

func TestGenerationMismatchRejected(t *testing.T) {
	swapchain := &SwapchainManager{generation: 2}
	resources := &ComputeResourceSet{generation: 1}

	if _, err := NewCommandRecorder(nil, swapchain, resources, 1); err != ErrGenerationMismatch {
		t.Errorf("expected ErrGenerationMismatch, got %v", err)
	}
}

func TestAcquireTransitionFirstUse(t *testing.T) {
	tr := acquireTransition(false)
	if tr.oldLayout != vk.ImageLayoutUndefined {
		t.Error("first use must transition from the undefined layout")
	}
	if tr.newLayout != vk.ImageLayoutGeneral {
		t.Error("dispatch needs the general layout")
	}
	if tr.srcStage != vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit) {
		t.Error("first use has no real dependency, source stage must be top of pipe")
	}
	if tr.dstStage != vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit) {
		t.Error("transition must gate at the compute stage")
	}
	if tr.srcAccess != 0 || tr.dstAccess != vk.AccessFlags(vk.AccessShaderWriteBit) {
		t.Error("first use acquires for shader writes only")
	}
}

func TestAcquireTransitionAfterPresent(t *testing.T) {
	tr := acquireTransition(true)
	if tr.oldLayout != vk.ImageLayoutPresentSrc {
		t.Error("a presented image comes out of the present layout")
	}
	if tr.srcStage != vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit) {
		t.Error("source stage must be the previous frame's bottom of pipe")
	}
	if tr.newLayout != vk.ImageLayoutGeneral {
		t.Error("dispatch needs the general layout")
	}
}

func TestReleaseTransition(t *testing.T) {
	tr := releaseTransition()
	if tr.oldLayout != vk.ImageLayoutGeneral || tr.newLayout != vk.ImageLayoutPresentSrc {
		t.Error("release must hand the general layout image to presentation")
	}
	if tr.srcStage != vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit) {
		t.Error("release waits on the compute stage")
	}
	if tr.dstStage != vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit) {
		t.Error("release targets bottom of pipe")
	}
	if tr.srcAccess != vk.AccessFlags(vk.AccessShaderWriteBit) {
		t.Error("release must make shader writes visible")
	}
}
