package core

import (
	"errors"
	"fmt"

	"github.com/devblok/raymarch/device"
	vk "github.com/vulkan-go/vulkan"
)

// localWorkgroupSize is the compute shader's fixed local size per axis.
const localWorkgroupSize = 16

// NewCommandRecorder creates the command pool and one resettable
// command buffer per swapchain image. The resource set must stem from
// the same swapchain generation, otherwise its descriptor sets point
// at dead image views.
func NewCommandRecorder(dev *device.Device, swapchain *SwapchainManager, resources *ComputeResourceSet, upscale uint32) (*CommandRecorder, error) {
	if resources.Generation() != swapchain.Generation() {
		return nil, ErrGenerationMismatch
	}
	if upscale == 0 {
		upscale = 1
	}

	r := &CommandRecorder{
		device:    dev,
		swapchain: swapchain,
		resources: resources,
		upscale:   upscale,
	}

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dev.GraphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(dev.Logical, &cpci, nil, &commandPool)); err != nil {
		return nil, errors.New("vk.CreateCommandPool(): " + err.Error())
	}
	r.commandPool = commandPool

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(swapchain.ImageCount()),
	}

	commandBuffers := make([]vk.CommandBuffer, swapchain.ImageCount())
	if err := vk.Error(vk.AllocateCommandBuffers(dev.Logical, &cbai, commandBuffers)); err != nil {
		vk.DestroyCommandPool(dev.Logical, commandPool, nil)
		return nil, errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}
	r.commandBuffers = commandBuffers

	return r, nil
}

// CommandRecorder re-records the per image command buffer every
// frame: transition to writable, dispatch, transition back to
// presentable. The two barriers are the correctness contract, without
// them the dispatch races the presentation engine.
type CommandRecorder struct {
	device    *device.Device
	swapchain *SwapchainManager
	resources *ComputeResourceSet
	upscale   uint32

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer
}

// CommandBuffer returns the buffer recorded for image imageIndex.
func (r *CommandRecorder) CommandBuffer(imageIndex uint32) vk.CommandBuffer {
	return r.commandBuffers[imageIndex]
}

// BufferCount returns the number of allocated command buffers.
func (r *CommandRecorder) BufferCount() int {
	return len(r.commandBuffers)
}

// Record resets and re-records the command buffer for imageIndex.
// All failures here are fatal, a half recorded buffer cannot be
// recovered.
func (r *CommandRecorder) Record(imageIndex uint32) error {
	commandBuffer := r.commandBuffers[imageIndex]
	image := r.swapchain.Images()[imageIndex]

	if err := vk.Error(vk.ResetCommandBuffer(commandBuffer, 0)); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer()[%d]: %s", imageIndex, err.Error())
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer()[%d]: %s", imageIndex, err.Error())
	}

	acquire := acquireTransition(r.swapchain.LayoutInitialized(int(imageIndex)))
	r.recordBarrier(commandBuffer, image, acquire)
	r.swapchain.MarkLayoutInitialized(int(imageIndex))

	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointCompute, r.resources.Pipeline())
	vk.CmdBindDescriptorSets(commandBuffer, vk.PipelineBindPointCompute,
		r.resources.PipelineLayout(), 0, 1,
		[]vk.DescriptorSet{r.resources.DescriptorSet(int(imageIndex))}, 0, nil)

	groupsX, groupsY := dispatchGroups(r.swapchain.Extent(), localWorkgroupSize, r.upscale)
	vk.CmdDispatch(commandBuffer, groupsX, groupsY, 1)

	r.recordBarrier(commandBuffer, image, releaseTransition())

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer()[%d]: %s", imageIndex, err.Error())
	}
	return nil
}

func (r *CommandRecorder) recordBarrier(commandBuffer vk.CommandBuffer, image vk.Image, t layoutTransition) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           t.oldLayout,
		NewLayout:           t.newLayout,
		SrcAccessMask:       t.srcAccess,
		DstAccessMask:       t.dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(commandBuffer, t.srcStage, t.dstStage, 0, 0, nil, 0, nil, 1,
		[]vk.ImageMemoryBarrier{barrier})
}

// Destroy frees the command buffers and the pool.
func (r *CommandRecorder) Destroy() {
	if len(r.commandBuffers) > 0 {
		vk.FreeCommandBuffers(r.device.Logical, r.commandPool, uint32(len(r.commandBuffers)), r.commandBuffers)
		r.commandBuffers = nil
	}
	if r.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(r.device.Logical, r.commandPool, nil)
		r.commandPool = vk.NullCommandPool
	}
}

// layoutTransition captures one pipeline barrier's parameters.
type layoutTransition struct {
	oldLayout, newLayout vk.ImageLayout
	srcStage, dstStage   vk.PipelineStageFlags
	srcAccess, dstAccess vk.AccessFlags
}

// acquireTransition makes the image writable by the dispatch. An
// image that was presented before comes out of the present layout,
// a fresh one has no contents worth preserving and transitions from
// undefined with no real dependency.
func acquireTransition(initialized bool) layoutTransition {
	t := layoutTransition{
		oldLayout: vk.ImageLayoutUndefined,
		newLayout: vk.ImageLayoutGeneral,
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
	}
	if initialized {
		t.oldLayout = vk.ImageLayoutPresentSrc
		t.srcStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return t
}

// releaseTransition hands the written image to the presentation
// engine.
func releaseTransition() layoutTransition {
	return layoutTransition{
		oldLayout: vk.ImageLayoutGeneral,
		newLayout: vk.ImageLayoutPresentSrc,
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		srcAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
		dstAccess: 0,
	}
}

// dispatchGroups covers the render target with fixed size local
// workgroups. The upscale factor shrinks the dispatched resolution,
// the shader upsamples to fill the presented one.
func dispatchGroups(extent vk.Extent2D, local, upscale uint32) (x, y uint32) {
	width := extent.Width / upscale
	height := extent.Height / upscale
	x = (width + local - 1) / local
	y = (height + local - 1) / local
	return x, y
}
