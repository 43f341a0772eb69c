package core

import (
	"errors"
	"unsafe"

	"github.com/devblok/raymarch/device"
	"github.com/devblok/raymarch/diag"
	vk "github.com/vulkan-go/vulkan"
)

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer
func NewVulkanRenderer(instance Instance, cfg RendererConfiguration, sink diag.Sink) (Renderer, error) {
	if instance.Surface() == vk.NullSurface {
		return nil, errors.New("instance has no surface to render to")
	}
	if len(cfg.ShaderBlob) == 0 {
		return nil, ErrShaderLoad
	}
	if cfg.UniformBytes == 0 {
		return nil, errors.New("uniform buffer size not configured")
	}
	if sink == nil {
		sink = diag.Discard
	}
	return &VulkanRenderer{
		configuration: cfg,
		instance:      instance,
		surface:       instance.Surface(),
		sink:          sink,
	}, nil
}

// VulkanRenderer drives the component graph each tick: camera
// uniform refresh, then the acquire/record/submit/present protocol.
type VulkanRenderer struct {
	Destroyable

	configuration RendererConfiguration
	instance      Instance
	surface       vk.Surface
	sink          diag.Sink

	device    *device.Device
	swapchain *SwapchainManager
	allocator *MemoryAllocator
	uniform   Buffer
	mapped    unsafe.Pointer
	resources *ComputeResourceSet
	recorder  *CommandRecorder
	sync      *FrameSynchronizer
	loop      *FrameLoop
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	selected, err := device.Select(v.instance.Handle(), v.surface, device.Options{
		Extensions: v.configuration.DeviceExtensions,
		Policy:     device.ScoreByHeap,
	})
	if err != nil {
		return err
	}
	v.device = selected
	v.sink.Message(diag.SeverityInfo, "renderer", "selected device: "+selected.Info.Name)

	v.swapchain = NewSwapchainManager(v.device, v.surface, v.sink)
	if err := v.swapchain.CreateSwapchain(vk.Extent2D{
		Width:  v.configuration.ScreenWidth,
		Height: v.configuration.ScreenHeight,
	}); err != nil {
		return err
	}

	if err := v.swapchain.CreateImageViews(); err != nil {
		return err
	}

	if err := v.createUniformBuffer(); err != nil {
		return err
	}

	resources, err := BuildComputeResources(v.device, v.swapchain.Views(), &v.uniform,
		v.configuration.ShaderBlob, v.swapchain.Generation())
	if err != nil {
		return err
	}
	v.resources = resources

	recorder, err := NewCommandRecorder(v.device, v.swapchain, v.resources, v.configuration.Upscale)
	if err != nil {
		return err
	}
	v.recorder = recorder

	sync, err := NewFrameSynchronizer(v.device, v.swapchain, v.recorder)
	if err != nil {
		return err
	}
	v.sync = sync

	v.loop = NewFrameLoop(v.sync, v.recorder.Record, v.sink)
	return nil
}

func (v *VulkanRenderer) createUniformBuffer() error {
	allocator, err := NewMemoryAllocator(v.device.Logical, v.device.Physical)
	if err != nil {
		return err
	}
	v.allocator = allocator

	uniform, err := NewBuffer(v.device.Logical, v.configuration.UniformBytes,
		vk.BufferUsageUniformBufferBit, vk.SharingModeExclusive, allocator)
	if err != nil {
		return err
	}
	v.uniform = uniform

	// Mapped once and written every frame. Host coherent memory and
	// the single in flight fence make extra synchronization
	// unnecessary for this buffer.
	v.mapped = v.uniform.Mem().Map()
	return nil
}

// UpdateUniform implements interface
func (v *VulkanRenderer) UpdateUniform(data []byte) error {
	if v.mapped == nil {
		return errors.New("uniform buffer is not mapped")
	}
	if uint(len(data)) > v.uniform.Size() {
		return errors.New("uniform data exceeds buffer size")
	}
	target := (*(*[1 << 30]byte)(v.mapped))[:len(data)]
	copy(target, data)
	return nil
}

// DrawFrame implements interface
func (v *VulkanRenderer) DrawFrame() error {
	return v.loop.Advance()
}

// Destroy implements interface. Drains the device before any
// teardown, then releases in reverse creation order.
func (v *VulkanRenderer) Destroy() {
	if v.device == nil {
		return
	}
	vk.DeviceWaitIdle(v.device.Logical)

	if v.sync != nil {
		v.sync.Destroy()
	}
	if v.recorder != nil {
		v.recorder.Destroy()
	}
	if v.resources != nil {
		v.resources.Destroy()
	}
	if v.mapped != nil {
		v.uniform.Release()
		v.mapped = nil
	}
	if v.swapchain != nil {
		v.swapchain.Destroy()
	}
	v.device.Destroy()
}
