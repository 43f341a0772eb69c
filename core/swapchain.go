package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/devblok/raymarch/device"
	"github.com/devblok/raymarch/diag"
	vk "github.com/vulkan-go/vulkan"
)

// NewSwapchainManager creates an empty manager. CreateSwapchain and
// CreateImageViews populate it.
func NewSwapchainManager(dev *device.Device, surface vk.Surface, sink diag.Sink) *SwapchainManager {
	if sink == nil {
		sink = diag.Discard
	}
	return &SwapchainManager{
		device:  dev,
		surface: surface,
		sink:    sink,
	}
}

// SwapchainManager owns the presentable image chain, its views and the
// per image layout flags. Views and flags live and die with the
// swapchain: recreating it resets both and bumps the generation.
type SwapchainManager struct {
	device  *device.Device
	surface vk.Surface
	sink    diag.Sink

	swapchain  vk.Swapchain
	images     []vk.Image
	views      []vk.ImageView
	format     vk.Format
	colorSpace vk.ColorSpace
	extent     vk.Extent2D
	generation uint64

	layoutInitialized []bool
}

// CreateSwapchain negotiates the image chain against the surface.
// The preferred extent is only honored when the surface does not
// dictate a fixed one.
func (s *SwapchainManager) CreateSwapchain(preferred vk.Extent2D) error {
	var surfaceCapabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(s.device.Physical, s.surface, &surfaceCapabilities)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceCapabilities(): " + err.Error())
	}
	surfaceCapabilities.Deref()
	surfaceCapabilities.CurrentExtent.Deref()
	surfaceCapabilities.MinImageExtent.Deref()
	surfaceCapabilities.MaxImageExtent.Deref()

	var surfaceFormatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(s.device.Physical, s.surface, &surfaceFormatCount, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	surfaceFormats := make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(s.device.Physical, s.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	for i := range surfaceFormats {
		surfaceFormats[i].Deref()
	}

	var presentModeCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(s.device.Physical, s.surface, &presentModeCount, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}
	presentModes := make([]vk.PresentMode, presentModeCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(s.device.Physical, s.surface, &presentModeCount, presentModes)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}

	format := chooseSurfaceFormat(surfaceFormats)
	presentMode := choosePresentMode(presentModes)
	extent := chooseExtent(surfaceCapabilities.CurrentExtent,
		surfaceCapabilities.MinImageExtent, surfaceCapabilities.MaxImageExtent, preferred)
	imageCount := chooseImageCount(surfaceCapabilities.MinImageCount, surfaceCapabilities.MaxImageCount)

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		if surfaceCapabilities.SupportedCompositeAlpha&alphaFlags != 0 {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         s.surface,
		MinImageCount:   imageCount,
		ImageFormat:     format.Format,
		ImageColorSpace: format.ColorSpace,
		ImageExtent:     extent,
		// The compute shader writes the images directly, so storage
		// usage is required on top of the presentable usage.
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageStorageBit),
		PreTransform:     surfaceCapabilities.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
	}
	if s.device.SeparatePresentQueue() {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = []uint32{s.device.GraphicsFamily, s.device.PresentFamily}
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(s.device.Logical, &scci, nil, &swapchain)); err != nil {
		return errors.New("vk.CreateSwapchain(): " + err.Error())
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(s.device.Logical, swapchain, &numImages, nil)); err != nil {
		return errors.New("vk.GetSwapchainImages(num): " + err.Error())
	}
	images := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(s.device.Logical, swapchain, &numImages, images)); err != nil {
		return errors.New("vk.GetSwapchainImages(images): " + err.Error())
	}

	s.swapchain = swapchain
	s.images = images
	s.views = nil
	s.format = format.Format
	s.colorSpace = format.ColorSpace
	s.extent = extent
	s.layoutInitialized = make([]bool, numImages)
	s.generation++

	s.sink.Message(diag.SeverityInfo, "swapchain",
		fmt.Sprintf("created swapchain: %d images, %dx%d", numImages, extent.Width, extent.Height))
	return nil
}

// CreateImageViews creates one view per swapchain image.
func (s *SwapchainManager) CreateImageViews() error {
	if s.swapchain == vk.NullSwapchain {
		return errors.New("swapchain not created")
	}

	views := make([]vk.ImageView, 0, len(s.images))
	for idx := 0; idx < len(s.images); idx++ {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    s.images[idx],
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		if err := vk.Error(vk.CreateImageView(s.device.Logical, &ivci, nil, &imageView)); err != nil {
			return fmt.Errorf("vk.CreateImageView()[%d]: %s", idx, err.Error())
		}
		views = append(views, imageView)
	}
	s.views = views
	return nil
}

// Handle returns the swapchain handle.
func (s *SwapchainManager) Handle() vk.Swapchain {
	return s.swapchain
}

// ImageCount returns the number of negotiated images.
func (s *SwapchainManager) ImageCount() int {
	return len(s.images)
}

// Images returns the swapchain images.
func (s *SwapchainManager) Images() []vk.Image {
	return s.images
}

// Views returns the image views, in image order.
func (s *SwapchainManager) Views() []vk.ImageView {
	return s.views
}

// Format returns the negotiated image format.
func (s *SwapchainManager) Format() vk.Format {
	return s.format
}

// Extent returns the negotiated image extent.
func (s *SwapchainManager) Extent() vk.Extent2D {
	return s.extent
}

// Generation identifies the current swapchain incarnation. Resources
// built against images of an older generation must not be used.
func (s *SwapchainManager) Generation() uint64 {
	return s.generation
}

// LayoutInitialized reports whether image i was ever transitioned
// away from the undefined initial layout.
func (s *SwapchainManager) LayoutInitialized(i int) bool {
	return s.layoutInitialized[i]
}

// MarkLayoutInitialized flags image i as transitioned. The flag is
// monotonic until the swapchain is recreated.
func (s *SwapchainManager) MarkLayoutInitialized(i int) {
	s.layoutInitialized[i] = true
}

// Destroy releases the views and the swapchain. The images belong
// to the swapchain and are not destroyed individually.
func (s *SwapchainManager) Destroy() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device.Logical, view, nil)
	}
	s.views = nil
	if s.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.device.Logical, s.swapchain, nil)
		s.swapchain = vk.NullSwapchain
	}
	s.images = nil
	s.layoutInitialized = nil
}

// chooseSurfaceFormat prefers 8 bit BGRA in sRGB color space and
// falls back to whatever the surface offers first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers the low latency mailbox mode, FIFO is
// the mandatory fallback.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface dictated extent unless the surface
// reports the "window manager decides" sentinel, in which case the
// preferred extent is clamped into the supported range.
func chooseExtent(current, min, max, preferred vk.Extent2D) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  clampUint32(preferred.Width, min.Width, max.Width),
		Height: clampUint32(preferred.Height, min.Height, max.Height),
	}
}

// chooseImageCount asks for one image over the minimum so the driver
// never stalls waiting for us, capped when the surface declares a
// nonzero maximum.
func chooseImageCount(min, max uint32) uint32 {
	count := min + 1
	if max > 0 && count > max {
		count = max
	}
	return count
}

func clampUint32(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
