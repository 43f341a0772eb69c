package device

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Options configures device selection.
type Options struct {
	// Extensions are device extensions required on top of the
	// swapchain extension, which is always required.
	Extensions []string

	// Policy decides between suitable adapters. ScoreByHeap
	// is used when nil.
	Policy ScorePolicy
}

// Select enumerates physical devices, filters out adapters that cannot
// render and present to the given surface, scores the rest and creates
// a logical device with a graphics and a present queue on the winner.
// Returns ErrNoSuitableDevice when nothing passes the filter.
func Select(instance vk.Instance, surface vk.Surface, opts Options) (*Device, error) {
	policy := opts.Policy
	if policy == nil {
		policy = ScoreByHeap
	}

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		return nil, err
	}

	type suitableDevice struct {
		handle           vk.PhysicalDevice
		graphics, presnt uint32
	}

	var (
		suitable   []suitableDevice
		candidates []Candidate
	)
	for _, pd := range physicalDevices {
		graphics, present, ok := findQueueFamilies(pd, surface)
		if !ok {
			continue
		}
		if !supportsExtensions(pd, append([]string{vk.KhrSwapchainExtensionName}, opts.Extensions...)) {
			continue
		}
		if !surfaceUsable(pd, surface) {
			continue
		}
		suitable = append(suitable, suitableDevice{handle: pd, graphics: graphics, presnt: present})
		candidates = append(candidates, candidateOf(pd))
	}

	best := PickBest(candidates, policy)
	if best < 0 {
		return nil, ErrNoSuitableDevice
	}
	winner := suitable[best]

	logical, err := createLogicalDevice(winner.handle, winner.graphics, winner.presnt, opts.Extensions)
	if err != nil {
		return nil, err
	}

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(logical, winner.graphics, 0, &graphicsQueue)
	vk.GetDeviceQueue(logical, winner.presnt, 0, &presentQueue)

	return &Device{
		Physical:       winner.handle,
		Logical:        logical,
		Info:           infoOf(winner.handle),
		GraphicsFamily: winner.graphics,
		PresentFamily:  winner.presnt,
		GraphicsQueue:  graphicsQueue,
		PresentQueue:   presentQueue,
	}, nil
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return availableDevices, nil
}

// findQueueFamilies locates a graphics capable family and a family
// that can present to the surface. These may be the same family.
func findQueueFamilies(pd vk.PhysicalDevice, surface vk.Surface) (graphics, present uint32, ok bool) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

	var graphicsFound, presentFound bool
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if !graphicsFound && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = i
			graphicsFound = true
		}

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, surface, &supportsPresent)
		if !presentFound && supportsPresent.B() {
			present = i
			presentFound = true
		}

		if graphicsFound && presentFound {
			break
		}
	}
	return graphics, present, graphicsFound && presentFound
}

func supportsExtensions(pd vk.PhysicalDevice, required []string) bool {
	var numDeviceExtensions uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
		return false
	}
	deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
		return false
	}

	available := make(map[string]bool, numDeviceExtensions)
	for _, ext := range deviceExt {
		ext.Deref()
		available[vk.ToString(ext.ExtensionName[:])] = true
	}
	for _, req := range required {
		if !available[req] {
			return false
		}
	}
	return true
}

// surfaceUsable requires at least one surface format and one
// present mode, otherwise a swapchain cannot be negotiated.
func surfaceUsable(pd vk.PhysicalDevice, surface vk.Surface) bool {
	var formatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)); err != nil {
		return false
	}
	var presentModeCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, nil)); err != nil {
		return false
	}
	return formatCount > 0 && presentModeCount > 0
}

func candidateOf(pd vk.PhysicalDevice) Candidate {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()

	var largestLocalHeap uint64
	for iMem := (uint32)(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		heap := memoryProperties.MemoryHeaps[iMem]
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) == 0 {
			continue
		}
		if size := uint64(heap.Size); size > largestLocalHeap {
			largestLocalHeap = size
		}
	}

	var physicalDeviceProperties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &physicalDeviceProperties)
	physicalDeviceProperties.Deref()

	return Candidate{
		Type:            typeOf(physicalDeviceProperties.DeviceType),
		DeviceLocalHeap: largestLocalHeap,
	}
}

func typeOf(deviceType vk.PhysicalDeviceType) Type {
	switch deviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return TypeDiscrete
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return TypeIntegrated
	case vk.PhysicalDeviceTypeVirtualGpu:
		return TypeVirtual
	default:
		return TypeOther
	}
}

func infoOf(pd vk.PhysicalDevice) PhysicalDeviceInfo {
	var pdi PhysicalDeviceInfo

	// Get extension info
	var numDeviceExtensions uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
		pdi.Invalid = true
	}
	deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
		pdi.Invalid = true
	}
	for _, ext := range deviceExt {
		ext.Deref()
		pdi.Extensions = append(pdi.Extensions, vk.ToString(ext.ExtensionName[:]))
	}

	// Get layers info
	var numDeviceLayers uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
		pdi.Invalid = true
	}
	deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
		pdi.Invalid = true
	}
	for _, layer := range deviceLayers {
		layer.Deref()
		pdi.Layers = append(pdi.Layers, vk.ToString(layer.LayerName[:]))
	}

	// Get memory info
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for iMem := (uint32)(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		heap := memoryProperties.MemoryHeaps[iMem]
		pdi.Memory = pdi.Memory + heap.Size
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			pdi.DeviceLocalMemory = pdi.DeviceLocalMemory + heap.Size
		}
	}

	// Get general device info
	var physicalDeviceProperties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &physicalDeviceProperties)
	physicalDeviceProperties.Deref()
	pdi.ID = (int)(physicalDeviceProperties.DeviceID)
	pdi.VendorID = (int)(physicalDeviceProperties.VendorID)
	pdi.Name = vk.ToString(physicalDeviceProperties.DeviceName[:])
	pdi.DriverVersion = (int)(physicalDeviceProperties.DriverVersion)
	pdi.Type = typeOf(physicalDeviceProperties.DeviceType)

	return pdi
}

func createLogicalDevice(pd vk.PhysicalDevice, graphicsFamily, presentFamily uint32, extraExtensions []string) (vk.Device, error) {
	families := []uint32{graphicsFamily}
	if presentFamily != graphicsFamily {
		families = append(families, presentFamily)
	}

	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := safeStrings(append([]string{vk.KhrSwapchainExtensionName}, extraExtensions...))

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	var logical vk.Device
	if err := vk.Error(vk.CreateDevice(pd, &dci, nil, &logical)); err != nil {
		return nil, errors.New("vk.CreateDevice(): " + err.Error())
	}
	return logical, nil
}

// safeStrings null terminates strings destined for the C side.
func safeStrings(sgs []string) []string {
	safe := make([]string, len(sgs))
	for i, s := range sgs {
		safe[i] = fmt.Sprintf("%s\x00", s)
	}
	return safe
}
