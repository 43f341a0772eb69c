package core

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/devblok/raymarch/diag"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultVulkanApplicationInfo application info describes a Vulkan application
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "Raymarch\x00",
	PEngineName:        "Raymarch\x00",
}

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// NewVulkanInstance creates a Vulkan instance. With DebugMode set the
// validation layer is enabled and driver diagnostics flow into sink.
// When the layer is not installed the instance degrades to non-debug
// instead of failing creation.
func NewVulkanInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration, sink diag.Sink) (Instance, error) {
	if sink == nil {
		sink = diag.Discard
	}

	cfg.Extensions = safeStrings(cfg.Extensions)
	cfg.Layers = safeStrings(cfg.Layers)

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.InstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	if cfg.DebugMode && !instanceLayerSupported(validationLayerName) {
		sink.Message(diag.SeverityWarning, "vulkan", validationLayerName+" is not installed, validation disabled")
		cfg.DebugMode = false
	}
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, safeString(validationLayerName))
		cfg.Extensions = append(cfg.Extensions, safeString("VK_EXT_debug_report"))
	}

	/* Create instance */
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: cfg.Extensions,
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     cfg.Layers,
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(instance)

	v := &VulkanInstance{
		configuration: cfg,
		instance:      instance,
		sink:          sink,
	}

	if cfg.DebugMode {
		if err := v.createDebugCallback(); err != nil {
			vk.DestroyInstance(instance, nil)
			return nil, err
		}
	}

	return v, nil
}

// instanceLayerSupported reports whether the loader offers the named
// instance layer. Enumeration failures count as unsupported.
func instanceLayerSupported(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if count > 0 {
		if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
			return false
		}
	}
	return layerListed(layers, name)
}

func layerListed(layers []vk.LayerProperties, name string) bool {
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// VulkanInstance describes a Vulkan API Instance
type VulkanInstance struct {
	Destroyable

	configuration InstanceConfiguration
	sink          diag.Sink

	surface       vk.Surface
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
}

func (v *VulkanInstance) createDebugCallback() error {
	drci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit |
			vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit |
			vk.DebugReportInformationBit),
		PfnCallback: v.debugReport,
	}

	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(v.instance, &drci, nil, &callback)); err != nil {
		return errors.New("vk.CreateDebugReportCallback(): " + err.Error())
	}
	v.debugCallback = callback
	return nil
}

// debugReport runs on the driver's thread, the sink handles locking.
func (v *VulkanInstance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, layerPrefix string,
	message string, userData unsafe.Pointer) vk.Bool32 {

	var severity diag.Severity
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		severity = diag.SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		severity = diag.SeverityWarning
	default:
		severity = diag.SeverityInfo
	}
	v.sink.Message(severity, "vulkan", fmt.Sprintf("[%s] %s", layerPrefix, message))
	return vk.False
}

// Handle implements interface
func (v *VulkanInstance) Handle() vk.Instance {
	return v.instance
}

// Instance implements interface
func (v *VulkanInstance) Instance() interface{} {
	return v.instance
}

// SetSurface implements interface
func (v *VulkanInstance) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface implements interface
func (v *VulkanInstance) Surface() vk.Surface {
	return v.surface
}

// Extensions implements interface
func (v *VulkanInstance) Extensions() []string {
	return v.configuration.Extensions
}

// Destroy implements interface
func (v *VulkanInstance) Destroy() {
	if v.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(v.instance, v.debugCallback, nil)
	}
	if v.surface != vk.NullSurface {
		vk.DestroySurface(v.instance, v.surface, nil)
	}
	vk.DestroyInstance(v.instance, nil)
}
