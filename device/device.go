// Package device implements physical device enumeration and selection.
// A device is selected once at startup and stays immutable for the
// lifetime of the process.
package device

import (
	"errors"

	vk "github.com/vulkan-go/vulkan"
)

// ErrNoSuitableDevice is returned when no enumerated adapter
// satisfies the suitability predicate.
var ErrNoSuitableDevice = errors.New("no suitable rendering device found")

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Type          Type

	// Memory is the total size of all memory heaps,
	// DeviceLocalMemory only counts device local ones.
	Memory            vk.DeviceSize
	DeviceLocalMemory vk.DeviceSize
}

// Type is a coarse adapter classification used by the type ranked
// scoring policy.
type Type int

// Adapter types, ordered by desirability for rendering work.
const (
	TypeOther Type = iota
	TypeVirtual
	TypeIntegrated
	TypeDiscrete
)

// Device is a selected physical device together with its logical
// context and the two queues the renderer needs. Graphics and present
// families may coincide.
type Device struct {
	Physical vk.PhysicalDevice
	Logical  vk.Device
	Info     PhysicalDeviceInfo

	GraphicsFamily uint32
	PresentFamily  uint32
	GraphicsQueue  vk.Queue
	PresentQueue   vk.Queue
}

// SeparatePresentQueue reports whether presentation runs on a
// different queue family than graphics work.
func (d *Device) SeparatePresentQueue() bool {
	return d.GraphicsFamily != d.PresentFamily
}

// Destroy releases the logical device. The physical device handle
// is owned by the instance and needs no release.
func (d *Device) Destroy() {
	if d == nil {
		return
	}
	vk.DestroyDevice(d.Logical, nil)
}
