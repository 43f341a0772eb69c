// Package core implements the rendering core: instance management,
// swapchain lifecycle, the compute resource graph, per frame command
// recording and the acquire/submit/present protocol.
package core

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Destroyable is anything holding GPU resources that must be
// released explicitly, in reverse creation order.
type Destroyable interface {
	Destroy()
}

// Instance describes a Vulkan instance and supporting methods.
// Once created it is ready to use.
type Instance interface {
	// Handle returns the typed instance handle
	Handle() vk.Instance

	// Instance returns the inner handle as an opaque value,
	// in the shape window libraries expect it
	Instance() interface{}

	// SetSurface sets the window surface for rendering
	SetSurface(unsafe.Pointer)

	// Surface returns the window surface, if it's not set
	// it should return a valid but empty surface
	Surface() vk.Surface

	// Extensions returns enabled instance extensions
	Extensions() []string

	// Destroy destroys internal members
	Destroy()
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {
	// Initialise sets up the configured rendering pipeline
	Initialise() error

	// UpdateUniform replaces the contents of the camera uniform
	// buffer before the next frame
	UpdateUniform(data []byte) error

	// DrawFrame runs one iteration of the frame protocol
	DrawFrame() error

	// Destroy destroys internal members
	Destroy()
}
