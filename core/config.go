package core

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Instance InstanceConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	// DebugMode enables the validation layer and routes driver
	// diagnostics into the injected sink
	DebugMode bool

	Extensions []string
	Layers     []string
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32
	ScreenHeight uint32

	// Upscale divides the dispatched resolution relative to the
	// presented one, the shader fills in the remainder. Must be
	// at least 1.
	Upscale uint32

	// ShaderBlob is the compiled compute shader consumed by
	// pipeline creation
	ShaderBlob []byte

	// UniformBytes is the size of the camera uniform buffer
	UniformBytes uint

	DeviceExtensions []string
}
