package core

import "errors"

// Frame level and setup error kinds. ErrStale is the only
// recoverable one, everything else aborts setup or the process.
var (
	// ErrStale reports that the surface no longer matches the
	// swapchain. The current frame is dropped and the next tick
	// retries from a clean state.
	ErrStale = errors.New("swapchain is stale and no longer matches the surface")

	// ErrShaderLoad reports an unreadable or malformed compiled
	// shader blob.
	ErrShaderLoad = errors.New("compute shader blob could not be read")

	// ErrGenerationMismatch reports compute resources built against
	// a different swapchain generation than the one in use.
	ErrGenerationMismatch = errors.New("compute resources do not match the swapchain generation")
)
