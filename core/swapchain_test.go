package core

import (
	"math"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestChooseImageCount(t *testing.T) {
	cases := []struct {
		name     string
		min, max uint32
		want     uint32
	}{
		{"uncapped adds one", 2, 0, 3},
		{"capped clamps", 2, 2, 2},
		{"cap above request", 2, 5, 3},
		{"larger minimum", 3, 0, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := chooseImageCount(c.min, c.max); got != c.want {
				t.Errorf("chooseImageCount(%d, %d) = %d, want %d", c.min, c.max, got, c.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	offered := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	if got := choosePresentMode(offered); got != vk.PresentModeMailbox {
		t.Errorf("expected mailbox mode when offered, got %d", got)
	}

	fifoOnly := []vk.PresentMode{vk.PresentModeFifo}
	if got := choosePresentMode(fifoOnly); got != vk.PresentModeFifo {
		t.Errorf("expected fifo fallback, got %d", got)
	}

	immediateOnly := []vk.PresentMode{vk.PresentModeImmediate}
	if got := choosePresentMode(immediateOnly); got != vk.PresentModeFifo {
		t.Errorf("expected fifo fallback for unpreferred modes, got %d", got)
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}); got != preferred {
		t.Errorf("expected the sRGB BGRA format to win, got %v", got)
	}
	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other}); got != other {
		t.Errorf("expected first offered format as fallback, got %v", got)
	}
}

func TestChooseExtentFixedBySurface(t *testing.T) {
	current := vk.Extent2D{Width: 1024, Height: 768}
	preferred := vk.Extent2D{Width: 1280, Height: 720}

	got := chooseExtent(current, vk.Extent2D{}, vk.Extent2D{Width: 4096, Height: 4096}, preferred)
	if got != current {
		t.Errorf("surface dictated extent must win, got %v", got)
	}
}

func TestChooseExtentClampsPreferred(t *testing.T) {
	sentinel := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	min := vk.Extent2D{Width: 640, Height: 480}
	max := vk.Extent2D{Width: 1920, Height: 1080}

	got := chooseExtent(sentinel, min, max, vk.Extent2D{Width: 1280, Height: 720})
	if got.Width != 1280 || got.Height != 720 {
		t.Errorf("in range extent must pass through, got %v", got)
	}

	got = chooseExtent(sentinel, min, max, vk.Extent2D{Width: 4096, Height: 100})
	if got.Width != 1920 || got.Height != 480 {
		t.Errorf("expected per axis clamping, got %v", got)
	}
}

func TestLayoutInitializedStartsFalse(t *testing.T) {
	s := SwapchainManager{layoutInitialized: make([]bool, 3)}
	for i := 0; i < 3; i++ {
		if s.LayoutInitialized(i) {
			t.Errorf("image %d must start uninitialized", i)
		}
	}
}

func TestLayoutInitializedIsMonotonic(t *testing.T) {
	s := SwapchainManager{layoutInitialized: make([]bool, 3)}

	s.MarkLayoutInitialized(1)
	if !s.LayoutInitialized(1) {
		t.Error("image 1 must be initialized after marking")
	}
	if s.LayoutInitialized(0) || s.LayoutInitialized(2) {
		t.Error("other images must stay uninitialized")
	}

	// marking again must not flip anything back
	s.MarkLayoutInitialized(1)
	if !s.LayoutInitialized(1) {
		t.Error("flag must stay set")
	}
}
