package core

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestSafeStringsTerminate(t *testing.T) {
	in := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
	for i, s := range safeStrings(in) {
		if s != in[i]+"\x00" {
			t.Errorf("expected %q null terminated, got %q", in[i], s)
		}
	}
	if got := safeString("VK_EXT_debug_report"); got != "VK_EXT_debug_report\x00" {
		t.Errorf("safeString() = %q", got)
	}
}

func namedLayer(name string) vk.LayerProperties {
	var l vk.LayerProperties
	copy(l.LayerName[:], name)
	return l
}

func TestLayerListed(t *testing.T) {
	layers := []vk.LayerProperties{
		namedLayer("VK_LAYER_MESA_overlay"),
		namedLayer(validationLayerName),
	}

	if !layerListed(layers, validationLayerName) {
		t.Error("validation layer not found in a list that contains it")
	}
	if layerListed(layers[:1], validationLayerName) {
		t.Error("validation layer reported present in a list without it")
	}
	if layerListed(nil, validationLayerName) {
		t.Error("empty layer list must report nothing")
	}
}
