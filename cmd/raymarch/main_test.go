package main

import (
	"testing"

	"github.com/gobuffalo/envy"
)

func TestUpscaleFactor(t *testing.T) {
	defer func() { *upscale = 0 }()

	envy.Temp(func() {
		envy.Set("RAYMARCH_UPSCALE", "4")
		*upscale = 3
		if got := upscaleFactor(); got != 3 {
			t.Errorf("flag must win over the environment, got %d", got)
		}

		*upscale = 0
		if got := upscaleFactor(); got != 4 {
			t.Errorf("expected environment value 4, got %d", got)
		}

		envy.Set("RAYMARCH_UPSCALE", "garbage")
		if got := upscaleFactor(); got != 2 {
			t.Errorf("unparseable environment must fall back to 2, got %d", got)
		}

		envy.Set("RAYMARCH_UPSCALE", "")
		if got := upscaleFactor(); got != 2 {
			t.Errorf("expected default 2, got %d", got)
		}
	})
}
